package service

import (
	"math"
	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/util"
	"time"
)

// Dashboard 学习首页聚合数据
// swagger:model Dashboard
type Dashboard struct {
	DaysRemaining      int                   `json:"daysRemaining"`
	DailyTarget        int                   `json:"dailyTarget"`
	StudiedToday       int                   `json:"studiedToday"`
	Streak             int                   `json:"streak"`
	TotalStudyTime     int                   `json:"totalStudyTime"`
	TodaySessions      []model.ScheduleEntry `json:"todaySessions"`
	TodayPlannedTotal  int                   `json:"todayPlannedTotal"`
	TodayCompletedPart int                   `json:"todayCompletedPart"`
}

// DashboardService 聚合首页需要的排期、目标与连续天数信息，只读
type DashboardService struct {
	UserRepo     *repository.UserRepository
	ScheduleRepo *repository.ScheduleRepository
	SessionRepo  *repository.StudySessionRepository
}

func NewDashboardService(
	userRepo *repository.UserRepository,
	scheduleRepo *repository.ScheduleRepository,
	sessionRepo *repository.StudySessionRepository,
) *DashboardService {
	return &DashboardService{
		UserRepo:     userRepo,
		ScheduleRepo: scheduleRepo,
		SessionRepo:  sessionRepo,
	}
}

func (s *DashboardService) GetDashboard(userID uint) (*Dashboard, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}

	today := util.StartOfDay(time.Now())
	tomorrow := today.AddDate(0, 0, 1)

	entries, err := s.ScheduleRepo.FindByUserAndRange(userID, today, tomorrow)
	if err != nil {
		return nil, err
	}

	studied, err := s.SessionRepo.SumDurationBetween(userID, today, tomorrow)
	if err != nil {
		return nil, err
	}

	daysRemaining := 0
	if user.ExamDeadline != nil {
		daysRemaining = int(math.Ceil(time.Until(*user.ExamDeadline).Hours() / 24))
		if daysRemaining < 0 {
			daysRemaining = 0
		}
	}

	plannedTotal := 0
	completedPart := 0
	for _, e := range entries {
		plannedTotal += e.DurationMinutes
		if e.Completed {
			completedPart += e.DurationMinutes
		}
	}

	if entries == nil {
		entries = []model.ScheduleEntry{}
	}

	return &Dashboard{
		DaysRemaining:      daysRemaining,
		DailyTarget:        storedDailyTarget(user),
		StudiedToday:       studied,
		Streak:             user.Streak,
		TotalStudyTime:     user.TotalStudyTime,
		TodaySessions:      entries,
		TodayPlannedTotal:  plannedTotal,
		TodayCompletedPart: completedPart,
	}, nil
}
