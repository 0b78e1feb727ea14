package service

import (
	"errors"
	"fmt"
	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/util"
	"studyplanner_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 当日学习时长达到目标的该比例即视为达标
const streakTargetPercent = 80

// StreakUpdate 连续学习天数评估结果
// swagger:model StreakUpdate
type StreakUpdate struct {
	Streak     int     `json:"streak"`
	Maintained bool    `json:"maintained"`
	Percentage float64 `json:"percentage"`
	Message    string  `json:"message"`
}

// StreakService 学习会话结束后评估当日目标完成度并维护连续天数
type StreakService struct {
	UserRepo     *repository.UserRepository
	SessionRepo  *repository.StudySessionRepository
	ProgressRepo *repository.ProgressRepository
}

func NewStreakService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.StudySessionRepository,
	progressRepo *repository.ProgressRepository,
) *StreakService {
	return &StreakService{
		UserRepo:     userRepo,
		SessionRepo:  sessionRepo,
		ProgressRepo: progressRepo,
	}
}

// UpdateUserStreak 评估今天的学习量。学习分钟数取会话时长之和与
// 完成记录耗时之和中的较大者：两条埋点路径会记录同一段学习，
// 取 max 而非相加避免重复计数。
func (s *StreakService) UpdateUserStreak(userID uint) (*StreakUpdate, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	target := storedDailyTarget(user)

	today := util.StartOfDay(time.Now())
	tomorrow := today.AddDate(0, 0, 1)

	sessionMinutes, err := s.SessionRepo.SumDurationBetween(userID, today, tomorrow)
	if err != nil {
		return nil, err
	}
	progressMinutes, err := s.ProgressRepo.SumTimeSpentBetween(userID, today, tomorrow)
	if err != nil {
		return nil, err
	}

	studied := sessionMinutes
	if progressMinutes > studied {
		studied = progressMinutes
	}

	percentage := float64(studied) / float64(target) * 100
	met := percentage >= streakTargetPercent

	if !met {
		// 未达标时不清零也不写库，连续天数保持原值
		return &StreakUpdate{
			Streak:     user.Streak,
			Maintained: false,
			Percentage: percentage,
			Message:    fmt.Sprintf("今日已学习 %d 分钟，距离目标还差 %d 分钟", studied, target-studied),
		}, nil
	}

	yesterday := today.AddDate(0, 0, -1)
	newStreak := user.Streak

	switch {
	case user.LastStreakDate != nil && util.StartOfDay(*user.LastStreakDate).Equal(today):
		// 今天已经记过，重复调用幂等
		return &StreakUpdate{
			Streak:     user.Streak,
			Maintained: true,
			Percentage: percentage,
			Message:    "今日目标已完成",
		}, nil
	case user.LastStreakDate != nil && util.StartOfDay(*user.LastStreakDate).Equal(yesterday):
		newStreak = user.Streak + 1
	default:
		newStreak = 1
	}

	if err := s.UserRepo.UpdateFields(userID, map[string]interface{}{
		"streak":           newStreak,
		"last_streak_date": today,
	}); err != nil {
		return nil, err
	}

	return &StreakUpdate{
		Streak:     newStreak,
		Maintained: true,
		Percentage: percentage,
		Message:    fmt.Sprintf("已连续学习 %d 天", newStreak),
	}, nil
}

// EvaluateAll 对今天有学习记录的用户跑一遍评估，夜间任务兜底用；
// 正常路径仍由会话结束后的接口触发。
func (s *StreakService) EvaluateAll() error {
	today := util.StartOfDay(time.Now())
	tomorrow := today.AddDate(0, 0, 1)

	ids, err := s.SessionRepo.ActiveUserIDsBetween(today, tomorrow)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := s.UpdateUserStreak(id); err != nil {
			logger.Log.Warn("nightly streak evaluation failed",
				zap.Uint("userId", id),
				zap.Error(err))
		}
	}
	return nil
}

// storedDailyTarget 从用户已存的档位取每日目标，未设置时默认120分钟
func storedDailyTarget(user *model.User) int {
	var target int
	switch user.SelectedPlan {
	case model.PlanMinimum:
		target = user.TargetMinimum
	case model.PlanModerate:
		target = user.TargetModerate
	case model.PlanMaximum:
		target = user.TargetMaximum
	case model.PlanCustom:
		target = user.TargetCustom
	}
	if target <= 0 {
		target = minimumDailyFloor
	}
	return target
}
