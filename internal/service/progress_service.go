package service

import (
	"errors"
	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// ProgressService 完成记录与学习会话的写入口。两条路径都会推高
// 用户的累计学习时长；连续天数评估取两者的 max 消除重复。
type ProgressService struct {
	UserRepo     *repository.UserRepository
	SubjectRepo  *repository.SubjectRepository
	ProgressRepo *repository.ProgressRepository
	SessionRepo  *repository.StudySessionRepository
}

func NewProgressService(
	userRepo *repository.UserRepository,
	subjectRepo *repository.SubjectRepository,
	progressRepo *repository.ProgressRepository,
	sessionRepo *repository.StudySessionRepository,
) *ProgressService {
	return &ProgressService{
		UserRepo:     userRepo,
		SubjectRepo:  subjectRepo,
		ProgressRepo: progressRepo,
		SessionRepo:  sessionRepo,
	}
}

// MarkContentComplete 标记内容项完成。真题整块完成时传
// Type=pyq、ModuleID=0、ItemID=0。
func (s *ProgressService) MarkContentComplete(userID, subjectID, moduleID, itemID uint, itemType model.ContentType, timeSpent int) error {
	if _, err := s.UserRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		return err
	}

	if itemType != model.ContentPYQ {
		item, err := s.SubjectRepo.FindItemByID(itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrContentNotFound
			}
			return err
		}
		if item.ModuleID != moduleID {
			return util.ErrContentNotFound
		}
	}

	now := time.Now()
	progress := &model.ContentProgress{
		UserID:      userID,
		SubjectID:   subjectID,
		ModuleID:    moduleID,
		ItemID:      itemID,
		ItemType:    itemType,
		Completed:   true,
		CompletedAt: &now,
		TimeSpent:   timeSpent,
	}

	if err := s.ProgressRepo.Upsert(progress); err != nil {
		return err
	}

	if timeSpent > 0 {
		return s.UserRepo.AddStudyTime(userID, timeSpent)
	}
	return nil
}

// LogStudySession 追加一条学习会话记录
func (s *ProgressService) LogStudySession(session *model.StudySession) error {
	if _, err := s.UserRepo.FindByID(session.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		return err
	}

	if session.StartTime.IsZero() {
		session.StartTime = time.Now()
	}
	if session.EndTime.IsZero() {
		session.EndTime = session.StartTime.Add(time.Duration(session.DurationMinutes) * time.Minute)
	}
	if session.DurationMinutes <= 0 {
		session.DurationMinutes = int(session.EndTime.Sub(session.StartTime).Minutes())
	}
	if session.DurationMinutes < 0 {
		session.DurationMinutes = 0
	}

	if err := s.SessionRepo.Create(session); err != nil {
		return err
	}

	if session.DurationMinutes > 0 {
		return s.UserRepo.AddStudyTime(session.UserID, session.DurationMinutes)
	}
	return nil
}
