package service

import (
	"errors"
	"fmt"
	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// SubjectSelection 一次科目选择提交
type SubjectSelection struct {
	SubjectID uint `json:"subjectId" binding:"required"`
	Priority  int  `json:"priority" binding:"omitempty,min=1,max=10"`
}

// UserService 处理用户画像与学习偏好设置
type UserService struct {
	UserRepo    *repository.UserRepository
	SubjectRepo *repository.SubjectRepository
}

func NewUserService(userRepo *repository.UserRepository, subjectRepo *repository.SubjectRepository) *UserService {
	return &UserService{
		UserRepo:    userRepo,
		SubjectRepo: subjectRepo,
	}
}

func (s *UserService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// SetExamDeadline 设置考试日期，只允许今天之后的日期
func (s *UserService) SetExamDeadline(userID uint, deadline time.Time) error {
	if _, err := s.GetUserByID(userID); err != nil {
		return err
	}
	if !deadline.After(time.Now()) {
		return fmt.Errorf("考试日期必须晚于今天")
	}
	return s.UserRepo.UpdateFields(userID, map[string]interface{}{
		"exam_deadline": deadline,
	})
}

// SelectPlan 切换学习档位；custom 档可同时给出自定义分钟数，
// 范围校验由下一次目标计算完成
func (s *UserService) SelectPlan(userID uint, plan string, customMinutes int) error {
	switch plan {
	case model.PlanMinimum, model.PlanModerate, model.PlanMaximum, model.PlanCustom:
	default:
		return fmt.Errorf("无效的学习档位: %s", plan)
	}

	if _, err := s.GetUserByID(userID); err != nil {
		return err
	}

	fields := map[string]interface{}{"selected_plan": plan}
	if plan == model.PlanCustom && customMinutes > 0 {
		fields["target_custom"] = customMinutes
	}
	return s.UserRepo.UpdateFields(userID, fields)
}

// SelectSubjects 全量替换科目选择，优先级缺省为5
func (s *UserService) SelectSubjects(userID uint, selections []SubjectSelection) error {
	if _, err := s.GetUserByID(userID); err != nil {
		return err
	}

	subjects := make([]model.UserSubject, 0, len(selections))
	for _, sel := range selections {
		if _, err := s.SubjectRepo.FindByID(sel.SubjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrSubjectNotFound
			}
			return err
		}
		subjects = append(subjects, model.UserSubject{
			SubjectID: sel.SubjectID,
			Priority:  sel.Priority,
		})
	}

	return s.UserRepo.ReplaceUserSubjects(userID, subjects)
}

// SetSubjectPriority 单独调整某个已选科目的优先级
func (s *UserService) SetSubjectPriority(userID, subjectID uint, priority int) error {
	if priority < 1 || priority > 10 {
		return fmt.Errorf("优先级必须在 1-10 之间")
	}
	if _, err := s.GetUserByID(userID); err != nil {
		return err
	}
	return s.UserRepo.SetSubjectPriority(userID, subjectID, priority)
}

// GetUserSubjects 返回用户已选科目及优先级
func (s *UserService) GetUserSubjects(userID uint) ([]model.UserSubject, error) {
	if _, err := s.GetUserByID(userID); err != nil {
		return nil, err
	}
	return s.UserRepo.GetUserSubjects(userID)
}

// UpdateAvatar 更新头像地址，文件上传由控制器走存储服务完成
func (s *UserService) UpdateAvatar(userID uint, url string) error {
	if _, err := s.GetUserByID(userID); err != nil {
		return err
	}
	return s.UserRepo.UpdateFields(userID, map[string]interface{}{"avatar": url})
}
