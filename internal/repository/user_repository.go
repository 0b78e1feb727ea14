package repository

import (
	"studyplanner_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

// UpdateFields 只更新给定字段，避免整行覆盖写
func (r *UserRepository) UpdateFields(userID uint, fields map[string]interface{}) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Updates(fields).
		Error
}

// AddStudyTime 累加用户的总学习分钟数
func (r *UserRepository) AddStudyTime(userID uint, minutes int) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("total_study_time", gorm.Expr("total_study_time + ?", minutes)).
		Error
}

func (r *UserRepository) UpdateLastLogin(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", time.Now()).
		Error
}

func (r *UserRepository) FindAll() ([]model.User, error) {
	var users []model.User
	err := r.DB.Find(&users).Error
	return users, err
}

// FindTopByStreak 按 (连续天数, 累计学习时长) 降序取前 limit 名
func (r *UserRepository) FindTopByStreak(limit int) ([]model.User, error) {
	var users []model.User
	err := r.DB.Order("streak DESC, total_study_time DESC").Limit(limit).Find(&users).Error
	return users, err
}

// GetUserSubjects 返回用户选择的科目记录（含优先级）
func (r *UserRepository) GetUserSubjects(userID uint) ([]model.UserSubject, error) {
	var subjects []model.UserSubject
	err := r.DB.Where("user_id = ?", userID).Find(&subjects).Error
	return subjects, err
}

// ReplaceUserSubjects 全量替换用户的科目选择
func (r *UserRepository) ReplaceUserSubjects(userID uint, subjects []model.UserSubject) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.UserSubject{}).Error; err != nil {
			return err
		}
		for i := range subjects {
			subjects[i].UserID = userID
			if subjects[i].Priority <= 0 {
				subjects[i].Priority = 5
			}
		}
		if len(subjects) == 0 {
			return nil
		}
		return tx.Create(&subjects).Error
	})
}

// SetSubjectPriority 调整单个科目的优先级
func (r *UserRepository) SetSubjectPriority(userID, subjectID uint, priority int) error {
	return r.DB.Model(&model.UserSubject{}).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		Update("priority", priority).
		Error
}
