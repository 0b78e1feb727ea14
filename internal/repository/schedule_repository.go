package repository

import (
	"studyplanner_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ScheduleRepository struct {
	DB *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{DB: db}
}

// DeleteFrom 删除用户从某天起（含当天）的全部排期条目
func (r *ScheduleRepository) DeleteFrom(userID uint, date time.Time) error {
	return r.DB.Unscoped().
		Where("user_id = ? AND date >= ?", userID, date).
		Delete(&model.ScheduleEntry{}).Error
}

// CreateAll 写入一批排期条目，批次切分由调用方负责
func (r *ScheduleRepository) CreateAll(entries []model.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.DB.Create(&entries).Error
}

// FindByUserAndRange 返回 [from, to) 内的排期条目，按日期升序
func (r *ScheduleRepository) FindByUserAndRange(userID uint, from, to time.Time) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.DB.
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Order("date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *ScheduleRepository) FindByID(id uint) (*model.ScheduleEntry, error) {
	var entry model.ScheduleEntry
	err := r.DB.First(&entry, id).Error
	return &entry, err
}

// MarkCompleted 标记某条排期完成
func (r *ScheduleRepository) MarkCompleted(id uint, at time.Time) error {
	return r.DB.Model(&model.ScheduleEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": at,
		}).Error
}
