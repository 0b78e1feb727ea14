package repository

import (
	"studyplanner_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// FindByUser 返回用户全部完成记录
func (r *ProgressRepository) FindByUser(userID uint) ([]model.ContentProgress, error) {
	var records []model.ContentProgress
	err := r.DB.Where("user_id = ?", userID).Find(&records).Error
	return records, err
}

// Upsert 按完成键写入或更新一条完成记录
func (r *ProgressRepository) Upsert(progress *model.ContentProgress) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "subject_id"}, {Name: "module_id"},
			{Name: "item_id"}, {Name: "item_type"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "completed_at", "time_spent", "updated_at"}),
	}).Create(progress).Error
}

// SumTimeSpentBetween 汇总完成时间落在 [from, to) 内的记录耗时（分钟）
func (r *ProgressRepository) SumTimeSpentBetween(userID uint, from, to time.Time) (int, error) {
	var total int64
	err := r.DB.Model(&model.ContentProgress{}).
		Where("user_id = ? AND completed = ? AND completed_at >= ? AND completed_at < ?", userID, true, from, to).
		Select("COALESCE(SUM(time_spent), 0)").
		Scan(&total).Error
	return int(total), err
}
