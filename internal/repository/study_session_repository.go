package repository

import (
	"studyplanner_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type StudySessionRepository struct {
	DB *gorm.DB
}

func NewStudySessionRepository(db *gorm.DB) *StudySessionRepository {
	return &StudySessionRepository{DB: db}
}

func (r *StudySessionRepository) Create(session *model.StudySession) error {
	return r.DB.Create(session).Error
}

// SumDurationBetween 汇总用户在 [from, to) 内的学习分钟数
func (r *StudySessionRepository) SumDurationBetween(userID uint, from, to time.Time) (int, error) {
	var total int64
	err := r.DB.Model(&model.StudySession{}).
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, from, to).
		Select("COALESCE(SUM(duration_minutes), 0)").
		Scan(&total).Error
	return int(total), err
}

// SumDurationByUserSince 按用户汇总窗口起点之后的学习分钟数
func (r *StudySessionRepository) SumDurationByUserSince(since time.Time) (map[uint]int, error) {
	type row struct {
		UserID uint
		Total  int64
	}
	var rows []row
	err := r.DB.Model(&model.StudySession{}).
		Where("start_time >= ?", since).
		Select("user_id, COALESCE(SUM(duration_minutes), 0) AS total").
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[uint]int, len(rows))
	for _, r := range rows {
		totals[r.UserID] = int(r.Total)
	}
	return totals, nil
}

// ActiveUserIDsBetween 返回窗口内有学习记录的用户，夜间连续天数评估用
func (r *StudySessionRepository) ActiveUserIDsBetween(from, to time.Time) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.StudySession{}).
		Where("start_time >= ? AND start_time < ?", from, to).
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}
