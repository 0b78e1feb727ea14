package model

import "time"

// StudySession 一次实际学习活动的只追加记录，
// 连续学习天数评估和排行榜聚合都读取它。
type StudySession struct {
	BaseModel
	UserID          uint        `gorm:"index;not null" json:"userId"`
	SubjectID       uint        `gorm:"index" json:"subjectId"`
	ModuleID        uint        `json:"moduleId"`
	ItemID          uint        `json:"itemId"`
	ItemType        ContentType `gorm:"size:20" json:"itemType"`
	StartTime       time.Time   `gorm:"index;not null" json:"startTime"`
	EndTime         time.Time   `json:"endTime"`
	DurationMinutes int         `gorm:"default:0" json:"durationMinutes"`
	Notes           string      `gorm:"size:500" json:"notes"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}
