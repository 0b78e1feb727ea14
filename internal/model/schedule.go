package model

import "time"

// ScheduleEntry 排期表中某一天的一条学习安排。
// 去重键为 (UserID, ItemID, ItemType, Date)；合成的真题分段
// 使用 ItemType=pyq、ItemID=分段序号，互不冲突。
type ScheduleEntry struct {
	BaseModel
	UserID          uint        `gorm:"index:idx_schedule_key,unique;not null" json:"userId"`
	Date            time.Time   `gorm:"index:idx_schedule_key,unique;not null" json:"date"`
	SubjectID       uint        `gorm:"index" json:"subjectId"`
	SubjectName     string      `gorm:"size:100" json:"subjectName"`
	ModuleID        uint        `json:"moduleId"`
	ModuleName      string      `gorm:"size:100" json:"moduleName"`
	ItemID          uint        `gorm:"index:idx_schedule_key,unique" json:"itemId"`
	ItemType        ContentType `gorm:"size:20;index:idx_schedule_key,unique" json:"itemType"`
	Name            string      `gorm:"size:200" json:"name"`
	DurationMinutes int         `gorm:"default:0" json:"durationMinutes"`
	Completed       bool        `gorm:"default:false" json:"completed"`
	CompletedAt     *time.Time  `json:"completedAt"`
}

func (ScheduleEntry) TableName() string {
	return "schedule_entries"
}
