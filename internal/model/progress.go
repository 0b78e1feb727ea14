package model

import "time"

// ContentProgress 记录用户对单个内容项的完成情况。
// 完成键为 (ModuleID, ItemID, ItemType)；整块真题的完成记录
// 使用 ModuleID=0、ItemID=0、ItemType=pyq。
type ContentProgress struct {
	BaseModel
	UserID      uint        `gorm:"index:idx_progress_key,unique;not null" json:"userId"`
	SubjectID   uint        `gorm:"index:idx_progress_key,unique;not null" json:"subjectId"`
	ModuleID    uint        `gorm:"index:idx_progress_key,unique" json:"moduleId"`
	ItemID      uint        `gorm:"index:idx_progress_key,unique" json:"itemId"`
	ItemType    ContentType `gorm:"size:20;index:idx_progress_key,unique" json:"itemType"`
	Completed   bool        `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time  `json:"completedAt"`
	TimeSpent   int         `gorm:"default:0" json:"timeSpent"` // 分钟
}

func (ContentProgress) TableName() string {
	return "content_progress"
}
