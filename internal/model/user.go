package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// Plan tiers a user can study against. Custom is bounded by the
// calculator between the minimum tier and 16 hours.
const (
	PlanMinimum  = "minimum"
	PlanModerate = "moderate"
	PlanMaximum  = "maximum"
	PlanCustom   = "custom"
)

// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;unique;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"size:20;default:'student'" json:"role"`
	Avatar   string   `gorm:"size:255" json:"avatar"`

	// 考试与每日目标
	ExamDeadline   *time.Time `json:"examDeadline"`
	TargetMinimum  int        `gorm:"default:0" json:"targetMinimum"`  // 分钟/天
	TargetModerate int        `gorm:"default:0" json:"targetModerate"` // 分钟/天
	TargetMaximum  int        `gorm:"default:0" json:"targetMaximum"`  // 分钟/天
	TargetCustom   int        `gorm:"default:0" json:"targetCustom"`   // 分钟/天
	SelectedPlan   string     `gorm:"size:20;default:'moderate'" json:"selectedPlan"`

	// 连续学习与累计时长
	Streak         int        `gorm:"default:0" json:"streak"`
	LastStreakDate *time.Time `json:"lastStreakDate"`
	TotalStudyTime int        `gorm:"default:0" json:"totalStudyTime"` // 累计学习分钟数

	LastLogin time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}

// UserSubject 表示用户选择的科目及其优先级（1-10，默认5）。
// 存在记录即表示科目被选中。
type UserSubject struct {
	BaseModel
	UserID    uint `gorm:"index:idx_user_subject,unique;not null" json:"userId"`
	SubjectID uint `gorm:"index:idx_user_subject,unique;not null" json:"subjectId"`
	Priority  int  `gorm:"default:5" json:"priority"`
}

func (UserSubject) TableName() string {
	return "user_subjects"
}
