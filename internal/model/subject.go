package model

// ContentType 内容项类型
type ContentType string

const (
	ContentLecture  ContentType = "lecture"
	ContentQuiz     ContentType = "quiz"
	ContentHomework ContentType = "homework"
	ContentPYQ      ContentType = "pyq" // 历年真题
)

// PYQMinutesPerQuestion 每道真题的经验耗时（分钟）
const PYQMinutesPerQuestion = 2.76923076923

// Subject 科目，含有序的章节和真题块
// swagger:model Subject
type Subject struct {
	BaseModel
	Name        string          `gorm:"size:100;not null" json:"name"`
	PYQCount    int             `gorm:"default:0" json:"pyqCount"`
	PYQDuration int             `gorm:"default:0" json:"pyqDuration"` // ceil(PYQCount * PYQMinutesPerQuestion)
	Modules     []SubjectModule `gorm:"foreignKey:SubjectID" json:"modules"`
}

func (Subject) TableName() string {
	return "subjects"
}

// SubjectModule 科目下的章节，内容项按 Position 排序
type SubjectModule struct {
	BaseModel
	SubjectID uint          `gorm:"index;not null" json:"subjectId"`
	Name      string        `gorm:"size:100;not null" json:"name"`
	Position  int           `gorm:"default:0" json:"position"`
	Items     []ContentItem `gorm:"foreignKey:ModuleID" json:"items"`
}

func (SubjectModule) TableName() string {
	return "subject_modules"
}

// ContentItem 章节下的单个学习内容
type ContentItem struct {
	BaseModel
	ModuleID        uint        `gorm:"index;not null" json:"moduleId"`
	Type            ContentType `gorm:"size:20;not null" json:"type"`
	Name            string      `gorm:"size:200;not null" json:"name"`
	DurationMinutes int         `gorm:"default:0" json:"durationMinutes"`
	Position        int         `gorm:"default:0" json:"position"`
	VideoURL        string      `gorm:"size:255" json:"videoUrl"`
}

func (ContentItem) TableName() string {
	return "content_items"
}
