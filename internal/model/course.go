package model

type StepType string

const (
	StepLesson     StepType = "lesson"
	StepVideo      StepType = "video"
	StepQuiz       StepType = "quiz"
	StepAssignment StepType = "assignment"
)

func (t StepType) Valid() bool {
	switch t {
	case StepLesson, StepVideo, StepQuiz, StepAssignment:
		return true
	}
	return false
}

// swagger:model Course
type Course struct {
	UUIDBase
	Title          string   `gorm:"size:255;not null" json:"title"`
	Description    string   `gorm:"type:text" json:"description"`
	Category       string   `gorm:"size:64;index;not null" json:"category"`
	Difficulty     string   `gorm:"size:32;not null" json:"difficulty"`
	Duration       string   `gorm:"size:64" json:"duration"`
	IsPremium      bool     `gorm:"default:false" json:"isPremium"`
	CreatedBy      *string  `gorm:"type:varchar(36)" json:"createdBy,omitempty"`
	CompletionRate int      `gorm:"default:0" json:"completionRate"`
	Modules        []Module `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Module
type Module struct {
	UUIDBase
	CourseID    string `gorm:"type:varchar(36);index;not null" json:"courseId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	OrderIndex  int    `gorm:"default:0" json:"orderIndex"`
	Steps       []Step `gorm:"foreignKey:ModuleID" json:"steps,omitempty"`
}

func (Module) TableName() string {
	return "modules"
}

// swagger:model Step
type Step struct {
	UUIDBase
	ModuleID           string   `gorm:"type:varchar(36);index;not null" json:"moduleId"`
	Title              string   `gorm:"size:255;not null" json:"title"`
	StepType           StepType `gorm:"size:32;default:'lesson'" json:"stepType"`
	Content            string   `gorm:"type:text" json:"content"`
	VideoURL           string   `gorm:"size:512" json:"videoUrl,omitempty"`
	VideoDuration      float64  `gorm:"default:0" json:"videoDuration,omitempty"`
	ThumbnailURL       string   `gorm:"size:512" json:"thumbnailUrl,omitempty"`
	OrderIndex         int      `gorm:"default:0" json:"orderIndex"`
	RequiresSubmission bool     `gorm:"default:false" json:"requiresSubmission"`
}

func (Step) TableName() string {
	return "steps"
}
