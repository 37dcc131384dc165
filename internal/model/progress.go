package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProgressState string

const (
	ProgressAbsent     ProgressState = "absent"
	ProgressIncomplete ProgressState = "incomplete"
	ProgressCompleted  ProgressState = "completed"
)

// UserProgress 用户（profile）对某一步骤的完成记录，(user_id, step_id) 唯一
// swagger:model UserProgress
type UserProgress struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string     `gorm:"type:varchar(36);uniqueIndex:idx_user_step;not null" json:"userId"`
	StepID      string     `gorm:"type:varchar(36);uniqueIndex:idx_user_step;index;not null" json:"stepId"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

func (p *UserProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (p *UserProgress) State() ProgressState {
	if p == nil {
		return ProgressAbsent
	}
	if p.Completed {
		return ProgressCompleted
	}
	return ProgressIncomplete
}

// ProgressDetail 进度记录连同 step → module → course 上下文
// swagger:model ProgressDetail
type ProgressDetail struct {
	StepID      string     `json:"stepId"`
	StepTitle   string     `json:"stepTitle"`
	StepOrder   int        `json:"stepOrder"`
	ModuleID    string     `json:"moduleId"`
	ModuleTitle string     `json:"moduleTitle"`
	ModuleOrder int        `json:"moduleOrder"`
	CourseID    string     `json:"courseId"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// CourseCompletion 课程完成率重算结果，每个 (course, profile) 一行
// swagger:model CourseCompletion
type CourseCompletion struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CourseID       string     `gorm:"type:varchar(36);uniqueIndex:idx_course_profile;not null" json:"courseId"`
	ProfileID      string     `gorm:"type:varchar(36);uniqueIndex:idx_course_profile;not null" json:"profileId"`
	CompletedSteps int        `json:"completedSteps"`
	TotalSteps     int        `json:"totalSteps"`
	CompletionRate int        `json:"completionRate"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (CourseCompletion) TableName() string {
	return "course_completions"
}

func (c *CourseCompletion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
