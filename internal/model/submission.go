package model

import "time"

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// CanTransitionTo 只允许 pending → approved / rejected
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	return s == SubmissionPending && (next == SubmissionApproved || next == SubmissionRejected)
}

// swagger:model Submission
type Submission struct {
	UUIDBase
	StepID      string           `gorm:"type:varchar(36);index;not null" json:"stepId"`
	StudentID   string           `gorm:"type:varchar(36);index;not null" json:"studentId"`
	Content     string           `gorm:"type:text" json:"content,omitempty"`
	FileURL     string           `gorm:"size:512" json:"fileUrl,omitempty"`
	Status      SubmissionStatus `gorm:"size:16;index;default:'pending'" json:"status"`
	Grade       *int             `json:"grade,omitempty"`
	Feedback    string           `gorm:"type:text" json:"feedback,omitempty"`
	ReviewedBy  *string          `gorm:"type:varchar(36)" json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time       `json:"reviewedAt,omitempty"`
	SubmittedAt time.Time        `json:"submittedAt"`

	Step    *Step    `gorm:"foreignKey:StepID" json:"step,omitempty"`
	Student *Profile `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}
