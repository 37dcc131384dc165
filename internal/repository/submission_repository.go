package repository

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/util"
	"errors"
	"time"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(ctx context.Context, submission *model.Submission) error {
	return r.DB.WithContext(ctx).Create(submission).Error
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	var submission model.Submission
	err := r.DB.WithContext(ctx).
		Preload("Step").
		Preload("Student").
		Where("id = ?", id).
		First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSubmissionNotFound
	}
	return &submission, err
}

// List 按提交时间倒序，status 为空时返回全部
func (r *SubmissionRepository) List(ctx context.Context, status model.SubmissionStatus, page, pageSize int) ([]model.Submission, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Submission{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var submissions []model.Submission
	err := query.Preload("Step").Preload("Student").
		Order("submitted_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&submissions).Error
	return submissions, total, err
}

func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string) ([]model.Submission, error) {
	var submissions []model.Submission
	err := r.DB.WithContext(ctx).
		Preload("Step").
		Where("student_id = ?", studentID).
		Order("submitted_at DESC").
		Find(&submissions).Error
	return submissions, err
}

// Review 条件更新保证只有 pending 状态能被审核
func (r *SubmissionRepository) Review(ctx context.Context, id string, status model.SubmissionStatus, grade *int, feedback, reviewerID string, at time.Time) error {
	res := r.DB.WithContext(ctx).Model(&model.Submission{}).
		Where("id = ? AND status = ?", id, model.SubmissionPending).
		Updates(map[string]interface{}{
			"status":      status,
			"grade":       grade,
			"feedback":    feedback,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrInvalidTransition
	}
	return nil
}
