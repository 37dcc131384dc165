package repository

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/util"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompletionRepository struct {
	DB *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{DB: db}
}

func (r *CompletionRepository) Upsert(ctx context.Context, completion *model.CourseCompletion) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed_steps", "total_steps", "completion_rate", "completed_at", "updated_at"}),
	}).Create(completion).Error
	return util.NewStoreError("upsert course completion", err)
}

func (r *CompletionRepository) Find(ctx context.Context, courseID, profileID string) (*model.CourseCompletion, error) {
	var completion model.CourseCompletion
	err := r.DB.WithContext(ctx).
		Where("course_id = ? AND profile_id = ?", courseID, profileID).
		First(&completion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, util.NewStoreError("find course completion", err)
	}
	return &completion, nil
}

func (r *CompletionRepository) ListByCourse(ctx context.Context, courseID string) ([]model.CourseCompletion, error) {
	var completions []model.CourseCompletion
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("completion_rate DESC").
		Find(&completions).Error
	if err != nil {
		return nil, util.NewStoreError("list course completions", err)
	}
	return completions, nil
}
