package repository

import (
	"context"
	"coursehub_backend/internal/model"

	"gorm.io/gorm"
)

type DashboardRepository struct {
	DB *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{DB: db}
}

// DashboardStats 管理后台概览
type DashboardStats struct {
	Courses               int64 `json:"courses"`
	PremiumCourses        int64 `json:"premiumCourses"`
	Learners              int64 `json:"learners"`
	CompletedSteps        int64 `json:"completedSteps"`
	PendingSubmissions    int64 `json:"pendingSubmissions"`
	AverageCompletionRate int   `json:"averageCompletionRate"`
}

func (r *DashboardRepository) Stats(ctx context.Context) (*DashboardStats, error) {
	db := r.DB.WithContext(ctx)
	stats := &DashboardStats{}

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&stats.Courses, db.Model(&model.Course{})},
		{&stats.PremiumCourses, db.Model(&model.Course{}).Where("is_premium = ?", true)},
		{&stats.Learners, db.Model(&model.Profile{}).Where("role IN ?", []model.UserRole{model.Student, model.PremiumStudent, model.FreeStudent})},
		{&stats.CompletedSteps, db.Model(&model.UserProgress{}).Where("completed = ?", true)},
		{&stats.PendingSubmissions, db.Model(&model.Submission{}).Where("status = ?", model.SubmissionPending)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	var avg *float64
	if err := db.Model(&model.Course{}).Select("AVG(completion_rate)").Row().Scan(&avg); err != nil {
		return nil, err
	}
	if avg != nil {
		stats.AverageCompletionRate = int(*avg + 0.5)
	}
	return stats, nil
}
