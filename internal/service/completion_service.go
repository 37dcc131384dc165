package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
)

type CompletionCourseStore interface {
	CountStepsInCourse(ctx context.Context, courseID string) (int, error)
	UpdateCompletionRate(ctx context.Context, courseID string, rate int) error
}

type CompletionCounter interface {
	CountCompletedByProfile(ctx context.Context, courseID string) (map[string]int, error)
}

// CompletionService 课程完成率重算
type CompletionService struct {
	Courses     CompletionCourseStore
	Progress    CompletionCounter
	Completions *repository.CompletionRepository
	now         func() time.Time
}

func NewCompletionService(courses CompletionCourseStore, progress CompletionCounter, completions *repository.CompletionRepository) *CompletionService {
	return &CompletionService{
		Courses:     courses,
		Progress:    progress,
		Completions: completions,
		now:         time.Now,
	}
}

// UpdateCourseCompletionRate 为课程内每个学员写入完成率，并把平均值写回 courses.completion_rate
func (s *CompletionService) UpdateCourseCompletionRate(ctx context.Context, courseID string) error {
	total, err := s.Courses.CountStepsInCourse(ctx, courseID)
	if err != nil {
		return err
	}
	counts, err := s.Progress.CountCompletedByProfile(ctx, courseID)
	if err != nil {
		return err
	}

	now := s.now()
	sum := 0
	for profileID, completed := range counts {
		rate := CompletionPercentage(total, completed)
		completion := &model.CourseCompletion{
			CourseID:       courseID,
			ProfileID:      profileID,
			CompletedSteps: completed,
			TotalSteps:     total,
			CompletionRate: rate,
			UpdatedAt:      now,
		}
		if total > 0 && completed >= total {
			completion.CompletedAt = &now
		}
		if err := s.Completions.Upsert(ctx, completion); err != nil {
			return err
		}
		sum += rate
	}

	// 各学员完成率的平均值，同样 half-up 取整
	average := 0
	if len(counts) > 0 {
		average = CompletionPercentage(100*len(counts), sum)
	}
	if err := s.Courses.UpdateCompletionRate(ctx, courseID, average); err != nil {
		return err
	}

	logger.Log.Info("course completion rate updated",
		zap.String("courseId", courseID),
		zap.Int("learners", len(counts)),
		zap.Int("totalSteps", total),
		zap.Int("averageRate", average),
	)
	return nil
}

func (s *CompletionService) GetCourseCompletion(ctx context.Context, courseID, profileID string) (*model.CourseCompletion, error) {
	return s.Completions.Find(ctx, courseID, profileID)
}

func (s *CompletionService) ListCourseCompletions(ctx context.Context, courseID string) ([]model.CourseCompletion, error) {
	return s.Completions.ListByCourse(ctx, courseID)
}
