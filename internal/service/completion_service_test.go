package service

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateCourseCompletionRate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	course := seedCourse(t, db, "Go basics", false, 2, 2)
	alice := seedUser(t, db, "alice@example.com", model.Student)
	bob := seedUser(t, db, "bob@example.com", model.Student)

	progressRepo := repository.NewProgressRepository(db)
	for _, step := range course.steps {
		_, err := progressRepo.UpsertCompletion(ctx, alice.profile.ID, step.ID)
		require.NoError(t, err)
	}
	_, err := progressRepo.UpsertCompletion(ctx, bob.profile.ID, course.steps[0].ID)
	require.NoError(t, err)

	courseRepo := repository.NewCourseRepository(db)
	svc := NewCompletionService(courseRepo, progressRepo, repository.NewCompletionRepository(db))
	require.NoError(t, svc.UpdateCourseCompletionRate(ctx, course.course.ID))

	stored, err := courseRepo.FindByID(ctx, course.course.ID)
	require.NoError(t, err)
	// (100 + 25) / 2 = 62.5，向上取整
	assert.Equal(t, 63, stored.CompletionRate)

	completions, err := svc.ListCourseCompletions(ctx, course.course.ID)
	require.NoError(t, err)
	require.Len(t, completions, 2)
	assert.Equal(t, alice.profile.ID, completions[0].ProfileID)
	assert.Equal(t, 100, completions[0].CompletionRate)
	assert.Equal(t, 4, completions[0].TotalSteps)
	assert.NotNil(t, completions[0].CompletedAt)
	assert.Equal(t, 25, completions[1].CompletionRate)
	assert.Nil(t, completions[1].CompletedAt)

	// 重算覆盖已有行，不新增
	_, err = progressRepo.UpsertCompletion(ctx, bob.profile.ID, course.steps[1].ID)
	require.NoError(t, err)
	require.NoError(t, svc.UpdateCourseCompletionRate(ctx, course.course.ID))

	completions, err = svc.ListCourseCompletions(ctx, course.course.ID)
	require.NoError(t, err)
	require.Len(t, completions, 2)

	bobCompletion, err := svc.GetCourseCompletion(ctx, course.course.ID, bob.profile.ID)
	require.NoError(t, err)
	require.NotNil(t, bobCompletion)
	assert.Equal(t, 2, bobCompletion.CompletedSteps)
	assert.Equal(t, 50, bobCompletion.CompletionRate)

	stored, err = courseRepo.FindByID(ctx, course.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, stored.CompletionRate)
}

func TestUpdateCourseCompletionRate_NoLearners(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	course := seedCourse(t, db, "Empty", false, 3)
	courseRepo := repository.NewCourseRepository(db)
	svc := NewCompletionService(courseRepo, repository.NewProgressRepository(db), repository.NewCompletionRepository(db))

	require.NoError(t, svc.UpdateCourseCompletionRate(ctx, course.course.ID))

	stored, err := courseRepo.FindByID(ctx, course.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CompletionRate)

	missing, err := svc.GetCourseCompletion(ctx, course.course.ID, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCompletionFlow_EndToEnd(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	course := seedCourse(t, db, "Flow", false, 1, 2)
	learner := seedUser(t, db, "learner@example.com", model.Student)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	queue := NewMemoryCompletionQueue(4)
	defer queue.Close()

	progress := NewProgressService(userRepo, progressRepo, courseRepo, queue, config.CompletionScopeCourse)
	worker := NewCompletionWorker(queue, NewCompletionService(courseRepo, progressRepo, repository.NewCompletionRepository(db)), 50*time.Millisecond)

	sess := &Session{UserID: learner.user.ID, Email: learner.user.Email, Role: model.Student}
	for i, step := range course.steps {
		require.True(t, progress.MarkStepComplete(ctx, sess, step.ID, course.course.ID))
		if i < len(course.steps)-1 {
			assert.Equal(t, 0, queue.Len())
		}
	}
	require.Equal(t, 1, queue.Len())

	event, err := queue.Receive(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, learner.profile.ID, event.ProfileID)
	require.NoError(t, worker.Handle(ctx, *event))

	stored, err := courseRepo.FindByID(ctx, course.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.CompletionRate)

	records := progress.GetUserProgress(ctx, sess, course.course.ID)
	require.Len(t, records, 3)
	// 按模块顺序、步骤顺序
	assert.Equal(t, course.steps[0].ID, records[0].StepID)
	assert.Equal(t, course.steps[2].ID, records[2].StepID)
	for _, record := range records {
		assert.True(t, record.Completed)
		assert.NotNil(t, record.CompletedAt)
	}

	summary, err := progress.GetCourseProgressSummary(ctx, sess, course.course.ID)
	require.NoError(t, err)
	assert.True(t, summary.Completed)
	assert.Equal(t, 100, summary.Percentage)
	assert.Len(t, summary.Modules, 2)
}

func TestMarkStepComplete_UnknownStepFails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	learner := seedUser(t, db, "learner@example.com", model.Student)
	progress := NewProgressService(
		repository.NewUserRepository(db),
		repository.NewProgressRepository(db),
		repository.NewCourseRepository(db),
		NewMemoryCompletionQueue(1),
		config.CompletionScopeCourse,
	)

	sess := &Session{UserID: learner.user.ID, Role: model.Student}
	assert.False(t, progress.MarkStepComplete(ctx, sess, "missing-step", ""))
}
