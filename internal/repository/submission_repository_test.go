package repository

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionRepository_ReviewOnlyFromPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewSubmissionRepository(db)
	course := seedOutline(t, db, "Go", 1)
	student := seedProfile(t, db, "student@example.com", model.Student)

	submission := &model.Submission{
		StepID:      course.stepIDs[0][0],
		StudentID:   student.ID,
		Content:     "answer",
		Status:      model.SubmissionPending,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, submission))

	grade := 80
	require.NoError(t, repo.Review(ctx, submission.ID, model.SubmissionApproved, &grade, "ok", "reviewer", time.Now()))
	err := repo.Review(ctx, submission.ID, model.SubmissionRejected, nil, "", "reviewer", time.Now())
	assert.ErrorIs(t, err, util.ErrInvalidTransition)

	stored, err := repo.FindByID(ctx, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionApproved, stored.Status)
	require.NotNil(t, stored.Grade)
	assert.Equal(t, 80, *stored.Grade)
	require.NotNil(t, stored.Student)
	assert.Equal(t, student.ID, stored.Student.ID)
	require.NotNil(t, stored.Step)
	assert.Equal(t, course.stepIDs[0][0], stored.Step.ID)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, util.ErrSubmissionNotFound)
}

func TestSubmissionRepository_ListPaging(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewSubmissionRepository(db)
	course := seedOutline(t, db, "Go", 1)
	student := seedProfile(t, db, "student@example.com", model.Student)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		status := model.SubmissionPending
		if i%2 == 1 {
			status = model.SubmissionRejected
		}
		require.NoError(t, repo.Create(ctx, &model.Submission{
			StepID:      course.stepIDs[0][0],
			StudentID:   student.ID,
			Content:     "answer",
			Status:      status,
			SubmittedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	items, total, err := repo.List(ctx, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, items, 2)
	assert.True(t, items[0].SubmittedAt.After(items[1].SubmittedAt))

	items, total, err = repo.List(ctx, model.SubmissionPending, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 1)

	mine, err := repo.ListByStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 5)
}
