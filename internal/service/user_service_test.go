package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_ChangeRole(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sender := &recordingSender{}
	svc := NewUserService(repository.NewUserRepository(db), sender)

	admin := seedUser(t, db, "admin@example.com", model.Admin)
	student := seedUser(t, db, "student@example.com", model.Student)
	operator := &Session{UserID: admin.user.ID, Role: model.Admin}

	updated, err := svc.ChangeRole(ctx, operator, student.profile.ID, model.PremiumStudent)
	require.NoError(t, err)
	assert.Equal(t, model.PremiumStudent, updated.Role)

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 10*time.Millisecond)
	msg := sender.messages()[0]
	assert.Equal(t, "student@example.com", msg.ToAddress)
	assert.Contains(t, msg.Body, string(model.PremiumStudent))

	// 角色未变化时不发送通知
	_, err = svc.ChangeRole(ctx, operator, student.profile.ID, model.PremiumStudent)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sender.messages(), 1)
}

func TestUserService_ChangeRoleGuards(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewUserService(repository.NewUserRepository(db), &recordingSender{})

	admin := seedUser(t, db, "admin@example.com", model.Admin)
	root := seedUser(t, db, "root@example.com", model.SuperAdmin)
	student := seedUser(t, db, "student@example.com", model.Student)

	adminSess := &Session{UserID: admin.user.ID, Role: model.Admin}
	rootSess := &Session{UserID: root.user.ID, Role: model.SuperAdmin}
	studentSess := &Session{UserID: student.user.ID, Role: model.Student}

	_, err := svc.ChangeRole(ctx, nil, student.profile.ID, model.Teacher)
	assert.True(t, util.IsNotAuthenticated(err))

	_, err = svc.ChangeRole(ctx, studentSess, student.profile.ID, model.Admin)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.ChangeRole(ctx, adminSess, student.profile.ID, model.UserRole("wizard"))
	assert.ErrorIs(t, err, util.ErrInvalidRole)

	_, err = svc.ChangeRole(ctx, adminSess, student.profile.ID, model.SuperAdmin)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.ChangeRole(ctx, adminSess, root.profile.ID, model.Student)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.ChangeRole(ctx, adminSess, "missing", model.Teacher)
	assert.ErrorIs(t, err, util.ErrProfileNotFound)

	updated, err := svc.ChangeRole(ctx, rootSess, student.profile.ID, model.SuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.SuperAdmin, updated.Role)
}

func TestUserService_UpdateSubscription(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := repository.NewUserRepository(db)
	svc := NewUserService(repo, &recordingSender{})

	admin := seedUser(t, db, "admin@example.com", model.Admin)
	student := seedUser(t, db, "student@example.com", model.Student)
	adminSess := &Session{UserID: admin.user.ID, Role: model.Admin}
	studentSess := &Session{UserID: student.user.ID, Role: model.Student}
	assert.False(t, student.profile.IsPremium())

	end := time.Now().Add(24 * time.Hour)
	updated, err := svc.UpdateSubscription(ctx, adminSess, student.profile.ID, model.TierPremium, &end)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, updated.SubscriptionStatus)

	stored, err := repo.FindProfileByID(ctx, student.profile.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPremium())

	// 降级清空到期时间
	updated, err = svc.UpdateSubscription(ctx, adminSess, student.profile.ID, model.TierFree, &end)
	require.NoError(t, err)
	assert.Nil(t, updated.SubscriptionEnd)
	stored, err = repo.FindProfileByID(ctx, student.profile.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPremium())
	assert.Equal(t, model.SubscriptionCanceled, stored.SubscriptionStatus)

	_, err = svc.UpdateSubscription(ctx, nil, student.profile.ID, model.TierPremium, nil)
	assert.True(t, util.IsNotAuthenticated(err))

	_, err = svc.UpdateSubscription(ctx, studentSess, student.profile.ID, model.TierPremium, nil)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.UpdateSubscription(ctx, adminSess, student.profile.ID, "gold", nil)
	assert.ErrorIs(t, err, util.ErrInvalidTier)

	past := time.Now().Add(-time.Hour)
	_, err = svc.UpdateSubscription(ctx, adminSess, student.profile.ID, model.TierPremium, &past)
	assert.ErrorIs(t, err, util.ErrInvalidTier)

	_, err = svc.UpdateSubscription(ctx, adminSess, "missing", model.TierPremium, nil)
	assert.ErrorIs(t, err, util.ErrProfileNotFound)
}

func TestUserService_ListUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewUserService(repository.NewUserRepository(db), &recordingSender{})

	seedUser(t, db, "alice@example.com", model.Student)
	seedUser(t, db, "bob@example.com", model.Student)
	seedUser(t, db, "carol@example.com", model.Teacher)

	result, err := svc.ListUsers(ctx, 0, 500, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PageSize)

	result, err = svc.ListUsers(ctx, 1, 10, string(model.Student), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)

	result, err = svc.ListUsers(ctx, 1, 10, "", "carol")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "carol@example.com", result.Items[0].Email)
}
