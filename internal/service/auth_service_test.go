package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cfg := testConfig()
	svc := NewAuthService(repository.NewUserRepository(db), cfg)

	profile, err := svc.Register(ctx, RegisterInput{FullName: "Ada", Email: " Ada@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.Equal(t, model.Student, profile.Role)
	assert.Equal(t, model.TierFree, profile.SubscriptionTier)
	assert.NotEmpty(t, profile.UserID)

	_, err = svc.Register(ctx, RegisterInput{FullName: "Ada", Email: "ada@example.com", Password: "other"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	token, loggedIn, err := svc.Login(ctx, "ADA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, profile.ID, loggedIn.ID)

	claims, err := util.ParseJWT(token, cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, profile.UserID, claims.UserID)
	assert.Equal(t, model.Student, claims.Role)

	got, err := svc.GetProfile(ctx, SessionFromClaims(claims))
	require.NoError(t, err)
	assert.Equal(t, profile.ID, got.ID)
}

func TestAuthService_LoginRejectsBadCredentials(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewAuthService(repository.NewUserRepository(db), testConfig())

	_, err := svc.Register(ctx, RegisterInput{FullName: "Ada", Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, err = svc.GetProfile(ctx, nil)
	assert.True(t, util.IsNotAuthenticated(err))
}
