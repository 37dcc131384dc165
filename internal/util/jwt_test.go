package util

import (
	"coursehub_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("u1", "u1@example.com", model.Teacher, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1@example.com", claims.Email)
	assert.Equal(t, model.Teacher, claims.Role)
	assert.False(t, claims.PinVerified)
}

func TestPinJWT(t *testing.T) {
	token, err := GeneratePinJWT(&Claims{UserID: "u1", Role: model.Admin}, testSecret, time.Minute)
	require.NoError(t, err)

	claims, err := ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.True(t, claims.PinVerified)
	assert.Equal(t, model.Admin, claims.Role)
}

func TestParseJWT_Rejects(t *testing.T) {
	token, err := GenerateJWT("u1", "u1@example.com", model.Student, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT(token, "another-secret")
	assert.Error(t, err)

	expired, err := GenerateJWT("u1", "u1@example.com", model.Student, testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, testSecret)
	assert.Error(t, err)

	_, err = ParseJWT("not-a-token", testSecret)
	assert.Error(t, err)
}
