package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/config"
	"github.com/shiftbot/core/internal/infrastructure/logger"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(
		config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "shiftbot"},
		config.AdminConfig{Username: "manager", PasswordHash: string(hash)},
		logger.NewNop(),
	)
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc := newAuthService(t)

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "manager", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "manager", claims.Username)
	assert.Equal(t, entities.UserRoleAdmin, claims.Role)
	assert.Equal(t, "shiftbot", claims.Issuer)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "manager", Password: "wrong"})
	require.ErrorIs(t, err, entities.ErrUnauthorized)
}

func TestLoginRejectsUnknownUsername(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "intruder", Password: "correct horse"})
	require.ErrorIs(t, err, entities.ErrUnauthorized)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc := newAuthService(t)
	other := NewAuthService(
		config.JWTConfig{Secret: "different-secret", ExpiresIn: time.Hour, Issuer: "shiftbot"},
		config.AdminConfig{Username: "manager", PasswordHash: "x"},
		logger.NewNop(),
	)

	token, err := svc.generateAccessToken("manager")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
}
