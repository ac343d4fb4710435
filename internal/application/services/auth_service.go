package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/config"
	"github.com/shiftbot/core/internal/infrastructure/logger"
)

// Claims represents the JWT claims for the management API
type Claims struct {
	Username string            `json:"username"`
	Role     entities.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// LoginRequest is the management login payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries an issued token
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthService authenticates the schedule admin against the configured
// credentials and issues bearer tokens for the management API.
type AuthService struct {
	jwtConfig   config.JWTConfig
	adminConfig config.AdminConfig
	logger      *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(jwtConfig config.JWTConfig, adminConfig config.AdminConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		jwtConfig:   jwtConfig,
		adminConfig: adminConfig,
		logger:      logger,
	}
}

// Login verifies the admin credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Username != s.adminConfig.Username || s.adminConfig.PasswordHash == "" {
		s.logger.Warnw("Login attempt with unknown username", "username", req.Username)
		return nil, entities.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminConfig.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warnw("Login attempt with wrong password", "username", req.Username)
		return nil, entities.ErrUnauthorized
	}

	token, err := s.generateAccessToken(req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtConfig.ExpiresIn.Seconds()),
	}, nil
}

// ValidateToken parses and verifies a bearer token.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		Role:     entities.UserRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.jwtConfig.Issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.ExpiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtConfig.Secret))
}
