package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/logger"
	"github.com/shiftbot/core/internal/ports"
)

// UserService handles staff roster operations
type UserService struct {
	store  ports.Datastore
	logger *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(store ports.Datastore, logger *logger.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger,
	}
}

// GetUser retrieves one user by LINE user ID.
func (s *UserService) GetUser(ctx context.Context, lineUserID string) (*entities.User, error) {
	return s.store.GetUser(ctx, lineUserID)
}

// ListUsers returns the whole roster.
func (s *UserService) ListUsers(ctx context.Context) ([]entities.User, error) {
	return s.store.ListUsers(ctx)
}

// ListActiveUsers returns staff who have not left.
func (s *UserService) ListActiveUsers(ctx context.Context) ([]entities.User, error) {
	return s.store.ListActiveUsers(ctx)
}

// SaveUser upserts a user record.
func (s *UserService) SaveUser(ctx context.Context, lineUserID string, patch entities.UserPatch) (*entities.User, error) {
	return s.store.SaveUser(ctx, lineUserID, patch)
}

// RegisterFromLine ensures a user record exists for a LINE contact, creating
// one with a default display name on first sight. Returns the record and
// whether it was newly created.
func (s *UserService) RegisterFromLine(ctx context.Context, lineUserID, displayName string) (*entities.User, bool, error) {
	existing, err := s.store.GetUser(ctx, lineUserID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, entities.ErrUserNotFound) {
		return nil, false, err
	}

	if displayName == "" {
		displayName = "LINE User"
	}
	role := entities.UserRoleStaff
	active := true
	user, err := s.store.SaveUser(ctx, lineUserID, entities.UserPatch{
		DisplayName: &displayName,
		Role:        &role,
		IsActive:    &active,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to register user: %w", err)
	}
	s.logger.Infow("New user registered", "line_user_id", lineUserID)
	return user, true, nil
}

// TouchLastSeen stamps a user's last activity time.
func (s *UserService) TouchLastSeen(ctx context.Context, lineUserID string) error {
	now := time.Now()
	_, err := s.store.SaveUser(ctx, lineUserID, entities.UserPatch{LastSeenAt: &now})
	return err
}

// Deactivate soft-deletes a user when they leave the group or unfollow.
func (s *UserService) Deactivate(ctx context.Context, lineUserID string) error {
	if err := s.store.DeactivateUser(ctx, lineUserID); err != nil {
		return err
	}
	s.logger.Infow("User deactivated", "line_user_id", lineUserID)
	return nil
}

// Promote grants the admin role to an existing user.
func (s *UserService) Promote(ctx context.Context, lineUserID string) (*entities.User, error) {
	if _, err := s.store.GetUser(ctx, lineUserID); err != nil {
		return nil, err
	}
	role := entities.UserRoleAdmin
	return s.store.SaveUser(ctx, lineUserID, entities.UserPatch{Role: &role})
}
