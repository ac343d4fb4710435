package repository

import (
	"context"
	"sort"

	"github.com/shiftbot/core/internal/domain/entities"
)

// GetUser returns the user for a LINE user ID.
func (s *Store) GetUser(ctx context.Context, lineUserID string) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	u, ok := s.data.Users[lineUserID]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	out := copyUser(u)
	return &out, nil
}

// SaveUser upserts a user with merge semantics: patch fields overlay the
// existing record, which overlays the hard-coded defaults. The total-users
// counter moves only on first creation.
func (s *Store) SaveUser(ctx context.Context, lineUserID string, patch entities.UserPatch) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	now := s.now()
	existing, found := s.data.Users[lineUserID]
	u := entities.User{
		LineUserID:  lineUserID,
		DisplayName: "",
		Role:        entities.UserRoleStaff,
		IsActive:    true,
		JoinedAt:    now,
		LastSeenAt:  now,
	}
	if found {
		u = existing
		u.LineUserID = lineUserID
	}
	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
	}
	if patch.RealName != nil {
		u.RealName = *patch.RealName
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if patch.LastSeenAt != nil {
		u.LastSeenAt = *patch.LastSeenAt
	}
	if patch.Preferences != nil {
		p := *patch.Preferences
		u.Preferences = &p
	}
	s.data.Users[lineUserID] = u

	if !found {
		s.data.Metadata.TotalUsers++
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	out := copyUser(u)
	return &out, nil
}

// ListUsers returns every user record, active or not, ordered by join time.
func (s *Store) ListUsers(ctx context.Context) ([]entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	users := make([]entities.User, 0, len(s.data.Users))
	for _, u := range s.data.Users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].JoinedAt.Equal(users[j].JoinedAt) {
			return users[i].LineUserID < users[j].LineUserID
		}
		return users[i].JoinedAt.Before(users[j].JoinedAt)
	})
	return users, nil
}

// ListActiveUsers returns users with IsActive set.
func (s *Store) ListActiveUsers(ctx context.Context) ([]entities.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	active := users[:0]
	for _, u := range users {
		if u.IsActive {
			active = append(active, u)
		}
	}
	return active, nil
}

// DeactivateUser soft-deletes a user: IsActive flips off and LeftAt is
// stamped. Unknown IDs are a no-op.
func (s *Store) DeactivateUser(ctx context.Context, lineUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return err
	}
	u, ok := s.data.Users[lineUserID]
	if !ok {
		return nil
	}
	now := s.now()
	u.IsActive = false
	u.LeftAt = &now
	s.data.Users[lineUserID] = u
	return s.persist()
}
