package repository

import (
	"context"
	"sort"

	"github.com/shiftbot/core/internal/domain/entities"
)

// GetSettings returns the settings singleton.
func (s *Store) GetSettings(ctx context.Context) (entities.SystemSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return entities.SystemSettings{}, err
	}
	return copySettings(s.data.Settings), nil
}

// UpdateSettings merges the tagged per-key patch into the stored settings.
// Each call is a full load+merge+save round trip.
func (s *Store) UpdateSettings(ctx context.Context, patch entities.SettingsPatch) (entities.SystemSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return entities.SystemSettings{}, err
	}

	cfg := &s.data.Settings
	if patch.StoreName != nil {
		cfg.StoreName = *patch.StoreName
	}
	if patch.BusinessHours != nil {
		cfg.BusinessHours = *patch.BusinessHours
	}
	if patch.AdminLineUserID != nil {
		cfg.AdminLineUserID = *patch.AdminLineUserID
	}
	if patch.ShiftDeadlineDay != nil {
		cfg.ShiftDeadlineDay = *patch.ShiftDeadlineDay
	}
	if patch.AutoBreakEnabled != nil {
		cfg.AutoBreakEnabled = *patch.AutoBreakEnabled
	}
	if patch.BreakRules != nil {
		cfg.BreakRules = *patch.BreakRules
	}
	if patch.Timezone != nil {
		cfg.Timezone = *patch.Timezone
	}
	if patch.SpecialEvents != nil {
		cfg.SpecialEvents = *patch.SpecialEvents
	}
	if patch.DynamicHolidays != nil {
		cfg.DynamicHolidays = *patch.DynamicHolidays
	}

	if err := s.persist(); err != nil {
		return entities.SystemSettings{}, err
	}
	return copySettings(s.data.Settings), nil
}

// GetPositions returns all positions sorted ascending by SortOrder.
func (s *Store) GetPositions(ctx context.Context) ([]entities.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	positions := make([]entities.Position, 0, len(s.data.Positions))
	for _, p := range s.data.Positions {
		positions = append(positions, copyPosition(p))
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].SortOrder < positions[j].SortOrder
	})
	return positions, nil
}

// GetPositionByID returns one position or entities.ErrPositionNotFound.
func (s *Store) GetPositionByID(ctx context.Context, positionID string) (*entities.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	for _, p := range s.data.Positions {
		if p.ID == positionID {
			out := copyPosition(p)
			return &out, nil
		}
	}
	return nil, entities.ErrPositionNotFound
}
