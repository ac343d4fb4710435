package services

import (
	"context"

	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/logger"
	"github.com/shiftbot/core/internal/ports"
)

// SystemService exposes settings and derived statistics
type SystemService struct {
	store  ports.Datastore
	logger *logger.Logger
}

// NewSystemService creates a new system service
func NewSystemService(store ports.Datastore, logger *logger.Logger) *SystemService {
	return &SystemService{
		store:  store,
		logger: logger,
	}
}

// GetSettings returns the settings singleton.
func (s *SystemService) GetSettings(ctx context.Context) (entities.SystemSettings, error) {
	return s.store.GetSettings(ctx)
}

// UpdateSettings merges a tagged patch into the stored settings.
func (s *SystemService) UpdateSettings(ctx context.Context, patch entities.SettingsPatch) (entities.SystemSettings, error) {
	updated, err := s.store.UpdateSettings(ctx, patch)
	if err != nil {
		return entities.SystemSettings{}, err
	}
	s.logger.Infow("Settings updated")
	return updated, nil
}

// Statistics returns counts derived from the live snapshot.
func (s *SystemService) Statistics(ctx context.Context) (*entities.Statistics, error) {
	return s.store.Statistics(ctx)
}
