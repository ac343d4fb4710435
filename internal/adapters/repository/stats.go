package repository

import (
	"context"
	"sort"

	"github.com/shiftbot/core/internal/domain/entities"
)

// EnrichShifts attaches the matching active user and position to each shift
// for display. Dangling references stay nil; nothing is persisted.
func (s *Store) EnrichShifts(ctx context.Context, shifts []entities.Shift) ([]entities.EnrichedShift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	enriched := make([]entities.EnrichedShift, 0, len(shifts))
	for _, sh := range shifts {
		e := entities.EnrichedShift{Shift: sh}
		if u, ok := s.data.Users[sh.UserID]; ok && u.IsActive {
			cu := copyUser(u)
			e.User = &cu
		}
		for _, p := range s.data.Positions {
			if p.ID == sh.PositionID {
				cp := copyPosition(p)
				e.Position = &cp
				break
			}
		}
		enriched = append(enriched, e)
	}
	return enriched, nil
}

// Statistics derives headline counts from the current snapshot. The stored
// running counters are never trusted for these.
func (s *Store) Statistics(ctx context.Context) (*entities.Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	stats := &entities.Statistics{
		TodayShifts: len(s.data.Shifts[s.today()]),
		LastUpdated: s.data.Metadata.LastUpdatedAt,
	}
	for _, u := range s.data.Users {
		if u.IsActive {
			stats.ActiveUsers++
		}
	}
	for _, n := range s.data.SharedNotices {
		if n.IsActive {
			stats.ActiveNotices++
		}
	}
	return stats, nil
}

// HealthCheck loads the snapshot to confirm the store is serviceable.
func (s *Store) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureFresh()
}

// Snapshot returns a serializable view of collection sizes for diagnostics.
func (s *Store) Snapshot(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	shiftDays := make([]string, 0, len(s.data.Shifts))
	for d := range s.data.Shifts {
		shiftDays = append(shiftDays, d)
	}
	sort.Strings(shiftDays)
	total := 0
	for _, d := range shiftDays {
		total += len(s.data.Shifts[d])
	}
	return map[string]int{
		"users":              len(s.data.Users),
		"positions":          len(s.data.Positions),
		"shiftDays":          len(shiftDays),
		"shifts":             total,
		"notices":            len(s.data.SharedNotices),
		"substituteRequests": len(s.data.SubstituteRequests),
	}, nil
}
