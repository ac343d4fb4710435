package repository

import (
	"context"

	"github.com/shiftbot/core/internal/domain/entities"
)

// GetActiveNotices returns notices that are switched on and whose date range
// covers today. Priority does not affect inclusion.
func (s *Store) GetActiveNotices(ctx context.Context) ([]entities.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	today := s.today()
	active := make([]entities.Notice, 0)
	for _, n := range s.data.SharedNotices {
		if !n.IsActive {
			continue
		}
		if n.StartDate > today {
			continue
		}
		if n.EndDate != "" && n.EndDate < today {
			continue
		}
		active = append(active, n)
	}
	return active, nil
}

// SaveNotice appends a new notice. New notices always start active.
func (s *Store) SaveNotice(ctx context.Context, draft entities.NoticeDraft) (*entities.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	notice := entities.Notice{
		ID:        s.newID("notice"),
		Title:     draft.Title,
		Content:   draft.Content,
		Category:  draft.Category,
		Priority:  draft.Priority,
		StartDate: draft.StartDate,
		EndDate:   draft.EndDate,
		IsActive:  true,
		CreatedBy: draft.CreatedBy,
		CreatedAt: s.now(),
	}
	s.data.SharedNotices = append(s.data.SharedNotices, notice)

	if err := s.persist(); err != nil {
		return nil, err
	}
	return &notice, nil
}
