package repository

import (
	"context"

	"github.com/shiftbot/core/internal/domain/entities"
)

// SaveDailyMessage appends an entry to a day's message board.
func (s *Store) SaveDailyMessage(ctx context.Context, date string, draft entities.MessageDraft) (*entities.DailyMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	msg := entities.DailyMessage{
		ID:          s.newID("msg"),
		UserName:    draft.UserName,
		Message:     draft.Message,
		MessageType: draft.MessageType,
		IsPrivate:   draft.IsPrivate,
		CreatedAt:   s.now(),
		UserID:      draft.UserID,
	}
	s.data.DailyMessages[date] = append(s.data.DailyMessages[date], msg)

	if err := s.persist(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetDailyMessages returns a day's message board in insertion order.
func (s *Store) GetDailyMessages(ctx context.Context, date string) ([]entities.DailyMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	return append([]entities.DailyMessage(nil), s.data.DailyMessages[date]...), nil
}
