package services

import (
	"context"

	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/logger"
	"github.com/shiftbot/core/internal/ports"
)

// NoticeService handles shared notices and the daily message board
type NoticeService struct {
	store  ports.Datastore
	logger *logger.Logger
}

// NewNoticeService creates a new notice service
func NewNoticeService(store ports.Datastore, logger *logger.Logger) *NoticeService {
	return &NoticeService{
		store:  store,
		logger: logger,
	}
}

// GetActiveNotices lists notices visible today.
func (s *NoticeService) GetActiveNotices(ctx context.Context) ([]entities.Notice, error) {
	return s.store.GetActiveNotices(ctx)
}

// CreateNotice posts a new shared notice.
func (s *NoticeService) CreateNotice(ctx context.Context, draft entities.NoticeDraft) (*entities.Notice, error) {
	notice, err := s.store.SaveNotice(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("Notice created", "notice_id", notice.ID, "priority", notice.Priority)
	return notice, nil
}

// GetDailyMessages lists one day's message board.
func (s *NoticeService) GetDailyMessages(ctx context.Context, date string) ([]entities.DailyMessage, error) {
	return s.store.GetDailyMessages(ctx, date)
}

// PostDailyMessage appends to a day's message board.
func (s *NoticeService) PostDailyMessage(ctx context.Context, date string, draft entities.MessageDraft) (*entities.DailyMessage, error) {
	return s.store.SaveDailyMessage(ctx, date, draft)
}
