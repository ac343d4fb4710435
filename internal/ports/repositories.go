package ports

import (
	"context"

	"github.com/shiftbot/core/internal/domain/entities"
)

// UserStore defines the interface for user record operations
type UserStore interface {
	// GetUser returns entities.ErrUserNotFound for an unknown ID.
	GetUser(ctx context.Context, lineUserID string) (*entities.User, error)
	// SaveUser upserts with merge semantics: patch fields overlay the
	// existing record, which overlays the defaults for a new user.
	SaveUser(ctx context.Context, lineUserID string, patch entities.UserPatch) (*entities.User, error)
	ListUsers(ctx context.Context) ([]entities.User, error)
	ListActiveUsers(ctx context.Context) ([]entities.User, error)
	DeactivateUser(ctx context.Context, lineUserID string) error
}

// ShiftStore defines the interface for shift record operations
type ShiftStore interface {
	GetShifts(ctx context.Context, date string) ([]entities.Shift, error)
	GetMonthlyShifts(ctx context.Context, month string) ([]entities.Shift, error)
	SaveShift(ctx context.Context, date string, draft entities.ShiftDraft) (*entities.Shift, error)
	UpdateShift(ctx context.Context, date, shiftID string, patch entities.ShiftPatch) (*entities.Shift, error)
	// DeleteShift reports whether a row was actually removed.
	DeleteShift(ctx context.Context, date, shiftID string) (bool, error)
	// FindShiftsByUser walks every calendar day in [startDate, endDate].
	FindShiftsByUser(ctx context.Context, lineUserID, startDate, endDate string) ([]entities.Shift, error)
}

// NoticeStore defines the interface for shared notice operations
type NoticeStore interface {
	GetActiveNotices(ctx context.Context) ([]entities.Notice, error)
	SaveNotice(ctx context.Context, draft entities.NoticeDraft) (*entities.Notice, error)
}

// ShiftRequestStore defines the interface for monthly availability requests
type ShiftRequestStore interface {
	SaveShiftRequest(ctx context.Context, month, lineUserID string, input entities.ShiftRequestInput) (*entities.ShiftRequest, error)
	GetShiftRequests(ctx context.Context, month string) (map[string]entities.ShiftRequest, error)
}

// MessageStore defines the interface for daily message board entries
type MessageStore interface {
	SaveDailyMessage(ctx context.Context, date string, draft entities.MessageDraft) (*entities.DailyMessage, error)
	GetDailyMessages(ctx context.Context, date string) ([]entities.DailyMessage, error)
}

// SubstituteStore defines the interface for substitute request operations
type SubstituteStore interface {
	SaveSubstituteRequest(ctx context.Context, draft entities.SubstituteDraft) (*entities.SubstituteRequest, error)
	UpdateSubstituteRequest(ctx context.Context, requestID string, patch entities.SubstitutePatch) (*entities.SubstituteRequest, error)
	ListSubstituteRequests(ctx context.Context) ([]entities.SubstituteRequest, error)
}

// SettingsStore defines the interface for the settings singleton
type SettingsStore interface {
	GetSettings(ctx context.Context) (entities.SystemSettings, error)
	UpdateSettings(ctx context.Context, patch entities.SettingsPatch) (entities.SystemSettings, error)
}

// PositionStore defines the interface for position lookups
type PositionStore interface {
	// GetPositions returns positions sorted ascending by SortOrder.
	GetPositions(ctx context.Context) ([]entities.Position, error)
	GetPositionByID(ctx context.Context, positionID string) (*entities.Position, error)
}

// Datastore is the full persistence port implemented by the embedded store.
type Datastore interface {
	UserStore
	ShiftStore
	NoticeStore
	ShiftRequestStore
	MessageStore
	SubstituteStore
	SettingsStore
	PositionStore

	// EnrichShifts attaches the matching active user and position to each
	// shift. Read-only; dangling references are left nil.
	EnrichShifts(ctx context.Context, shifts []entities.Shift) ([]entities.EnrichedShift, error)
	// Statistics derives counts from the current snapshot rather than the
	// stored running counters.
	Statistics(ctx context.Context) (*entities.Statistics, error)
	// HealthCheck verifies the snapshot can be loaded.
	HealthCheck(ctx context.Context) error
}
