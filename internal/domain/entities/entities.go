package entities

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUserNotFound       = errors.New("user not found")
	ErrShiftNotFound      = errors.New("shift not found")
	ErrPositionNotFound   = errors.New("position not found")
	ErrNoticeNotFound     = errors.New("notice not found")
	ErrRequestNotFound    = errors.New("substitute request not found")
	ErrInvalidSettingKey  = errors.New("invalid setting key")
	ErrInvalidSetting     = errors.New("invalid setting value")
	ErrInvalidTransition  = errors.New("invalid shift status transition")
	ErrInvalidDate        = errors.New("invalid date format")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Enums and types
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleStaff UserRole = "staff"
)

type ShiftStatus string

const (
	ShiftStatusDraft     ShiftStatus = "draft"
	ShiftStatusPreview   ShiftStatus = "preview"
	ShiftStatusConfirmed ShiftStatus = "confirmed"
	ShiftStatusLocked    ShiftStatus = "locked"
)

type NoticeCategory string

const (
	NoticeCategoryEquipment NoticeCategory = "equipment"
	NoticeCategoryStaff     NoticeCategory = "staff"
	NoticeCategoryOperation NoticeCategory = "operation"
	NoticeCategoryOther     NoticeCategory = "other"
)

type NoticePriority string

const (
	NoticePriorityLow    NoticePriority = "low"
	NoticePriorityMedium NoticePriority = "medium"
	NoticePriorityHigh   NoticePriority = "high"
	NoticePriorityUrgent NoticePriority = "urgent"
)

type MessageType string

const (
	MessageTypeChat       MessageType = "chat"
	MessageTypeLineImport MessageType = "line_import"
	MessageTypeAdminMemo  MessageType = "admin_memo"
	MessageTypeSystem     MessageType = "system"
)

type SubstituteStatus string

const (
	SubstituteStatusPending   SubstituteStatus = "pending"
	SubstituteStatusAccepted  SubstituteStatus = "accepted"
	SubstituteStatusRejected  SubstituteStatus = "rejected"
	SubstituteStatusCancelled SubstituteStatus = "cancelled"
)

type ShiftRequestStatus string

const (
	ShiftRequestStatusSubmitted ShiftRequestStatus = "submitted"
	ShiftRequestStatusProcessed ShiftRequestStatus = "processed"
)

type AnalysisSeverity string

const (
	SeverityNormal   AnalysisSeverity = "normal"
	SeverityWarning  AnalysisSeverity = "warning"
	SeverityCritical AnalysisSeverity = "critical"
)

// User represents a staff member identified by their LINE user ID. Users are
// never physically removed; deactivation flips IsActive and stamps LeftAt.
type User struct {
	LineUserID  string           `json:"lineUserId"`
	DisplayName string           `json:"displayName"`
	RealName    string           `json:"realName,omitempty"`
	Role        UserRole         `json:"role"`
	IsActive    bool             `json:"isActive"`
	JoinedAt    time.Time        `json:"joinedAt"`
	LastSeenAt  time.Time        `json:"lastSeenAt"`
	LeftAt      *time.Time       `json:"leftAt,omitempty"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
}

// UserPreferences holds per-user notification settings
type UserPreferences struct {
	Notifications bool   `json:"notifications"`
	Timezone      string `json:"timezone"`
}

// Position represents a work station. Order is significant: SortOrder drives
// display and staffing calculations.
type Position struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	SortOrder int    `json:"sortOrder"`
	// RequiredStaff maps an hour ("09".."21") to the head count needed.
	RequiredStaff map[string]int `json:"requiredStaff,omitempty"`
}

// Shift represents one assignment of a user to a position on a calendar day.
/// StartTime/EndTime are HH:MM, end exclusive.
type Shift struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId"`
	PositionID   string      `json:"positionId"`
	StartTime    string      `json:"startTime"`
	EndTime      string      `json:"endTime"`
	BreakMinutes int         `json:"breakMinutes"`
	Status       ShiftStatus `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    *time.Time  `json:"updatedAt,omitempty"`
	CreatedBy    string      `json:"createdBy,omitempty"`
	Notes        string      `json:"notes,omitempty"`
}

// ShiftPatch carries the mutable subset of Shift for merge-style updates.
// Nil fields are left untouched.
type ShiftPatch struct {
	UserID       *string      `json:"userId,omitempty"`
	PositionID   *string      `json:"positionId,omitempty"`
	StartTime    *string      `json:"startTime,omitempty" validate:"omitempty,len=5"`
	EndTime      *string      `json:"endTime,omitempty" validate:"omitempty,len=5"`
	BreakMinutes *int         `json:"breakMinutes,omitempty" validate:"omitempty,gte=0"`
	Status       *ShiftStatus `json:"status,omitempty" validate:"omitempty,oneof=draft preview confirmed locked"`
	Notes        *string      `json:"notes,omitempty"`
}

// ShiftRequest is a staff member's submitted availability for a month.
type ShiftRequest struct {
	Month       string             `json:"month"`
	UserID      string             `json:"userId"`
	RequestText string             `json:"requestText"`
	ParsedData  ParsedShiftData    `json:"parsedData"`
	SubmittedAt time.Time          `json:"submittedAt"`
	Status      ShiftRequestStatus `json:"status"`
	Notes       string             `json:"notes,omitempty"`
}

// ParsedShiftData is the best-effort structured reading of a free-text
// shift request.
type ParsedShiftData struct {
	Weekdays         *DayPreference `json:"weekdays,omitempty"`
	Weekends         *DayPreference `json:"weekends,omitempty"`
	TimeRange        *TimeRange     `json:"timeRange,omitempty"`
	SpecificDays     []string       `json:"specificDays,omitempty"`
	UnavailableDates []string       `json:"unavailableDates,omitempty"`
	Notes            []string       `json:"notes,omitempty"`
}

// DayPreference records availability for a class of days.
type DayPreference struct {
	Available      bool   `json:"available"`
	PreferredStart string `json:"preferredStart,omitempty"`
	PreferredEnd   string `json:"preferredEnd,omitempty"`
}

/// TimeRange is an HH:MM interval.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Notice represents a shared announcement. A notice is active for display
// iff IsActive and today falls within [StartDate, EndDate or forever].
type Notice struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Category  NoticeCategory `json:"category"`
	Priority  NoticePriority `json:"priority"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate,omitempty"`
	IsActive  bool           `json:"isActive"`
	CreatedBy string         `json:"createdBy,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

// DailyMessage is one entry in a day's message board.
type DailyMessage struct {
	ID          string      `json:"id"`
	UserName    string      `json:"userName"`
	Message     string      `json:"message"`
	MessageType MessageType `json:"messageType"`
	IsPrivate   bool        `json:"isPrivate"`
	CreatedAt   time.Time   `json:"createdAt"`
	UserID      string      `json:"userId,omitempty"`
}

// SubstituteRequest asks another staff member to cover a shift.
type SubstituteRequest struct {
	ID           string           `json:"id"`
	ShiftID      string           `json:"shiftId,omitempty"`
	RequesterID  string           `json:"requesterId"`
	SubstituteID string           `json:"substituteId,omitempty"`
	TargetDate   string           `json:"targetDate"`
	Reason       string           `json:"reason"`
	Status       SubstituteStatus `json:"status"`
	RequestedAt  time.Time        `json:"requestedAt"`
	RespondedAt  *time.Time       `json:"respondedAt,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

// SubstitutePatch carries the mutable subset of SubstituteRequest.
type SubstitutePatch struct {
	SubstituteID *string           `json:"substituteId,omitempty"`
	Status       *SubstituteStatus `json:"status,omitempty" validate:"omitempty,oneof=pending accepted rejected cancelled"`
	Notes        *string           `json:"notes,omitempty"`
}

// SystemSettings is the singleton configuration record stored alongside the
// data it governs.
type SystemSettings struct {
	StoreName        string                     `json:"storeName"`
	BusinessHours    string                     `json:"businessHours"`
	AdminLineUserID  string                     `json:"adminLineUserId"`
	ShiftDeadlineDay int                        `json:"shiftDeadlineDay"`
	AutoBreakEnabled bool                       `json:"autoBreakEnabled"`
	BreakRules       map[string]int             `json:"breakRules"`
	Timezone         string                     `json:"timezone"`
	SpecialEvents    []SpecialEvent             `json:"specialEvents,omitempty"`
	DynamicHolidays  map[string]HolidayOverride `json:"dynamicHolidays,omitempty"`
}

// SpecialEvent temporarily raises staffing requirements over a date range.
type SpecialEvent struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	StartDate       string         `json:"startDate"`
	EndDate         string         `json:"endDate"`
	AdditionalStaff map[string]int `json:"additionalStaff"`
	Description     string         `json:"description,omitempty"`
	IsActive        bool           `json:"isActive"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// HolidayOverride marks a date as a holiday (or explicitly not one).
type HolidayOverride struct {
	Name      string `json:"name,omitempty"`
	IsHoliday bool   `json:"isHoliday"`
}

// Metadata holds derived counters and bookkeeping. The counters are updated
// on mutation but never authoritative; statistics recompute from the data.
type Metadata struct {
	Version       string     `json:"version"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastUpdatedAt time.Time  `json:"lastUpdatedAt"`
	TotalUsers    int        `json:"totalUsers"`
	TotalShifts   int        `json:"totalShifts"`
	LastBackupAt  *time.Time `json:"lastBackupAt,omitempty"`
}

// Dataset is the complete persisted document: everything the store owns,
// serialized as a single JSON file.
type Dataset struct {
	Users              map[string]User                    `json:"users"`
	Positions          []Position                         `json:"positions"`
	Shifts             map[string][]Shift                 `json:"shifts"`
	ShiftRequests      map[string]map[string]ShiftRequest `json:"shiftRequests"`
	SharedNotices      []Notice                           `json:"sharedNotices"`
	DailyMessages      map[string][]DailyMessage          `json:"dailyMessages"`
	SubstituteRequests []SubstituteRequest                `json:"substituteRequests"`
	Settings           SystemSettings                     `json:"settings"`
	Metadata           Metadata                           `json:"metadata"`
}

// EnrichedShift is a Shift with its user and position attached for display.
// Missing references stay nil rather than erroring.
type EnrichedShift struct {
	Shift
	User     *User     `json:"user,omitempty"`
	Position *Position `json:"position,omitempty"`
}

// Statistics is derived from the current snapshot, never from the stored
// running counters.
type Statistics struct {
	ActiveUsers   int       `json:"totalUsers"`
	TodayShifts   int       `json:"todayShifts"`
	ActiveNotices int       `json:"activeNotices"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// ShiftAnalysis reports staffing coverage for one date.
type ShiftAnalysis struct {
	Date      string           `json:"date"`
	Shortages []ShiftShortage  `json:"shortages"`
	Overages  []ShiftOverage   `json:"overages"`
	Warnings  []string         `json:"warnings"`
	Severity  AnalysisSeverity `json:"severity"`
}

// ShiftShortage flags an hour where a position is under its required count.
type ShiftShortage struct {
	Time       string `json:"time"`
	Position   string `json:"position"`
	PositionID string `json:"positionId"`
	Required   int    `json:"required"`
	Actual     int    `json:"actual"`
	Shortage   int    `json:"shortage"`
}

// ShiftOverage flags an hour where a position exceeds its required count.
type ShiftOverage struct {
	Time       string `json:"time"`
	Position   string `json:"position"`
	PositionID string `json:"positionId"`
	Required   int    `json:"required"`
	Actual     int    `json:"actual"`
	Overage    int    `json:"overage"`
}

// UserPatch carries the mutable subset of User for merge-style upserts.
// Nil fields are left untouched; unset fields on a brand-new user fall back
// to the store defaults.
type UserPatch struct {
	DisplayName *string          `json:"displayName,omitempty"`
	RealName    *string          `json:"realName,omitempty"`
	Role        *UserRole        `json:"role,omitempty" validate:"omitempty,oneof=admin staff"`
	IsActive    *bool            `json:"isActive,omitempty"`
	LastSeenAt  *time.Time       `json:"lastSeenAt,omitempty"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
}

// ShiftDraft is the caller-supplied part of a new Shift; the store generates
// the ID and CreatedAt.
type ShiftDraft struct {
	UserID       string      `json:"userId" validate:"required"`
	PositionID   string      `json:"positionId" validate:"required"`
	StartTime    string      `json:"startTime" validate:"required,len=5"`
	EndTime      string      `json:"endTime" validate:"required,len=5"`
	BreakMinutes int         `json:"breakMinutes" validate:"gte=0"`
	Status       ShiftStatus `json:"status" validate:"omitempty,oneof=draft preview confirmed locked"`
	CreatedBy    string      `json:"createdBy,omitempty"`
	Notes        string      `json:"notes,omitempty"`
}

// NoticeDraft is the caller-supplied part of a new Notice.
type NoticeDraft struct {
	Title     string         `json:"title" validate:"required"`
	Content   string         `json:"content" validate:"required"`
	Category  NoticeCategory `json:"category" validate:"required,oneof=equipment staff operation other"`
	Priority  NoticePriority `json:"priority" validate:"required,oneof=low medium high urgent"`
	StartDate string         `json:"startDate" validate:"required,len=10"`
	EndDate   string         `json:"endDate,omitempty" validate:"omitempty,len=10"`
	CreatedBy string         `json:"createdBy,omitempty"`
}

// MessageDraft is the caller-supplied part of a new DailyMessage.
type MessageDraft struct {
	UserName    string      `json:"userName" validate:"required"`
	Message     string      `json:"message" validate:"required"`
	MessageType MessageType `json:"messageType" validate:"required,oneof=chat line_import admin_memo system"`
	IsPrivate   bool        `json:"isPrivate"`
	UserID      string      `json:"userId,omitempty"`
}

// SubstituteDraft is the caller-supplied part of a new SubstituteRequest.
type SubstituteDraft struct {
	ShiftID      string `json:"shiftId,omitempty"`
	RequesterID  string `json:"requesterId" validate:"required"`
	SubstituteID string `json:"substituteId,omitempty"`
	TargetDate   string `json:"targetDate" validate:"required,len=10"`
	Reason       string `json:"reason"`
	Notes        string `json:"notes,omitempty"`
}

// ShiftRequestInput is the caller-supplied part of a ShiftRequest slot; the
// store stamps SubmittedAt and resets Status to submitted on every upsert.
type ShiftRequestInput struct {
	RequestText string          `json:"requestText" validate:"required"`
	ParsedData  ParsedShiftData `json:"parsedData"`
	Notes       string          `json:"notes,omitempty"`
}

// SettingsPatch carries one tagged record per settings key. Nil fields are
// left untouched; a set field replaces the stored value wholesale.
type SettingsPatch struct {
	StoreName        *string                     `json:"storeName,omitempty"`
	BusinessHours    *string                     `json:"businessHours,omitempty"`
	AdminLineUserID  *string                     `json:"adminLineUserId,omitempty"`
	ShiftDeadlineDay *int                        `json:"shiftDeadlineDay,omitempty" validate:"omitempty,gte=1,lte=28"`
	AutoBreakEnabled *bool                       `json:"autoBreakEnabled,omitempty"`
	BreakRules       *map[string]int             `json:"breakRules,omitempty"`
	Timezone         *string                     `json:"timezone,omitempty"`
	SpecialEvents    *[]SpecialEvent             `json:"specialEvents,omitempty"`
	DynamicHolidays  *map[string]HolidayOverride `json:"dynamicHolidays,omitempty"`
}
