package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/logger"
	"github.com/shiftbot/core/internal/ports"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
var monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// DayView aggregates everything the date page renders.
type DayView struct {
	Date      string                   `json:"date"`
	Shifts    []entities.EnrichedShift `json:"shifts"`
	Notices   []entities.Notice        `json:"notices"`
	Messages  []entities.DailyMessage  `json:"messages"`
	Positions []entities.Position      `json:"positions"`
	Users     []entities.User          `json:"users"`
}

// ShiftService handles schedule operations
type ShiftService struct {
	store  ports.Datastore
	logger *logger.Logger
}

// NewShiftService creates a new shift service
func NewShiftService(store ports.Datastore, logger *logger.Logger) *ShiftService {
	return &ShiftService{
		store:  store,
		logger: logger,
	}
}

// ValidDate reports whether a string is a YYYY-MM-DD calendar date.
func ValidDate(date string) bool {
	if !dateRe.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

// ValidMonth reports whether a string is a YYYY-MM month.
func ValidMonth(month string) bool {
	if !monthRe.MatchString(month) {
		return false
	}
	_, err := time.Parse("2006-01", month)
	return err == nil
}

// GetDayView fetches the full view for one date. A failed sub-query degrades
// to an empty slice for that slot while the sibling queries still succeed; a
// failed load of the shifts themselves is fatal to the call.
func (s *ShiftService) GetDayView(ctx context.Context, date string) (*DayView, error) {
	if !ValidDate(date) {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidDate, date)
	}

	shifts, err := s.store.GetShifts(ctx, date)
	if err != nil {
		return nil, err
	}

	view := &DayView{Date: date}
	view.Shifts, err = s.store.EnrichShifts(ctx, shifts)
	if err != nil {
		s.logger.Warnw("Shift enrichment failed, serving bare shifts", "date", date, "error", err)
		view.Shifts = make([]entities.EnrichedShift, 0, len(shifts))
		for _, sh := range shifts {
			view.Shifts = append(view.Shifts, entities.EnrichedShift{Shift: sh})
		}
	}
	if view.Notices, err = s.store.GetActiveNotices(ctx); err != nil {
		s.logger.Warnw("Notice query failed", "date", date, "error", err)
		view.Notices = []entities.Notice{}
	}
	if view.Messages, err = s.store.GetDailyMessages(ctx, date); err != nil {
		s.logger.Warnw("Message query failed", "date", date, "error", err)
		view.Messages = []entities.DailyMessage{}
	}
	if view.Positions, err = s.store.GetPositions(ctx); err != nil {
		s.logger.Warnw("Position query failed", "date", date, "error", err)
		view.Positions = []entities.Position{}
	}
	if view.Users, err = s.store.ListUsers(ctx); err != nil {
		s.logger.Warnw("User query failed", "date", date, "error", err)
		view.Users = []entities.User{}
	}
	return view, nil
}

// GetShifts lists one date's shifts.
func (s *ShiftService) GetShifts(ctx context.Context, date string) ([]entities.Shift, error) {
	return s.store.GetShifts(ctx, date)
}

// GetMonthlyShifts lists every shift within a month.
func (s *ShiftService) GetMonthlyShifts(ctx context.Context, month string) ([]entities.Shift, error) {
	if !ValidMonth(month) {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidDate, month)
	}
	return s.store.GetMonthlyShifts(ctx, month)
}

// CreateShift adds a shift to a date.
func (s *ShiftService) CreateShift(ctx context.Context, date string, draft entities.ShiftDraft) (*entities.Shift, error) {
	shift, err := s.store.SaveShift(ctx, date, draft)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("Shift created", "date", date, "shift_id", shift.ID, "user_id", shift.UserID)
	return shift, nil
}

// UpdateShift merges a patch into an existing shift.
func (s *ShiftService) UpdateShift(ctx context.Context, date, shiftID string, patch entities.ShiftPatch) (*entities.Shift, error) {
	return s.store.UpdateShift(ctx, date, shiftID, patch)
}

// DeleteShift removes a shift, reporting whether it existed.
func (s *ShiftService) DeleteShift(ctx context.Context, date, shiftID string) (bool, error) {
	return s.store.DeleteShift(ctx, date, shiftID)
}

// FindShiftsByUser collects a user's shifts across a date span.
func (s *ShiftService) FindShiftsByUser(ctx context.Context, lineUserID, startDate, endDate string) ([]entities.Shift, error) {
	return s.store.FindShiftsByUser(ctx, lineUserID, startDate, endDate)
}

// ConfirmMonth promotes every shift in a month that is not yet locked to
// confirmed. Returns the number of shifts touched.
func (s *ShiftService) ConfirmMonth(ctx context.Context, month string) (int, error) {
	if !ValidMonth(month) {
		return 0, fmt.Errorf("%w: %q", entities.ErrInvalidDate, month)
	}
	first, _ := time.Parse("2006-01", month)
	confirmed := entities.ShiftStatusConfirmed

	count := 0
	for d := first; d.Format("2006-01") == month; d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		shifts, err := s.store.GetShifts(ctx, date)
		if err != nil {
			return count, err
		}
		for _, sh := range shifts {
			if sh.Status == entities.ShiftStatusConfirmed || sh.Status == entities.ShiftStatusLocked {
				continue
			}
			if _, err := s.store.UpdateShift(ctx, date, sh.ID, entities.ShiftPatch{Status: &confirmed}); err != nil {
				return count, fmt.Errorf("confirm shift %s: %w", sh.ID, err)
			}
			count++
		}
	}
	s.logger.Infow("Month confirmed", "month", month, "shifts", count)
	return count, nil
}

// SaveShiftRequest records a staff member's availability for a month.
func (s *ShiftService) SaveShiftRequest(ctx context.Context, month, lineUserID string, input entities.ShiftRequestInput) (*entities.ShiftRequest, error) {
	if !ValidMonth(month) {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidDate, month)
	}
	return s.store.SaveShiftRequest(ctx, month, lineUserID, input)
}

// GetShiftRequests lists a month's availability submissions.
func (s *ShiftService) GetShiftRequests(ctx context.Context, month string) (map[string]entities.ShiftRequest, error) {
	return s.store.GetShiftRequests(ctx, month)
}

// CreateSubstituteRequest opens a cover request.
func (s *ShiftService) CreateSubstituteRequest(ctx context.Context, draft entities.SubstituteDraft) (*entities.SubstituteRequest, error) {
	return s.store.SaveSubstituteRequest(ctx, draft)
}

// RespondSubstituteRequest records a response to a cover request.
func (s *ShiftService) RespondSubstituteRequest(ctx context.Context, requestID string, patch entities.SubstitutePatch) (*entities.SubstituteRequest, error) {
	return s.store.UpdateSubstituteRequest(ctx, requestID, patch)
}

// ListSubstituteRequests lists every cover request.
func (s *ShiftService) ListSubstituteRequests(ctx context.Context) ([]entities.SubstituteRequest, error) {
	return s.store.ListSubstituteRequests(ctx)
}

// AnalyzeStaffing compares one date's scheduled coverage per position and
// hour against the required head counts, including any active special-event
// increases from settings.
func (s *ShiftService) AnalyzeStaffing(ctx context.Context, date string) (*entities.ShiftAnalysis, error) {
	if !ValidDate(date) {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidDate, date)
	}

	shifts, err := s.store.GetShifts(ctx, date)
	if err != nil {
		return nil, err
	}
	positions, err := s.store.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	extra := map[string]int{}
	for _, ev := range settings.SpecialEvents {
		if !ev.IsActive || ev.StartDate > date || ev.EndDate < date {
			continue
		}
		for posID, n := range ev.AdditionalStaff {
			extra[posID] += n
		}
	}

	analysis := &entities.ShiftAnalysis{
		Date:      date,
		Shortages: []entities.ShiftShortage{},
		Overages:  []entities.ShiftOverage{},
		Warnings:  []string{},
		Severity:  entities.SeverityNormal,
	}

	for _, pos := range positions {
		// Event extras raise existing requirements; a position with no
		// baseline hours has nothing to compare against.
		if len(pos.RequiredStaff) == 0 {
			continue
		}
		hours := make([]string, 0, len(pos.RequiredStaff))
		for h := range pos.RequiredStaff {
			hours = append(hours, h)
		}
		sort.Strings(hours)
		for _, hour := range hours {
			required := pos.RequiredStaff[hour] + extra[pos.ID]
			actual := 0
			slot := hour + ":00"
			for _, sh := range shifts {
				if sh.PositionID == pos.ID && sh.StartTime <= slot && slot < sh.EndTime {
					actual++
				}
			}
			switch {
			case actual < required:
				analysis.Shortages = append(analysis.Shortages, entities.ShiftShortage{
					Time:       slot,
					Position:   pos.Name,
					PositionID: pos.ID,
					Required:   required,
					Actual:     actual,
					Shortage:   required - actual,
				})
				if actual == 0 {
					analysis.Warnings = append(analysis.Warnings,
						fmt.Sprintf("%s %s: 配置なし（必要%d名）", slot, pos.Name, required))
				}
			case actual > required:
				analysis.Overages = append(analysis.Overages, entities.ShiftOverage{
					Time:       slot,
					Position:   pos.Name,
					PositionID: pos.ID,
					Required:   required,
					Actual:     actual,
					Overage:    actual - required,
				})
			}
		}
	}

	if len(analysis.Shortages) > 0 {
		analysis.Severity = entities.SeverityWarning
		for _, sh := range analysis.Shortages {
			if sh.Actual == 0 {
				analysis.Severity = entities.SeverityCritical
				break
			}
		}
	}
	return analysis, nil
}
