package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shiftbot/core/internal/domain/entities"
)

// GetShifts returns the shifts for one calendar date. Unknown dates yield an
// empty slice.
func (s *Store) GetShifts(ctx context.Context, date string) ([]entities.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	return append([]entities.Shift(nil), s.data.Shifts[date]...), nil
}

// GetMonthlyShifts collects every shift on a date starting with the given
// YYYY-MM month.
func (s *Store) GetMonthlyShifts(ctx context.Context, month string) ([]entities.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	var monthly []entities.Shift
	for date, shifts := range s.data.Shifts {
		if strings.HasPrefix(date, month) {
			monthly = append(monthly, shifts...)
		}
	}
	return monthly, nil
}

// SaveShift appends a new shift to a date, generating the ID and CreatedAt
// and bumping the total-shifts counter.
func (s *Store) SaveShift(ctx context.Context, date string, draft entities.ShiftDraft) (*entities.Shift, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidDate, date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	status := draft.Status
	if status == "" {
		status = entities.ShiftStatusDraft
	}
	shift := entities.Shift{
		ID:           s.newID("shift"),
		UserID:       draft.UserID,
		PositionID:   draft.PositionID,
		StartTime:    draft.StartTime,
		EndTime:      draft.EndTime,
		BreakMinutes: draft.BreakMinutes,
		Status:       status,
		CreatedAt:    s.now(),
		CreatedBy:    draft.CreatedBy,
		Notes:        draft.Notes,
	}
	s.data.Shifts[date] = append(s.data.Shifts[date], shift)
	s.data.Metadata.TotalShifts++

	if err := s.persist(); err != nil {
		return nil, err
	}
	return &shift, nil
}

// UpdateShift merges a patch into the shift with the given ID on the given
// date and stamps UpdatedAt. Returns entities.ErrShiftNotFound when the ID
// is absent on that date.
func (s *Store) UpdateShift(ctx context.Context, date, shiftID string, patch entities.ShiftPatch) (*entities.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	shifts := s.data.Shifts[date]
	idx := -1
	for i := range shifts {
		if shifts[i].ID == shiftID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, entities.ErrShiftNotFound
	}

	shift := shifts[idx]
	if patch.Status != nil && s.transition != nil {
		if err := s.transition(shift.Status, *patch.Status); err != nil {
			return nil, err
		}
	}
	if patch.UserID != nil {
		shift.UserID = *patch.UserID
	}
	if patch.PositionID != nil {
		shift.PositionID = *patch.PositionID
	}
	if patch.StartTime != nil {
		shift.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		shift.EndTime = *patch.EndTime
	}
	if patch.BreakMinutes != nil {
		shift.BreakMinutes = *patch.BreakMinutes
	}
	if patch.Status != nil {
		shift.Status = *patch.Status
	}
	if patch.Notes != nil {
		shift.Notes = *patch.Notes
	}
	now := s.now()
	shift.UpdatedAt = &now
	s.data.Shifts[date][idx] = shift

	if err := s.persist(); err != nil {
		return nil, err
	}
	return &shift, nil
}

// DeleteShift removes the shift with the given ID from a date and reports
// whether a row was actually removed. Nothing is saved when no row matched.
func (s *Store) DeleteShift(ctx context.Context, date, shiftID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return false, err
	}

	shifts := s.data.Shifts[date]
	kept := shifts[:0:0]
	for _, sh := range shifts {
		if sh.ID != shiftID {
			kept = append(kept, sh)
		}
	}
	if len(kept) == len(shifts) {
		return false, nil
	}
	s.data.Shifts[date] = kept

	if err := s.persist(); err != nil {
		return false, err
	}
	return true, nil
}

// FindShiftsByUser walks each calendar day in [startDate, endDate]
// inclusive and collects the user's shifts.
func (s *Store) FindShiftsByUser(ctx context.Context, lineUserID, startDate, endDate string) ([]entities.Shift, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidDate, startDate)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidDate, endDate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	var found []entities.Shift
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, sh := range s.data.Shifts[d.Format(dateLayout)] {
			if sh.UserID == lineUserID {
				found = append(found, sh)
			}
		}
	}
	return found, nil
}
