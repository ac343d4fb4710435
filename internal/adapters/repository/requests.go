package repository

import (
	"context"

	"github.com/shiftbot/core/internal/domain/entities"
)

// SaveShiftRequest replaces the (month, user) slot wholesale, stamping
// SubmittedAt and resetting the status to submitted.
func (s *Store) SaveShiftRequest(ctx context.Context, month, lineUserID string, input entities.ShiftRequestInput) (*entities.ShiftRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	if s.data.ShiftRequests[month] == nil {
		s.data.ShiftRequests[month] = map[string]entities.ShiftRequest{}
	}
	req := entities.ShiftRequest{
		Month:       month,
		UserID:      lineUserID,
		RequestText: input.RequestText,
		ParsedData:  input.ParsedData,
		SubmittedAt: s.now(),
		Status:      entities.ShiftRequestStatusSubmitted,
		Notes:       input.Notes,
	}
	s.data.ShiftRequests[month][lineUserID] = req

	if err := s.persist(); err != nil {
		return nil, err
	}
	return &req, nil
}

// GetShiftRequests returns all requests submitted for a month, keyed by
// LINE user ID.
func (s *Store) GetShiftRequests(ctx context.Context, month string) (map[string]entities.ShiftRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	out := make(map[string]entities.ShiftRequest, len(s.data.ShiftRequests[month]))
	for userID, req := range s.data.ShiftRequests[month] {
		out[userID] = req
	}
	return out, nil
}

// SaveSubstituteRequest appends a new substitute request with defaulted
// fields and a pending status.
func (s *Store) SaveSubstituteRequest(ctx context.Context, draft entities.SubstituteDraft) (*entities.SubstituteRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	req := entities.SubstituteRequest{
		ID:           s.newID("sub"),
		ShiftID:      draft.ShiftID,
		RequesterID:  draft.RequesterID,
		SubstituteID: draft.SubstituteID,
		TargetDate:   draft.TargetDate,
		Reason:       draft.Reason,
		Status:       entities.SubstituteStatusPending,
		RequestedAt:  s.now(),
		Notes:        draft.Notes,
	}
	s.data.SubstituteRequests = append(s.data.SubstituteRequests, req)

	if err := s.persist(); err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateSubstituteRequest merges a patch into the request with the given ID
// and stamps RespondedAt. Returns entities.ErrRequestNotFound when absent.
func (s *Store) UpdateSubstituteRequest(ctx context.Context, requestID string, patch entities.SubstitutePatch) (*entities.SubstituteRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	idx := -1
	for i := range s.data.SubstituteRequests {
		if s.data.SubstituteRequests[i].ID == requestID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, entities.ErrRequestNotFound
	}

	req := s.data.SubstituteRequests[idx]
	if patch.SubstituteID != nil {
		req.SubstituteID = *patch.SubstituteID
	}
	if patch.Status != nil {
		req.Status = *patch.Status
	}
	if patch.Notes != nil {
		req.Notes = *patch.Notes
	}
	now := s.now()
	req.RespondedAt = &now
	s.data.SubstituteRequests[idx] = req

	if err := s.persist(); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListSubstituteRequests returns every substitute request on file.
func (s *Store) ListSubstituteRequests(ctx context.Context) ([]entities.SubstituteRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}
	return append([]entities.SubstituteRequest(nil), s.data.SubstituteRequests...), nil
}
