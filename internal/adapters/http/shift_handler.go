package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shiftbot/core/internal/application/services"
	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/logger"
)

// ShiftHandler serves the day board and shift CRUD endpoints.
type ShiftHandler struct {
	shiftService *services.ShiftService
	logger       *logger.Logger
}

// NewShiftHandler creates a new shift handler
func NewShiftHandler(shiftService *services.ShiftService, logger *logger.Logger) *ShiftHandler {
	return &ShiftHandler{
		shiftService: shiftService,
		logger:       logger,
	}
}

// GetDayView returns everything the day board needs for one date.
func (h *ShiftHandler) GetDayView(c echo.Context) error {
	date, err := requireDate(c)
	if err != nil {
		return err
	}

	view, err := h.shiftService.GetDayView(c.Request().Context(), date)
	if err != nil {
		h.logger.Errorw("Day view failed", "date", date, "error", err)
		return httpError(err)
	}
	return respondOK(c, view)
}

// GetShifts lists the shifts for one date.
func (h *ShiftHandler) GetShifts(c echo.Context) error {
	date, err := requireDate(c)
	if err != nil {
		return err
	}

	shifts, err := h.shiftService.GetShifts(c.Request().Context(), date)
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, shifts)
}

// GetMonthlyShifts lists every shift inside one month.
func (h *ShiftHandler) GetMonthlyShifts(c echo.Context) error {
	month, err := requireMonth(c)
	if err != nil {
		return err
	}

	shifts, err := h.shiftService.GetMonthlyShifts(c.Request().Context(), month)
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, shifts)
}

// GetUserShifts lists one user's shifts over a date range.
func (h *ShiftHandler) GetUserShifts(c echo.Context) error {
	userID := c.Param("userId")
	start := c.QueryParam("start")
	end := c.QueryParam("end")
	if !services.ValidDate(start) || !services.ValidDate(end) {
		return echo.NewHTTPError(http.StatusBadRequest, "start and end must be YYYY-MM-DD")
	}

	shifts, err := h.shiftService.FindShiftsByUser(c.Request().Context(), userID, start, end)
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, shifts)
}

// CreateShift adds a shift to a date.
func (h *ShiftHandler) CreateShift(c echo.Context) error {
	date, err := requireDate(c)
	if err != nil {
		return err
	}

	var draft entities.ShiftDraft
	if err := bindAndValidate(c, &draft); err != nil {
		return err
	}

	shift, err := h.shiftService.CreateShift(c.Request().Context(), date, draft)
	if err != nil {
		h.logger.Errorw("Shift create failed", "date", date, "error", err)
		return httpError(err)
	}
	return respondCreated(c, shift)
}

// UpdateShift patches a shift in place.
func (h *ShiftHandler) UpdateShift(c echo.Context) error {
	date, err := requireDate(c)
	if err != nil {
		return err
	}
	shiftID := c.Param("shiftId")

	var patch entities.ShiftPatch
	if err := bindAndValidate(c, &patch); err != nil {
		return err
	}

	shift, err := h.shiftService.UpdateShift(c.Request().Context(), date, shiftID, patch)
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, shift)
}

// DeleteShift removes a shift from a date.
func (h *ShiftHandler) DeleteShift(c echo.Context) error {
	date, err := requireDate(c)
	if err != nil {
		return err
	}
	shiftID := c.Param("shiftId")

	removed, err := h.shiftService.DeleteShift(c.Request().Context(), date, shiftID)
	if err != nil {
		return httpError(err)
	}
	if !removed {
		return echo.NewHTTPError(http.StatusNotFound, "Shift not found")
	}
	return respondOK(c, MessageResponse{Message: "Shift deleted"})
}

// SubmitShiftRequest records a user's availability for a month.
func (h *ShiftHandler) SubmitShiftRequest(c echo.Context) error {
	month, err := requireMonth(c)
	if err != nil {
		return err
	}
	userID := c.Param("userId")

	var input entities.ShiftRequestInput
	if err := bindAndValidate(c, &input); err != nil {
		return err
	}

	req, err := h.shiftService.SaveShiftRequest(c.Request().Context(), month, userID, input)
	if err != nil {
		return httpError(err)
	}
	return respondCreated(c, req)
}

// GetShiftRequests lists the availability requests for a month.
func (h *ShiftHandler) GetShiftRequests(c echo.Context) error {
	month, err := requireMonth(c)
	if err != nil {
		return err
	}

	reqs, err := h.shiftService.GetShiftRequests(c.Request().Context(), month)
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, reqs)
}

// CreateSubstituteRequest opens a cover-my-shift request.
func (h *ShiftHandler) CreateSubstituteRequest(c echo.Context) error {
	var draft entities.SubstituteDraft
	if err := bindAndValidate(c, &draft); err != nil {
		return err
	}

	req, err := h.shiftService.CreateSubstituteRequest(c.Request().Context(), draft)
	if err != nil {
		return httpError(err)
	}
	return respondCreated(c, req)
}

// RespondSubstituteRequest accepts or declines a substitute request.
func (h *ShiftHandler) RespondSubstituteRequest(c echo.Context) error {
	requestID := c.Param("requestId")

	var patch entities.SubstitutePatch
	if err := bindAndValidate(c, &patch); err != nil {
		return err
	}

	req, err := h.shiftService.RespondSubstituteRequest(c.Request().Context(), requestID, patch)
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, req)
}

// ListSubstituteRequests lists substitute requests, optionally by status.
func (h *ShiftHandler) ListSubstituteRequests(c echo.Context) error {
	reqs, err := h.shiftService.ListSubstituteRequests(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if status := entities.SubstituteStatus(c.QueryParam("status")); status != "" {
		filtered := reqs[:0:0]
		for _, r := range reqs {
			if r.Status == status {
				filtered = append(filtered, r)
			}
		}
		reqs = filtered
	}
	return respondOK(c, reqs)
}
