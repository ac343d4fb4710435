package http

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shiftbot/core/internal/application/services"
	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/logger"
)

// AdminHandler serves the management surface: users, notices, settings,
// statistics, and schedule confirmation.
type AdminHandler struct {
	userService   *services.UserService
	shiftService  *services.ShiftService
	noticeService *services.NoticeService
	systemService *services.SystemService
	logger        *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userService *services.UserService, shiftService *services.ShiftService, noticeService *services.NoticeService, systemService *services.SystemService, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		userService:   userService,
		shiftService:  shiftService,
		noticeService: noticeService,
		systemService: systemService,
		logger:        logger,
	}
}

// ListUsers lists every registered user.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	var (
		users []entities.User
		err   error
	)
	if c.QueryParam("active") == "true" {
		users, err = h.userService.ListActiveUsers(c.Request().Context())
	} else {
		users, err = h.userService.ListUsers(c.Request().Context())
	}
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, users)
}

// GetUser returns one user by LINE user ID.
func (h *AdminHandler) GetUser(c echo.Context) error {
	user, err := h.userService.GetUser(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, user)
}

// SaveUser creates or updates a user record.
func (h *AdminHandler) SaveUser(c echo.Context) error {
	var patch entities.UserPatch
	if err := bindAndValidate(c, &patch); err != nil {
		return err
	}

	user, err := h.userService.SaveUser(c.Request().Context(), c.Param("userId"), patch)
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, user)
}

// DeactivateUser retires a user without deleting their history.
func (h *AdminHandler) DeactivateUser(c echo.Context) error {
	if err := h.userService.Deactivate(c.Request().Context(), c.Param("userId")); err != nil {
		return httpError(err)
	}
	return respondOK(c, MessageResponse{Message: "User deactivated"})
}

// PromoteUser grants a user the admin role.
func (h *AdminHandler) PromoteUser(c echo.Context) error {
	user, err := h.userService.Promote(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, user)
}

// GetNotices lists the currently displayable notices.
func (h *AdminHandler) GetNotices(c echo.Context) error {
	notices, err := h.noticeService.GetActiveNotices(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, notices)
}

// CreateNotice publishes a new notice.
func (h *AdminHandler) CreateNotice(c echo.Context) error {
	var draft entities.NoticeDraft
	if err := bindAndValidate(c, &draft); err != nil {
		return err
	}

	notice, err := h.noticeService.CreateNotice(c.Request().Context(), draft)
	if err != nil {
		return httpError(err)
	}
	return respondCreated(c, notice)
}

// GetDailyMessages returns the message board for a date.
func (h *AdminHandler) GetDailyMessages(c echo.Context) error {
	date, err := requireDate(c)
	if err != nil {
		return err
	}

	msgs, err := h.noticeService.GetDailyMessages(c.Request().Context(), date)
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, msgs)
}

// PostDailyMessage appends to a date's message board.
func (h *AdminHandler) PostDailyMessage(c echo.Context) error {
	date, err := requireDate(c)
	if err != nil {
		return err
	}

	var draft entities.MessageDraft
	if err := bindAndValidate(c, &draft); err != nil {
		return err
	}

	msg, err := h.noticeService.PostDailyMessage(c.Request().Context(), date, draft)
	if err != nil {
		return httpError(err)
	}
	return respondCreated(c, msg)
}

// GetSettings returns the full settings record.
func (h *AdminHandler) GetSettings(c echo.Context) error {
	settings, err := h.systemService.GetSettings(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, settings)
}

// GetSetting returns one settings value by key.
func (h *AdminHandler) GetSetting(c echo.Context) error {
	settings, err := h.systemService.GetSettings(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	key := c.Param("key")
	value, ok := settingValue(settings, key)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown setting key")
	}
	return respondOK(c, map[string]any{"key": key, "value": value})
}

// UpdateSettings merges a typed patch into the settings record.
func (h *AdminHandler) UpdateSettings(c echo.Context) error {
	var patch entities.SettingsPatch
	if err := bindAndValidate(c, &patch); err != nil {
		return err
	}

	settings, err := h.systemService.UpdateSettings(c.Request().Context(), patch)
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, settings)
}

// UpdateSetting replaces one settings value by key.
func (h *AdminHandler) UpdateSetting(c echo.Context) error {
	var body struct {
		Value json.RawMessage `json:"value"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	patch, err := settingPatch(c.Param("key"), body.Value)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	settings, err := h.systemService.UpdateSettings(c.Request().Context(), *patch)
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, settings)
}

// GetStatistics returns derived usage counters.
func (h *AdminHandler) GetStatistics(c echo.Context) error {
	stats, err := h.systemService.Statistics(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, stats)
}

// ConfirmMonth promotes a month's draft and preview shifts to confirmed.
func (h *AdminHandler) ConfirmMonth(c echo.Context) error {
	month, err := requireMonth(c)
	if err != nil {
		return err
	}

	n, err := h.shiftService.ConfirmMonth(c.Request().Context(), month)
	if err != nil {
		return httpError(err)
	}
	h.logger.Infow("Month confirmed", "month", month, "shifts", n)
	return respondOK(c, map[string]any{"month": month, "confirmed": n})
}

// AnalyzeStaffing reports coverage shortages and overages for a date.
func (h *AdminHandler) AnalyzeStaffing(c echo.Context) error {
	date, err := requireDate(c)
	if err != nil {
		return err
	}

	analysis, err := h.shiftService.AnalyzeStaffing(c.Request().Context(), date)
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, analysis)
}

// settingValue picks one field out of the settings record by its wire key.
func settingValue(s entities.SystemSettings, key string) (any, bool) {
	switch key {
	case "storeName":
		return s.StoreName, true
	case "businessHours":
		return s.BusinessHours, true
	case "adminLineUserId":
		return s.AdminLineUserID, true
	case "shiftDeadlineDay":
		return s.ShiftDeadlineDay, true
	case "autoBreakEnabled":
		return s.AutoBreakEnabled, true
	case "breakRules":
		return s.BreakRules, true
	case "timezone":
		return s.Timezone, true
	case "specialEvents":
		return s.SpecialEvents, true
	case "dynamicHolidays":
		return s.DynamicHolidays, true
	default:
		return nil, false
	}
}

// settingPatch builds a single-field patch from a wire key and raw value.
func settingPatch(key string, raw json.RawMessage) (*entities.SettingsPatch, error) {
	var patch entities.SettingsPatch
	var target any
	switch key {
	case "storeName":
		target = &patch.StoreName
	case "businessHours":
		target = &patch.BusinessHours
	case "adminLineUserId":
		target = &patch.AdminLineUserID
	case "shiftDeadlineDay":
		target = &patch.ShiftDeadlineDay
	case "autoBreakEnabled":
		target = &patch.AutoBreakEnabled
	case "breakRules":
		target = &patch.BreakRules
	case "timezone":
		target = &patch.Timezone
	case "specialEvents":
		target = &patch.SpecialEvents
	case "dynamicHolidays":
		target = &patch.DynamicHolidays
	default:
		return nil, entities.ErrInvalidSettingKey
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, entities.ErrInvalidSetting
	}
	return &patch, nil
}
