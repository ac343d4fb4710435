package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shiftbot/core/internal/application/services"
	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/logger"
)

// APIResponse is the common JSON envelope for /api responses.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MessageResponse wraps a plain status message.
type MessageResponse struct {
	Message string `json:"message"`
}

func respondOK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func respondCreated(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// httpError maps domain sentinel errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, entities.ErrUserNotFound),
		errors.Is(err, entities.ErrShiftNotFound),
		errors.Is(err, entities.ErrPositionNotFound),
		errors.Is(err, entities.ErrNoticeNotFound),
		errors.Is(err, entities.ErrRequestNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrInvalidDate),
		errors.Is(err, entities.ErrInvalidSettingKey),
		errors.Is(err, entities.ErrInvalidSetting):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, entities.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, entities.ErrStorageUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Storage unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}

// bindAndValidate decodes the request body and runs struct validation.
func bindAndValidate(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// requireDate validates a :date path parameter.
func requireDate(c echo.Context) (string, error) {
	date := c.Param("date")
	if !services.ValidDate(date) {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Date must be YYYY-MM-DD")
	}
	return date, nil
}

// requireMonth validates a :month path parameter.
func requireMonth(c echo.Context) (string, error) {
	month := c.Param("month")
	if !services.ValidMonth(month) {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Month must be YYYY-MM")
	}
	return month, nil
}

// AuthHandler handles admin authentication requests
type AuthHandler struct {
	authService *services.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles admin login
func (h *AuthHandler) Login(c echo.Context) error {
	var req services.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", req.Username, c.RealIP(), nil)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	return c.JSON(http.StatusOK, response)
}
