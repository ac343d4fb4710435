package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	httpHandlers "github.com/shiftbot/core/internal/adapters/http"
	"github.com/shiftbot/core/internal/adapters/line"
	"github.com/shiftbot/core/internal/adapters/repository"
	"github.com/shiftbot/core/internal/application/services"
	"github.com/shiftbot/core/internal/infrastructure/config"
	"github.com/shiftbot/core/internal/infrastructure/logger"
)

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	store  *repository.Store
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize the embedded store
	var storeOpts []repository.Option
	if cfg.Storage.StrictStatus {
		storeOpts = append(storeOpts, repository.WithTransitionPolicy(repository.StrictTransitionPolicy))
	}
	if cfg.Storage.Retention > 0 {
		storeOpts = append(storeOpts, repository.WithRetention(cfg.Storage.Retention))
	}
	store := repository.New(cfg.Storage.BasePath, appLogger, storeOpts...)

	// Initialize services
	authService := services.NewAuthService(cfg.JWT, cfg.Admin, appLogger)
	userService := services.NewUserService(store, appLogger)
	shiftService := services.NewShiftService(store, appLogger)
	noticeService := services.NewNoticeService(store, appLogger)
	systemService := services.NewSystemService(store, appLogger)

	lineClient := line.NewClient(cfg.Line, appLogger)
	botService := services.NewBotService(userService, shiftService, noticeService, store, lineClient, cfg.App.BaseURL, appLogger)

	// Initialize handlers
	authHandler := httpHandlers.NewAuthHandler(authService, appLogger)
	shiftHandler := httpHandlers.NewShiftHandler(shiftService, appLogger)
	adminHandler := httpHandlers.NewAdminHandler(userService, shiftService, noticeService, systemService, appLogger)
	webhookHandler := httpHandlers.NewWebhookHandler(botService, cfg.Line.ChannelSecret, appLogger)

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		store:  store,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(authHandler, shiftHandler, adminHandler, webhookHandler, authService)

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(authHandler *httpHandlers.AuthHandler, shiftHandler *httpHandlers.ShiftHandler, adminHandler *httpHandlers.AdminHandler, webhookHandler *httpHandlers.WebhookHandler, authService *services.AuthService) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// LINE platform callback. Verified by signature, not by JWT.
	s.echo.POST("/webhook", webhookHandler.Handle)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Auth routes (public)
	v1.POST("/auth/login", authHandler.Login)

	// Day board routes (public within the team network)
	dayGroup := v1.Group("/days")
	dayGroup.GET("/:date", shiftHandler.GetDayView)
	dayGroup.GET("/:date/shifts", shiftHandler.GetShifts)
	dayGroup.GET("/:date/messages", adminHandler.GetDailyMessages)
	dayGroup.POST("/:date/messages", adminHandler.PostDailyMessage)

	// Shift routes
	v1.GET("/shifts/month/:month", shiftHandler.GetMonthlyShifts)
	v1.GET("/users/:userId/shifts", shiftHandler.GetUserShifts)

	// Availability requests
	v1.POST("/requests/:month/:userId", shiftHandler.SubmitShiftRequest)

	// Substitute requests
	v1.GET("/substitutes", shiftHandler.ListSubstituteRequests)
	v1.POST("/substitutes", shiftHandler.CreateSubstituteRequest)
	v1.PUT("/substitutes/:requestId", shiftHandler.RespondSubstituteRequest)

	// Notices
	v1.GET("/notices", adminHandler.GetNotices)

	// Admin routes (JWT required)
	admin := v1.Group("/admin", s.authMiddleware(authService))
	admin.POST("/days/:date/shifts", shiftHandler.CreateShift)
	admin.PUT("/days/:date/shifts/:shiftId", shiftHandler.UpdateShift)
	admin.DELETE("/days/:date/shifts/:shiftId", shiftHandler.DeleteShift)
	admin.POST("/shifts/month/:month/confirm", adminHandler.ConfirmMonth)
	admin.GET("/requests/:month", shiftHandler.GetShiftRequests)
	admin.GET("/analysis/:date", adminHandler.AnalyzeStaffing)
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/users/:userId", adminHandler.GetUser)
	admin.PUT("/users/:userId", adminHandler.SaveUser)
	admin.DELETE("/users/:userId", adminHandler.DeactivateUser)
	admin.POST("/users/:userId/promote", adminHandler.PromoteUser)
	admin.POST("/notices", adminHandler.CreateNotice)
	admin.GET("/settings", adminHandler.GetSettings)
	admin.PUT("/settings", adminHandler.UpdateSettings)
	admin.GET("/settings/:key", adminHandler.GetSetting)
	admin.PUT("/settings/:key", adminHandler.UpdateSetting)
	admin.GET("/statistics", adminHandler.GetStatistics)
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	ctx := c.Request().Context()
	if err := s.store.HealthCheck(ctx); err != nil {
		status = "error"
		checks["storage"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		check := map[string]interface{}{"status": "ok"}
		if snapshot, err := s.store.Snapshot(ctx); err == nil {
			check["collections"] = snapshot
		}
		checks["storage"] = check
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  "1.21",
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.store.HealthCheck(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "storage_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else if e, ok := err.(validator.ValidationErrors); ok {
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": e.Error()}
		} else {
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err)
			}
		}
	}
}
