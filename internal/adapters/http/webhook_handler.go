package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shiftbot/core/internal/application/services"
	"github.com/shiftbot/core/internal/infrastructure/logger"
)

// webhookEvent mirrors the LINE Messaging API webhook event shape.
type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		Type    string `json:"type"`
		UserID  string `json:"userId"`
		GroupID string `json:"groupId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"message"`
	Joined struct {
		Members []struct {
			UserID string `json:"userId"`
		} `json:"members"`
	} `json:"joined"`
	Left struct {
		Members []struct {
			UserID string `json:"userId"`
		} `json:"members"`
	} `json:"left"`
}

type webhookPayload struct {
	Destination string         `json:"destination"`
	Events      []webhookEvent `json:"events"`
}

// WebhookHandler receives LINE platform callbacks.
type WebhookHandler struct {
	botService    *services.BotService
	channelSecret string
	logger        *logger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(botService *services.BotService, channelSecret string, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		botService:    botService,
		channelSecret: channelSecret,
		logger:        logger,
	}
}

// Handle verifies the request signature and dispatches each event. Event
// failures are logged and absorbed so LINE does not retry the whole batch.
func (h *WebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable body")
	}

	if !h.validSignature(body, c.Request().Header.Get("X-Line-Signature")) {
		h.logger.LogSecurityEvent("webhook_signature_invalid", "", c.RealIP(), nil)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid signature")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid payload")
	}

	ctx := c.Request().Context()
	for _, ev := range payload.Events {
		if err := h.dispatch(ctx, ev); err != nil {
			h.logger.Errorw("Webhook event failed",
				"type", ev.Type,
				"line_user_id", ev.Source.UserID,
				"error", err,
			)
		}
	}
	return c.NoContent(http.StatusOK)
}

func (h *WebhookHandler) dispatch(ctx context.Context, ev webhookEvent) error {
	switch ev.Type {
	case "message":
		if ev.Message.Type != "text" {
			return nil
		}
		return h.botService.HandleTextMessage(ctx, services.TextMessageEvent{
			LineUserID: ev.Source.UserID,
			ReplyToken: ev.ReplyToken,
			Text:       ev.Message.Text,
		})
	case "follow":
		return h.botService.HandleFollow(ctx, ev.Source.UserID)
	case "unfollow":
		return h.botService.HandleUnfollow(ctx, ev.Source.UserID)
	case "memberJoined":
		ids := make([]string, 0, len(ev.Joined.Members))
		for _, m := range ev.Joined.Members {
			ids = append(ids, m.UserID)
		}
		return h.botService.HandleMemberJoined(ctx, ids)
	case "memberLeft":
		ids := make([]string, 0, len(ev.Left.Members))
		for _, m := range ev.Left.Members {
			ids = append(ids, m.UserID)
		}
		return h.botService.HandleMemberLeft(ctx, ids)
	default:
		// Unknown event types are acknowledged and ignored.
		return nil
	}
}

// validSignature checks the X-Line-Signature HMAC over the raw body.
func (h *WebhookHandler) validSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
