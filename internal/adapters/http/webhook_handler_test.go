package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftbot/core/internal/adapters/repository"
	"github.com/shiftbot/core/internal/application/services"
	"github.com/shiftbot/core/internal/infrastructure/logger"
)

const testChannelSecret = "test-channel-secret"

type recordingMessenger struct {
	replies []string
	pushes  []string
}

func (m *recordingMessenger) Reply(ctx context.Context, replyToken, text string) error {
	m.replies = append(m.replies, text)
	return nil
}

func (m *recordingMessenger) Push(ctx context.Context, to, text string) error {
	m.pushes = append(m.pushes, text)
	return nil
}

func newWebhookHandler(t *testing.T) (*WebhookHandler, *recordingMessenger) {
	t.Helper()
	log := logger.NewNop()
	store := repository.New(t.TempDir(), log)
	users := services.NewUserService(store, log)
	shifts := services.NewShiftService(store, log)
	notices := services.NewNoticeService(store, log)
	messenger := &recordingMessenger{}
	bot := services.NewBotService(users, shifts, notices, store, messenger, "https://shift.example.com", log)
	return NewWebhookHandler(bot, testChannelSecret, log), messenger
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testChannelSecret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func post(t *testing.T, h *WebhookHandler, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Handle(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h, _ := newWebhookHandler(t)

	rec := post(t, h, `{"events":[]}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h, _ := newWebhookHandler(t)

	rec := post(t, h, `{"events":[]}`, "bm90LXRoZS1yaWdodC1tYWM=")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookAcceptsValidSignature(t *testing.T) {
	h, _ := newWebhookHandler(t)

	body := `{"events":[]}`
	rec := post(t, h, body, sign(body))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookSignatureCoversExactBody(t *testing.T) {
	h, _ := newWebhookHandler(t)

	// Signature over a different body must fail.
	rec := post(t, h, `{"events":[]}`, sign(`{"events":[] }`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookDispatchesTextMessage(t *testing.T) {
	h, messenger := newWebhookHandler(t)

	body := `{"events":[{"type":"message","replyToken":"tok","source":{"type":"group","userId":"U1"},"message":{"type":"text","id":"m1","text":"@シフトボット 使い方"}}]}`
	rec := post(t, h, body, sign(body))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, messenger.replies, 1)
	assert.Contains(t, messenger.replies[0], "使い方ガイド")
}

func TestWebhookAbsorbsPerEventFailures(t *testing.T) {
	h, messenger := newWebhookHandler(t)

	// A non-text message followed by a working event: the batch still
	// succeeds and the second event is processed.
	body := `{"events":[` +
		`{"type":"message","replyToken":"t1","source":{"userId":"U1"},"message":{"type":"sticker","id":"m1"}},` +
		`{"type":"follow","source":{"userId":"U2"}}` +
		`]}`
	rec := post(t, h, body, sign(body))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, messenger.pushes, 1, "follow event sends a welcome")
}

func TestWebhookIgnoresUnknownEventTypes(t *testing.T) {
	h, messenger := newWebhookHandler(t)

	body := `{"events":[{"type":"beacon","source":{"userId":"U1"}}]}`
	rec := post(t, h, body, sign(body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, messenger.replies)
	assert.Empty(t, messenger.pushes)
}
