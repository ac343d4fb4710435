package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shiftbot/core/internal/infrastructure/config"
	"github.com/shiftbot/core/internal/infrastructure/logger"
)

// Client talks to the LINE Messaging API with the channel access token.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	logger   *logger.Logger
}

// Profile is the subset of a LINE profile the bot cares about.
type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl,omitempty"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyPayload struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type pushPayload struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

// NewClient creates a LINE Messaging API client
func NewClient(cfg config.LineConfig, logger *logger.Logger) *Client {
	return &Client{
		endpoint: cfg.APIEndpoint,
		token:    cfg.ChannelToken,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// Reply answers an event using its one-shot reply token.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	return c.post(ctx, "/v2/bot/message/reply", replyPayload{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: text}},
	})
}

// Push sends a message to a user outside a reply window.
func (c *Client) Push(ctx context.Context, to, text string) error {
	return c.post(ctx, "/v2/bot/message/push", pushPayload{
		To:       to,
		Messages: []textMessage{{Type: "text", Text: text}},
	})
}

// GetProfile fetches a user's display name and picture.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v2/bot/profile/"+userID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("line profile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("line profile request: status %d: %s", resp.StatusCode, body)
	}
	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("line profile decode: %w", err)
	}
	return &p, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("line api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Errorw("LINE API request rejected",
			"path", path,
			"status", resp.StatusCode,
			"body", string(detail),
		)
		return fmt.Errorf("line api request: status %d", resp.StatusCode)
	}
	return nil
}
