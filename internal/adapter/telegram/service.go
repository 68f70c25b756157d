package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"marketpulse/internal/domain"
)

// MessageLimit is the Bot API maximum text length
const MessageLimit = 4096

const defaultAPIBase = "https://api.telegram.org"

// Channel sends messages through the Telegram Bot API
type Channel struct {
	botToken   string
	apiBase    string
	parseMode  string
	limit      int
	httpClient *http.Client
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// NewChannel creates a Telegram channel. apiBase may be empty for the public API.
func NewChannel(botToken, apiBase string, timeout time.Duration) *Channel {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Channel{
		botToken:  botToken,
		apiBase:   apiBase,
		parseMode: "HTML",
		limit:     MessageLimit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the channel name
func (c *Channel) Name() string { return domain.ChannelTelegram }

// Limit returns the maximum message length
func (c *Channel) Limit() int { return c.limit }

// Send delivers text to chatID
func (c *Channel) Send(ctx context.Context, chatID, text string, plain bool) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.botToken)

	payload := telegramMessage{
		ChatID: chatID,
		Text:   text,
	}
	if !plain {
		payload.ParseMode = c.parseMode
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	description := string(body)
	var tr telegramResponse
	if json.Unmarshal(body, &tr) == nil && tr.Description != "" {
		description = tr.Description
	}

	return &domain.ChannelError{StatusCode: resp.StatusCode, Description: description}
}
