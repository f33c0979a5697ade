// Package notify sends backup notifications via Telegram.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Service defines the interface for backup notifications.
type Service interface {
	Notify(ctx context.Context, msg models.BackupNotification) (*models.NotifyResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the notify Service interface on the Telegram Bot API.
type Impl struct {
	cfg        models.TelegramConfig
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
}

// New returns a Telegram notifier, or a no-op notifier when cfg is nil.
func New(logger zerolog.Logger, cfg *models.TelegramConfig) Service {
	if cfg == nil {
		return Nop{}
	}
	return NewWithClient(logger, *cfg, &http.Client{Timeout: 30 * time.Second}, "https://api.telegram.org")
}

// NewWithClient creates a Telegram notifier with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, cfg models.TelegramConfig, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// sendMessageRequest is the request body for Telegram sendMessage API.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Notify sends msg. Successful captures are only reported when OnSuccess is set.
// Delivery problems are reported in the result, never as an error.
func (s *Impl) Notify(ctx context.Context, msg models.BackupNotification) (*models.NotifyResult, error) {
	result := &models.NotifyResult{}
	if msg.Success && !s.cfg.OnSuccess {
		return result, nil
	}

	s.logger.Info().
		Str("chat_id", s.cfg.ChatID).
		Bool("success", msg.Success).
		Msg("sending Telegram notification")

	reqBody := sendMessageRequest{
		ChatID:    s.cfg.ChatID,
		Text:      s.formatMessage(msg),
		ParseMode: "HTML",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		result.Error = fmt.Errorf("failed to marshal request: %w", err)
		return result, nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.cfg.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		result.Error = fmt.Errorf("failed to create request: %w", err)
		return result, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("failed to send request: %w", err)
		return result, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Errorf("telegram API returned status %d", resp.StatusCode)
		return result, nil
	}

	result.MessageSent = true
	s.logger.Info().Msg("Telegram notification sent")

	return result, nil
}

func (s *Impl) formatMessage(msg models.BackupNotification) string {
	var b bytes.Buffer

	if msg.Success {
		b.WriteString("✅ <b>Backup Successful</b>\n\n")
	} else {
		b.WriteString("❌ <b>Backup Failed</b>\n\n")
	}

	b.WriteString(fmt.Sprintf("🗂 <b>Workspace:</b> %s\n", escapeHTML(msg.Workspace)))
	b.WriteString(fmt.Sprintf("🔁 <b>Trigger:</b> %s\n", escapeHTML(msg.Trigger)))
	b.WriteString(fmt.Sprintf("⏰ <b>Started:</b> %s\n", msg.StartTime.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("⏱ <b>Duration:</b> %s\n", msg.Duration.Round(time.Millisecond)))

	if msg.Success {
		b.WriteString("\n<b>📊 Backup:</b>\n")
		b.WriteString(fmt.Sprintf("  • File: <code>%s</code>\n", escapeHTML(msg.FileName)))
		b.WriteString(fmt.Sprintf("  • Size: %s\n", humanize.IBytes(uint64(max(msg.Size, 0)))))
		if msg.Evicted > 0 {
			b.WriteString(fmt.Sprintf("  • Old backups removed: %d\n", msg.Evicted))
		}
	} else {
		b.WriteString("\n<b>⚠️ Error Details:</b>\n")
		b.WriteString(fmt.Sprintf("  • Error: <code>%s</code>\n", escapeHTML(msg.ErrorMessage)))
	}

	return b.String()
}

// escapeHTML escapes HTML special characters.
func escapeHTML(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Nop discards notifications.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(_ context.Context, _ models.BackupNotification) (*models.NotifyResult, error) {
	return &models.NotifyResult{}, nil
}
