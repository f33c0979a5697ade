package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
	calls  int
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.calls++
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("{}")),
	}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testConfig() models.TelegramConfig {
	return models.TelegramConfig{
		BotToken:  "123456:ABC-DEF",
		ChatID:    "-100123456789",
		OnSuccess: true,
	}
}

func TestNotify_Success(t *testing.T) {
	var capturedRequest *http.Request
	var capturedBody sendMessageRequest

	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			capturedRequest = req
			body, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(body, &capturedBody)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("{\"ok\":true}")),
			}, nil
		},
	}

	svc := NewWithClient(testLogger(), testConfig(), httpClient, "https://api.telegram.org")

	msg := models.BackupNotification{
		Success:   true,
		Trigger:   "scheduled",
		Workspace: "Farm",
		StartTime: time.Now().Add(-time.Second),
		Duration:  time.Second,
		FileName:  "backup_Farm_20240601120000.json.zst",
		Size:      2048,
	}

	result, err := svc.Notify(context.Background(), msg)

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.Nil(t, result.Error)

	assert.Equal(t, http.MethodPost, capturedRequest.Method)
	assert.Contains(t, capturedRequest.URL.String(), "/bot123456:ABC-DEF/sendMessage")
	assert.Equal(t, "application/json", capturedRequest.Header.Get("Content-Type"))

	assert.Equal(t, "-100123456789", capturedBody.ChatID)
	assert.Equal(t, "HTML", capturedBody.ParseMode)
	assert.Contains(t, capturedBody.Text, "Backup Successful")
}

func TestNotify_SuccessSkippedWithoutOnSuccess(t *testing.T) {
	httpClient := &mockHTTPClient{}
	cfg := testConfig()
	cfg.OnSuccess = false
	svc := NewWithClient(testLogger(), cfg, httpClient, "https://api.telegram.org")

	result, err := svc.Notify(context.Background(), models.BackupNotification{Success: true})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	assert.Zero(t, httpClient.calls)
}

func TestNotify_HTTPError(t *testing.T) {
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("network error")
		},
	}

	svc := NewWithClient(testLogger(), testConfig(), httpClient, "https://api.telegram.org")

	result, err := svc.Notify(context.Background(), models.BackupNotification{Workspace: "Farm"})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Error(), "failed to send request")
}

func TestNotify_APIError(t *testing.T) {
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusBadRequest,
				Body:       io.NopCloser(strings.NewReader("{\"ok\":false}")),
			}, nil
		},
	}

	svc := NewWithClient(testLogger(), testConfig(), httpClient, "https://api.telegram.org")

	result, err := svc.Notify(context.Background(), models.BackupNotification{Workspace: "Farm"})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Error(), "status 400")
}

func TestFormatMessage_Success(t *testing.T) {
	svc := NewWithClient(testLogger(), testConfig(), &mockHTTPClient{}, "")

	result := svc.formatMessage(models.BackupNotification{
		Success:   true,
		Trigger:   "manual",
		Workspace: "Farm & Co",
		StartTime: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		FileName:  "backup_Farm & Co_20240115103000.json",
		Size:      1024 * 1024,
		Evicted:   6,
	})

	assert.Contains(t, result, "Backup Successful")
	assert.Contains(t, result, "Farm &amp; Co")
	assert.Contains(t, result, "2024-01-15 10:30:00")
	assert.Contains(t, result, "1.0 MiB")
	assert.Contains(t, result, "Old backups removed: 6")
}

func TestFormatMessage_Failure(t *testing.T) {
	svc := NewWithClient(testLogger(), testConfig(), &mockHTTPClient{}, "")

	result := svc.formatMessage(models.BackupNotification{
		Trigger:      "scheduled",
		Workspace:    "Farm",
		StartTime:    time.Now(),
		ErrorMessage: "storage write /backups failed: <disk full>",
	})

	assert.Contains(t, result, "Backup Failed")
	assert.Contains(t, result, "&lt;disk full&gt;")
	assert.NotContains(t, result, "Old backups removed")
}

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"<script>", "&lt;script&gt;"},
		{"a & b", "a &amp; b"},
		{"<>&", "&lt;&gt;&amp;"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeHTML(tt.input))
		})
	}
}

func TestNew_NilConfigIsNop(t *testing.T) {
	svc := New(testLogger(), nil)

	_, ok := svc.(Nop)
	assert.True(t, ok)

	result, err := svc.Notify(context.Background(), models.BackupNotification{})
	require.NoError(t, err)
	assert.False(t, result.MessageSent)
}

func TestNotify_ContextCancelled(t *testing.T) {
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, context.Canceled
		},
	}

	svc := NewWithClient(testLogger(), testConfig(), httpClient, "https://api.telegram.org")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Notify(ctx, models.BackupNotification{Workspace: "Farm"})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	assert.NotNil(t, result.Error)
}
