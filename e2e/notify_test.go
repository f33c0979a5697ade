//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/notify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
}

func getTelegramConfig(t *testing.T) *models.TelegramConfig {
	t.Helper()

	botToken := os.Getenv("TEST_TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		t.Skip("TEST_TELEGRAM_BOT_TOKEN not set")
	}

	chatID := os.Getenv("TEST_TELEGRAM_CHAT_ID")
	if chatID == "" {
		t.Skip("TEST_TELEGRAM_CHAT_ID not set")
	}

	return &models.TelegramConfig{
		BotToken:  botToken,
		ChatID:    chatID,
		OnSuccess: true,
	}
}

func TestNotifySuccess_E2E(t *testing.T) {
	svc := notify.New(testLogger(), getTelegramConfig(t))

	msg := models.BackupNotification{
		Success:   true,
		Trigger:   "scheduled",
		Workspace: "e2e-farm",
		StartTime: time.Now().Add(-2 * time.Second),
		Duration:  2 * time.Second,
		FileName:  "backup_e2e-farm_20240601093000.json.zst",
		Size:      1024 * 512,
		Evicted:   3,
	}

	result, err := svc.Notify(context.Background(), msg)

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.Nil(t, result.Error)
}

func TestNotifyFailure_E2E(t *testing.T) {
	svc := notify.New(testLogger(), getTelegramConfig(t))

	msg := models.BackupNotification{
		Success:      false,
		Trigger:      "exit",
		Workspace:    "e2e-farm",
		StartTime:    time.Now().Add(-time.Second),
		Duration:     time.Second,
		ErrorMessage: "storage write /backups/backup_e2e-farm.json failed: no space left on device",
	}

	result, err := svc.Notify(context.Background(), msg)

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.Nil(t, result.Error)
}

func TestNotifyInvalidToken_E2E(t *testing.T) {
	svc := notify.New(testLogger(), &models.TelegramConfig{
		BotToken: "invalid:token",
		ChatID:   "-100123456789",
	})

	result, err := svc.Notify(context.Background(), models.BackupNotification{
		Success:   false,
		Trigger:   "scheduled",
		Workspace: "test",
	})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	assert.NotNil(t, result.Error)
}
