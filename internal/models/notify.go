package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken  string
	ChatID    string
	OnSuccess bool // also notify on successful scheduled captures
}

// BackupNotification holds the data for a capture notification.
type BackupNotification struct {
	Success   bool
	Trigger   string
	Workspace string
	StartTime time.Time
	Duration  time.Duration

	// Capture stats (if successful).
	FileName string
	Size     int64
	Evicted  int

	// Error info (if failed).
	ErrorMessage string
}

// NotifyResult holds the result of a notification.
type NotifyResult struct {
	MessageSent bool
	Error       error
}
