package models

import (
	"fmt"
	"strings"
	"time"
)

// BackupRecord is one backup artifact on storage.
type BackupRecord struct {
	FileName     string    `json:"fileName"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modifiedTime"`
}

// BackupSettings holds the per-workspace automatic backup settings.
type BackupSettings struct {
	Enabled         bool       `json:"enabled"`
	BackupOnLaunch  bool       `json:"backupOnLaunch"`
	BackupOnExit    bool       `json:"backupOnExit"`
	IntervalMinutes int        `json:"intervalMinutes"`
	MaxCount        int        `json:"maxCount"`
	LastBackupTime  *time.Time `json:"lastBackupTime,omitempty"`
}

// CaptureResult holds the outcome of a single capture including its eviction pass.
type CaptureResult struct {
	Record           BackupRecord
	Evicted          []BackupRecord
	EvictionFailures int
	Duration         time.Duration
}

// SchedulerStatus is a point-in-time view of the scheduler state.
type SchedulerStatus struct {
	Running    bool          `json:"running"`
	Interval   time.Duration `json:"interval"`
	NextFireAt time.Time     `json:"nextFireAt"`
	InFlight   bool          `json:"inFlight"`
	LastRunAt  time.Time     `json:"lastRunAt"`
	LastError  string        `json:"lastError,omitempty"`
}

// Workspace identifies the active business-data container.
type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ValidateWorkspaceName rejects names that cannot be embedded in a backup
// file name. Backups are matched to a workspace by the "_<name>_" substring,
// so an underscore in a name would let one workspace claim another's files.
func ValidateWorkspaceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidWorkspaceName)
	}
	if strings.ContainsAny(name, `/\_`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidWorkspaceName, name)
	}
	return nil
}
