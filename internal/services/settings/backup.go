package settings

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
)

// Defaults for a workspace that has never saved backup settings.
const (
	DefaultIntervalMinutes = 30
	DefaultMaxCount        = 20
	MinMaxCount            = 5
	MaxMaxCount            = 50
)

// AllowedIntervals lists the selectable auto-backup intervals in minutes.
var AllowedIntervals = []int{1, 5, 10, 20, 30, 60, 120, 360}

// ValidateInterval reports whether minutes is one of AllowedIntervals.
func ValidateInterval(minutes int) error {
	if !slices.Contains(AllowedIntervals, minutes) {
		return fmt.Errorf("%w: %d minutes (allowed %v)", models.ErrInvalidInterval, minutes, AllowedIntervals)
	}
	return nil
}

// ValidateMaxCount reports whether n is within [MinMaxCount, MaxMaxCount].
func ValidateMaxCount(n int) error {
	if n < MinMaxCount || n > MaxMaxCount {
		return fmt.Errorf("%w: %d (allowed %d-%d)", models.ErrInvalidMaxCount, n, MinMaxCount, MaxMaxCount)
	}
	return nil
}

// DefaultBackupSettings returns the settings used when nothing is stored.
func DefaultBackupSettings() models.BackupSettings {
	return models.BackupSettings{
		IntervalMinutes: DefaultIntervalMinutes,
		MaxCount:        DefaultMaxCount,
	}
}

// LoadBackupSettings reads the backup settings for scope. Missing or
// unparsable values fall back to defaults; only store failures are returned.
func LoadBackupSettings(ctx context.Context, s Store, scope Scope) (models.BackupSettings, error) {
	out := DefaultBackupSettings()
	raw := make(map[Key]string, 6)
	for _, k := range []Key{
		KeyAutoBackupEnabled, KeyAutoBackupOnLaunch, KeyAutoBackupOnExit,
		KeyAutoBackupInterval, KeyAutoBackupMaxCount, KeyLastBackupTime,
	} {
		v, ok, err := s.GetString(ctx, scope, k)
		if err != nil {
			return out, err
		}
		if ok {
			raw[k] = v
		}
	}

	if v, err := strconv.ParseBool(raw[KeyAutoBackupEnabled]); err == nil {
		out.Enabled = v
	}
	if v, err := strconv.ParseBool(raw[KeyAutoBackupOnLaunch]); err == nil {
		out.BackupOnLaunch = v
	}
	if v, err := strconv.ParseBool(raw[KeyAutoBackupOnExit]); err == nil {
		out.BackupOnExit = v
	}
	if v, err := strconv.Atoi(raw[KeyAutoBackupInterval]); err == nil && ValidateInterval(v) == nil {
		out.IntervalMinutes = v
	}
	if v, err := strconv.Atoi(raw[KeyAutoBackupMaxCount]); err == nil && ValidateMaxCount(v) == nil {
		out.MaxCount = v
	}
	if t, err := time.Parse(time.RFC3339Nano, raw[KeyLastBackupTime]); err == nil {
		out.LastBackupTime = &t
	}

	return out, nil
}

// SaveBackupSettings validates and persists every field except LastBackupTime,
// which only the executor writes.
func SaveBackupSettings(ctx context.Context, s Store, scope Scope, bs models.BackupSettings) error {
	if err := ValidateInterval(bs.IntervalMinutes); err != nil {
		return err
	}
	if err := ValidateMaxCount(bs.MaxCount); err != nil {
		return err
	}

	if err := SetBool(ctx, s, scope, KeyAutoBackupEnabled, bs.Enabled); err != nil {
		return err
	}
	if err := SetBool(ctx, s, scope, KeyAutoBackupOnLaunch, bs.BackupOnLaunch); err != nil {
		return err
	}
	if err := SetBool(ctx, s, scope, KeyAutoBackupOnExit, bs.BackupOnExit); err != nil {
		return err
	}
	if err := SetInt(ctx, s, scope, KeyAutoBackupInterval, bs.IntervalMinutes); err != nil {
		return err
	}
	return SetInt(ctx, s, scope, KeyAutoBackupMaxCount, bs.MaxCount)
}

// SetLastBackupTime records a successful capture for scope.
func SetLastBackupTime(ctx context.Context, s Store, scope Scope, t time.Time) error {
	return SetTime(ctx, s, scope, KeyLastBackupTime, t)
}
