// Package backup is the entry point for automatic and manual workspace backups.
// It resolves the active workspace once per call and composes the scheduler,
// executor and settings store.
package backup

import (
	"context"
	"errors"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/metrics"
	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/executor"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/notify"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/scheduler"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/settings"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/workspace"
	"github.com/rs/zerolog"
)

// Capture triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerLaunch    = "launch"
	TriggerExit      = "exit"
)

// Service defines the interface the presentation layer uses for backups.
type Service interface {
	GetBackupList(ctx context.Context) ([]models.BackupRecord, error)
	DeleteBackup(ctx context.Context, path string) error
	DeleteAllBackups(ctx context.Context) (int, error)
	RestoreBackup(ctx context.Context, path string) error
	PerformManualBackup(ctx context.Context) (*models.CaptureResult, error)
	StartAutoBackup(ctx context.Context, intervalMinutes int) error
	StopAutoBackup()
	RestartWithNewInterval(ctx context.Context, intervalMinutes int) error
	FormatTimeUntilNextBackup() string
	BackupOnWorkspaceExitIfNeeded(ctx context.Context)
	WaitForIdle(ctx context.Context) error

	Settings(ctx context.Context) (models.BackupSettings, error)
	UpdateSettings(ctx context.Context, bs models.BackupSettings) (models.BackupSettings, error)
	OnWorkspaceOpened(ctx context.Context) error
	Status() models.SchedulerStatus
}

// Impl implements the backup Service interface.
type Impl struct {
	resolver  workspace.Resolver
	executor  executor.Service
	store     settings.Store
	notifier  notify.Service
	metrics   *metrics.Collector
	clock     scheduler.Clock
	scheduler *scheduler.Impl
	logger    zerolog.Logger
}

// New creates a backup service driven by the real clock.
func New(
	logger zerolog.Logger,
	resolver workspace.Resolver,
	exec executor.Service,
	store settings.Store,
	notifier notify.Service,
	collector *metrics.Collector,
) *Impl {
	return NewWithClock(logger, scheduler.RealClock(), resolver, exec, store, notifier, collector)
}

// NewWithClock creates a backup service with a custom clock (for testing).
func NewWithClock(
	logger zerolog.Logger,
	clock scheduler.Clock,
	resolver workspace.Resolver,
	exec executor.Service,
	store settings.Store,
	notifier notify.Service,
	collector *metrics.Collector,
) *Impl {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &Impl{
		resolver: resolver,
		executor: exec,
		store:    store,
		notifier: notifier,
		metrics:  collector,
		clock:    clock,
		logger:   logger,
	}
	s.scheduler = scheduler.NewWithClock(logger.With().Str("component", "scheduler").Logger(), clock, s.scheduledCapture)
	collector.TrackNextFire(func() time.Time {
		st := s.scheduler.Status()
		if !st.Running {
			return time.Time{}
		}
		return st.NextFireAt
	})
	return s
}

// current resolves the active workspace. ok is false when none is active.
func (s *Impl) current(ctx context.Context) (models.Workspace, bool, error) {
	ws, err := s.resolver.Current(ctx)
	if errors.Is(err, models.ErrWorkspaceUnresolved) {
		return models.Workspace{}, false, nil
	}
	if err != nil {
		return models.Workspace{}, false, err
	}
	return ws, true, nil
}

// GetBackupList returns the active workspace's backups, newest first.
func (s *Impl) GetBackupList(ctx context.Context) ([]models.BackupRecord, error) {
	ws, ok, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.BackupRecord{}, nil
	}
	return s.executor.ListForWorkspace(ctx, ws.Name)
}

// DeleteBackup removes one backup of the active workspace.
func (s *Impl) DeleteBackup(ctx context.Context, path string) error {
	ws, ok, err := s.current(ctx)
	if err != nil || !ok {
		return err
	}
	if err := s.executor.DeleteOne(ctx, ws.Name, path); err != nil {
		return err
	}
	s.logger.Info().Str("workspace", ws.Name).Str("path", path).Msg("backup deleted")
	return nil
}

// DeleteAllBackups removes every backup of the active workspace.
func (s *Impl) DeleteAllBackups(ctx context.Context) (int, error) {
	ws, ok, err := s.current(ctx)
	if err != nil || !ok {
		return 0, err
	}
	return s.executor.DeleteAllForWorkspace(ctx, ws.Name)
}

// RestoreBackup overwrites the active workspace's data with the backup at
// path. The caller must have obtained confirmation. It waits for any
// in-flight capture and blocks captures while it runs.
func (s *Impl) RestoreBackup(ctx context.Context, path string) error {
	ws, ok, err := s.current(ctx)
	if err != nil || !ok {
		return err
	}

	err = s.scheduler.RunExclusive(ctx, func(ctx context.Context) error {
		return s.executor.Restore(ctx, ws, path)
	})
	if err != nil {
		s.metrics.RecordRestore(metrics.ResultFailure)
		s.logger.Error().Err(err).Str("workspace", ws.Name).Str("path", path).Msg("restore failed")
		return err
	}
	s.metrics.RecordRestore(metrics.ResultSuccess)
	return nil
}

// PerformManualBackup captures the active workspace outside the schedule.
// It returns models.ErrCaptureInFlight when another capture is running.
// The result is nil when no workspace is active.
func (s *Impl) PerformManualBackup(ctx context.Context) (*models.CaptureResult, error) {
	ws, ok, err := s.current(ctx)
	if err != nil || !ok {
		return nil, err
	}

	var result *models.CaptureResult
	err = s.scheduler.TryRun(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.capture(ctx, ws, TriggerManual)
		return err
	})
	if errors.Is(err, models.ErrCaptureInFlight) {
		s.metrics.RecordCapture(TriggerManual, metrics.ResultSkipped, 0)
	}
	return result, err
}

// StartAutoBackup schedules captures every intervalMinutes from now.
func (s *Impl) StartAutoBackup(ctx context.Context, intervalMinutes int) error {
	if err := settings.ValidateInterval(intervalMinutes); err != nil {
		return err
	}
	return s.scheduler.Start(ctx, time.Duration(intervalMinutes)*time.Minute)
}

// StopAutoBackup cancels the pending scheduled capture.
func (s *Impl) StopAutoBackup() {
	s.scheduler.Stop()
}

// RestartWithNewInterval resets the countdown to the full new interval.
func (s *Impl) RestartWithNewInterval(ctx context.Context, intervalMinutes int) error {
	if err := settings.ValidateInterval(intervalMinutes); err != nil {
		return err
	}
	return s.scheduler.Restart(ctx, time.Duration(intervalMinutes)*time.Minute)
}

// FormatTimeUntilNextBackup returns the countdown to the next scheduled
// capture, or an empty string when automatic backups are stopped.
func (s *Impl) FormatTimeUntilNextBackup() string {
	if !s.scheduler.Status().Running {
		return ""
	}
	return scheduler.FormatCountdown(s.scheduler.TimeUntilNextFire())
}

// BackupOnWorkspaceExitIfNeeded captures the active workspace when backup on
// exit is enabled. A capture already in flight is waited for first, bounded by
// ctx. Failures are logged and never returned.
func (s *Impl) BackupOnWorkspaceExitIfNeeded(ctx context.Context) {
	ws, ok, err := s.current(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("exit backup skipped, workspace lookup failed")
		return
	}
	if !ok {
		return
	}

	bs, err := settings.LoadBackupSettings(ctx, s.store, settings.ScopeFor(ws))
	if err != nil {
		s.logger.Warn().Err(err).Str("workspace", ws.Name).Msg("exit backup skipped, settings unavailable")
		return
	}
	if !bs.BackupOnExit {
		return
	}

	ran := false
	err = s.scheduler.RunExclusive(ctx, func(ctx context.Context) error {
		ran = true
		_, err := s.capture(ctx, ws, TriggerExit)
		return err
	})
	switch {
	case err != nil && !ran:
		s.logger.Warn().Err(err).Str("workspace", ws.Name).Msg("exit backup abandoned, capture still in flight")
	case err != nil:
		s.logger.Error().Err(err).Str("workspace", ws.Name).Msg("exit backup failed")
	}
}

// WaitForIdle blocks until no capture is in flight or ctx is done.
func (s *Impl) WaitForIdle(ctx context.Context) error {
	return s.scheduler.Wait(ctx)
}

// Settings returns the active workspace's backup settings. Without an active
// workspace the global settings are returned.
func (s *Impl) Settings(ctx context.Context) (models.BackupSettings, error) {
	ws, _, err := s.current(ctx)
	if err != nil {
		return models.BackupSettings{}, err
	}
	return settings.LoadBackupSettings(ctx, s.store, settings.ScopeFor(ws))
}

// UpdateSettings validates and persists bs for the active workspace, then
// starts, restarts or stops the scheduler to match. A running scheduler keeps
// its countdown unless the interval changed.
func (s *Impl) UpdateSettings(ctx context.Context, bs models.BackupSettings) (models.BackupSettings, error) {
	ws, _, err := s.current(ctx)
	if err != nil {
		return models.BackupSettings{}, err
	}
	scope := settings.ScopeFor(ws)

	if err := settings.SaveBackupSettings(ctx, s.store, scope, bs); err != nil {
		return models.BackupSettings{}, err
	}

	st := s.scheduler.Status()
	interval := time.Duration(bs.IntervalMinutes) * time.Minute
	switch {
	case !bs.Enabled:
		s.scheduler.Stop()
	case !st.Running || st.Interval != interval:
		if err := s.scheduler.Restart(ctx, interval); err != nil {
			return models.BackupSettings{}, err
		}
	}

	s.logger.Info().
		Str("workspace", ws.Name).
		Bool("enabled", bs.Enabled).
		Int("interval_minutes", bs.IntervalMinutes).
		Int("max_count", bs.MaxCount).
		Msg("backup settings updated")

	return settings.LoadBackupSettings(ctx, s.store, scope)
}

// OnWorkspaceOpened applies the settings of the newly active workspace: the
// scheduler is restarted when enabled and a capture runs when backup on
// launch is set. Without an active workspace the scheduler stays stopped.
// Launch capture failures are logged, not returned.
func (s *Impl) OnWorkspaceOpened(ctx context.Context) error {
	s.scheduler.Stop()

	ws, ok, err := s.current(ctx)
	if err != nil {
		return err
	}
	bs, err := settings.LoadBackupSettings(ctx, s.store, settings.ScopeFor(ws))
	if err != nil {
		return err
	}

	if ok && bs.Enabled {
		if err := s.StartAutoBackup(ctx, bs.IntervalMinutes); err != nil {
			return err
		}
	}

	if ok && bs.BackupOnLaunch {
		err := s.scheduler.TryRun(ctx, func(ctx context.Context) error {
			_, err := s.capture(ctx, ws, TriggerLaunch)
			return err
		})
		if err != nil {
			s.logger.Error().Err(err).Str("workspace", ws.Name).Msg("launch backup failed")
		}
	}
	return nil
}

// Status returns the scheduler state.
func (s *Impl) Status() models.SchedulerStatus {
	return s.scheduler.Status()
}

// scheduledCapture is the scheduler job. Without an active workspace it does nothing.
func (s *Impl) scheduledCapture(ctx context.Context) error {
	ws, ok, err := s.current(ctx)
	if err != nil {
		s.metrics.RecordCapture(TriggerScheduled, metrics.ResultFailure, 0)
		return err
	}
	if !ok {
		s.logger.Debug().Msg("no active workspace, scheduled backup skipped")
		return nil
	}
	_, err = s.capture(ctx, ws, TriggerScheduled)
	return err
}

func (s *Impl) capture(ctx context.Context, ws models.Workspace, trigger string) (*models.CaptureResult, error) {
	start := s.clock.Now()
	result, err := s.executor.Capture(ctx, ws)

	msg := models.BackupNotification{
		Success:   err == nil,
		Trigger:   trigger,
		Workspace: ws.Name,
		StartTime: start,
		Duration:  s.clock.Now().Sub(start),
	}

	if err != nil {
		s.metrics.RecordCapture(trigger, metrics.ResultFailure, 0)
		msg.ErrorMessage = err.Error()
		s.sendNotification(ctx, trigger, msg)
		return nil, err
	}

	s.metrics.RecordCapture(trigger, metrics.ResultSuccess, result.Duration)
	s.metrics.RecordEvictions(len(result.Evicted), result.EvictionFailures)

	msg.FileName = result.Record.FileName
	msg.Size = result.Record.Size
	msg.Evicted = len(result.Evicted)
	s.sendNotification(ctx, trigger, msg)

	return result, nil
}

// sendNotification reports unattended captures. Manual captures are shown to the user directly.
func (s *Impl) sendNotification(ctx context.Context, trigger string, msg models.BackupNotification) {
	if trigger == TriggerManual {
		return
	}
	res, err := s.notifier.Notify(ctx, msg)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to send notification")
		return
	}
	if res != nil && res.Error != nil {
		s.logger.Warn().Err(res.Error).Msg("notification not delivered")
	}
}
