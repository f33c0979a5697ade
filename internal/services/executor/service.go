// Package executor captures and restores workspace backups.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/datastore"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/retention"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/settings"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	timestampLayout = "20060102150405"
	maxNameAttempts = 100
)

// Service defines the interface for backup capture and restore.
type Service interface {
	Capture(ctx context.Context, ws models.Workspace) (*models.CaptureResult, error)
	Restore(ctx context.Context, ws models.Workspace, path string) error
	DeleteOne(ctx context.Context, workspaceName, path string) error
	DeleteAllForWorkspace(ctx context.Context, workspaceName string) (int, error)
	ListForWorkspace(ctx context.Context, workspaceName string) ([]models.BackupRecord, error)
}

// Impl implements the executor Service interface.
type Impl struct {
	storage  storage.Service
	data     datastore.Service
	settings settings.Store
	cfg      models.StorageConfig
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates a new executor service.
func New(
	logger zerolog.Logger,
	storageSvc storage.Service,
	dataSvc datastore.Service,
	settingsStore settings.Store,
	cfg models.StorageConfig,
) *Impl {
	return NewWithClock(logger, storageSvc, dataSvc, settingsStore, cfg, time.Now)
}

// NewWithClock creates a new executor service with a custom clock (for testing).
func NewWithClock(
	logger zerolog.Logger,
	storageSvc storage.Service,
	dataSvc datastore.Service,
	settingsStore settings.Store,
	cfg models.StorageConfig,
	now func() time.Time,
) *Impl {
	if cfg.Prefix == "" {
		cfg.Prefix = "backup"
	}
	return &Impl{
		storage:  storageSvc,
		data:     dataSvc,
		settings: settingsStore,
		cfg:      cfg,
		now:      now,
		logger:   logger,
	}
}

// ValidateWorkspaceName rejects names that cannot be embedded in a backup file name.
func ValidateWorkspaceName(name string) error {
	return models.ValidateWorkspaceName(name)
}

// BelongsTo reports whether fileName is a backup of the named workspace.
func BelongsTo(fileName, workspaceName string) bool {
	return workspaceName != "" && strings.Contains(fileName, "_"+workspaceName+"_")
}

// Capture writes a new backup of the workspace, records the backup time and
// evicts backups beyond the workspace's max count. When the artifact cannot
// be written nothing else happens. Eviction failures are logged and counted
// but do not fail the capture.
func (s *Impl) Capture(ctx context.Context, ws models.Workspace) (*models.CaptureResult, error) {
	if err := ValidateWorkspaceName(ws.Name); err != nil {
		return nil, err
	}

	start := s.now()
	scope := settings.ScopeFor(ws)

	s.logger.Info().
		Int64("workspace_id", ws.ID).
		Str("workspace", ws.Name).
		Msg("starting backup capture")

	snap, err := s.data.Export(ctx, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("exporting workspace: %w", err)
	}
	snap.ID = uuid.NewString()
	snap.CreatedAt = start.UTC()

	payload, err := encodeSnapshot(snap, s.cfg.Compress)
	if err != nil {
		return nil, err
	}

	path, name, err := s.writeUnique(ctx, ws.Name, start, payload)
	if err != nil {
		return nil, err
	}

	if err := settings.SetLastBackupTime(ctx, s.settings, scope, s.now()); err != nil {
		s.logger.Warn().Err(err).Str("workspace", ws.Name).Msg("failed to record last backup time")
	}

	result := &models.CaptureResult{
		Record: models.BackupRecord{
			FileName:     name,
			Path:         path,
			Size:         int64(len(payload)),
			ModifiedTime: start,
		},
	}
	if stats, err := s.storage.StatAll(ctx, []string{path}); err == nil {
		if st, ok := stats[path]; ok {
			result.Record.Size = st.Size
			result.Record.ModifiedTime = st.ModifiedTime
		}
	}

	result.Evicted, result.EvictionFailures = s.evict(ctx, ws, scope)
	result.Duration = s.now().Sub(start)

	s.logger.Info().
		Str("workspace", ws.Name).
		Str("file", name).
		Int64("size", result.Record.Size).
		Int("rows", snap.RowCount()).
		Int("evicted", len(result.Evicted)).
		Int("eviction_failures", result.EvictionFailures).
		Dur("duration", result.Duration).
		Msg("backup capture completed")

	return result, nil
}

func (s *Impl) writeUnique(ctx context.Context, workspaceName string, at time.Time, payload []byte) (string, string, error) {
	stamp := at.Format(timestampLayout)
	for n := 0; n < maxNameAttempts; n++ {
		suffix := stamp
		if n > 0 {
			suffix = fmt.Sprintf("%s_%02d", stamp, n)
		}
		name := fmt.Sprintf("%s_%s_%s.%s", s.cfg.Prefix, workspaceName, suffix, s.cfg.Extension())

		path, err := s.storage.Write(ctx, name, payload)
		if err == nil {
			return path, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", err
		}
	}
	return "", "", models.NewStorageIOError("write", stamp, fmt.Errorf("no free file name after %d attempts", maxNameAttempts))
}

func (s *Impl) evict(ctx context.Context, ws models.Workspace, scope settings.Scope) ([]models.BackupRecord, int) {
	bs, err := settings.LoadBackupSettings(ctx, s.settings, scope)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load retention settings, using defaults")
		bs = settings.DefaultBackupSettings()
	}

	records, err := s.ListForWorkspace(ctx, ws.Name)
	if err != nil {
		s.logger.Warn().Err(&models.RetentionEvictionError{Path: s.storage.Dir(), Cause: err}).Msg("eviction skipped")
		return nil, 1
	}

	evicted := make([]models.BackupRecord, 0)
	failures := 0
	for _, rec := range retention.SelectForEviction(records, bs.MaxCount) {
		if err := s.storage.Delete(ctx, rec.Path); err != nil {
			failures++
			s.logger.Warn().
				Err(&models.RetentionEvictionError{Path: rec.Path, Cause: err}).
				Msg("eviction failed, retrying on next capture")
			continue
		}
		evicted = append(evicted, rec)
		s.logger.Debug().Str("file", rec.FileName).Msg("evicted old backup")
	}
	return evicted, failures
}

// Restore replaces the workspace's live data with the backup at path. The
// caller is responsible for obtaining confirmation first.
func (s *Impl) Restore(ctx context.Context, ws models.Workspace, path string) error {
	if err := ValidateWorkspaceName(ws.Name); err != nil {
		return err
	}
	if !BelongsTo(filepath.Base(path), ws.Name) {
		return fmt.Errorf("%w: %s is not a backup of %q", models.ErrInvalidBackupPath, filepath.Base(path), ws.Name)
	}

	payload, err := s.storage.Read(ctx, path)
	if err != nil {
		return err
	}
	snap, err := decodeSnapshot(payload)
	if err != nil {
		return err
	}
	if snap.WorkspaceName != ws.Name {
		return fmt.Errorf("%w: snapshot belongs to workspace %q", models.ErrInvalidBackupPath, snap.WorkspaceName)
	}

	s.logger.Warn().
		Str("workspace", ws.Name).
		Str("file", filepath.Base(path)).
		Str("snapshot_id", snap.ID).
		Msg("restoring backup over live data")

	if err := s.data.Import(ctx, ws.ID, snap); err != nil {
		return fmt.Errorf("restoring %s: %w", filepath.Base(path), err)
	}

	s.logger.Info().
		Str("workspace", ws.Name).
		Int("rows", snap.RowCount()).
		Msg("backup restored")
	return nil
}

// DeleteOne removes a single backup of the workspace.
func (s *Impl) DeleteOne(ctx context.Context, workspaceName, path string) error {
	if !BelongsTo(filepath.Base(path), workspaceName) {
		return fmt.Errorf("%w: %s is not a backup of %q", models.ErrInvalidBackupPath, filepath.Base(path), workspaceName)
	}
	return s.storage.Delete(ctx, path)
}

// DeleteAllForWorkspace removes every backup of the workspace and returns how
// many were actually deleted, along with any deletion errors.
func (s *Impl) DeleteAllForWorkspace(ctx context.Context, workspaceName string) (int, error) {
	records, err := s.ListForWorkspace(ctx, workspaceName)
	if err != nil {
		return 0, err
	}

	deleted := 0
	var errs []error
	for _, rec := range records {
		if err := s.storage.Delete(ctx, rec.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}

	s.logger.Info().
		Str("workspace", workspaceName).
		Int("deleted", deleted).
		Int("failed", len(errs)).
		Msg("deleted workspace backups")

	return deleted, errors.Join(errs...)
}

// ListForWorkspace returns the workspace's backups, newest first. An empty
// workspace name yields an empty list.
func (s *Impl) ListForWorkspace(ctx context.Context, workspaceName string) ([]models.BackupRecord, error) {
	if workspaceName == "" {
		return []models.BackupRecord{}, nil
	}

	all, err := s.storage.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.BackupRecord, 0, len(all))
	for _, rec := range all {
		if BelongsTo(rec.FileName, workspaceName) {
			out = append(out, rec)
		}
	}

	out = retention.SortOldestFirst(out)
	slices.Reverse(out)
	return out, nil
}
