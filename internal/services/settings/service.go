// Package settings provides the workspace-scoped key-value settings store.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/rs/zerolog"
)

// Key names one persisted setting.
type Key string

// Known settings keys.
const (
	KeyAutoBackupEnabled  Key = "auto_backup_enabled"
	KeyAutoBackupOnLaunch Key = "auto_backup_on_launch"
	KeyAutoBackupOnExit   Key = "auto_backup_on_exit"
	KeyAutoBackupInterval Key = "auto_backup_interval"
	KeyAutoBackupMaxCount Key = "auto_backup_max_count"
	KeyLastBackupTime     Key = "last_backup_time"
	KeyCurrentWorkspaceID Key = "current_workspace_id"
)

// Scope selects between the global namespace and a single workspace.
type Scope struct {
	workspaceID int64
}

// Global returns the un-namespaced scope used by pre-workspace installations.
func Global() Scope {
	return Scope{}
}

// ForWorkspace returns the scope for one workspace. Non-positive ids yield the global scope.
func ForWorkspace(id int64) Scope {
	if id <= 0 {
		return Global()
	}
	return Scope{workspaceID: id}
}

// ScopeFor returns the scope matching a resolved workspace.
func ScopeFor(ws models.Workspace) Scope {
	return ForWorkspace(ws.ID)
}

// WorkspaceID returns the workspace id and whether the scope is workspace-bound.
func (s Scope) WorkspaceID() (int64, bool) {
	return s.workspaceID, s.workspaceID > 0
}

// StorageKey returns the physical key: "<key>" or "<key>_workspace_<id>".
func (s Scope) StorageKey(k Key) string {
	if id, ok := s.WorkspaceID(); ok {
		return fmt.Sprintf("%s_workspace_%d", k, id)
	}
	return string(k)
}

// Store defines the interface for scalar settings persistence.
type Store interface {
	GetString(ctx context.Context, scope Scope, key Key) (string, bool, error)
	SetString(ctx context.Context, scope Scope, key Key, value string) error
	Delete(ctx context.Context, scope Scope, key Key) error
}

// GetBool reads a boolean stored as "1"/"0".
func GetBool(ctx context.Context, s Store, scope Scope, key Key) (bool, bool, error) {
	raw, ok, err := s.GetString(ctx, scope, key)
	if err != nil || !ok {
		return false, ok, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, true, fmt.Errorf("parsing %s: %w", scope.StorageKey(key), err)
	}
	return v, true, nil
}

// SetBool writes a boolean as "1"/"0".
func SetBool(ctx context.Context, s Store, scope Scope, key Key, v bool) error {
	raw := "0"
	if v {
		raw = "1"
	}
	return s.SetString(ctx, scope, key, raw)
}

// GetInt reads an integer setting.
func GetInt(ctx context.Context, s Store, scope Scope, key Key) (int, bool, error) {
	raw, ok, err := s.GetString(ctx, scope, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("parsing %s: %w", scope.StorageKey(key), err)
	}
	return v, true, nil
}

// SetInt writes an integer setting.
func SetInt(ctx context.Context, s Store, scope Scope, key Key, v int) error {
	return s.SetString(ctx, scope, key, strconv.Itoa(v))
}

// GetTime reads an ISO-8601 timestamp.
func GetTime(ctx context.Context, s Store, scope Scope, key Key) (time.Time, bool, error) {
	raw, ok, err := s.GetString(ctx, scope, key)
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	v, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, true, fmt.Errorf("parsing %s: %w", scope.StorageKey(key), err)
	}
	return v, true, nil
}

// SetTime writes an ISO-8601 timestamp.
func SetTime(ctx context.Context, s Store, scope Scope, key Key, v time.Time) error {
	return s.SetString(ctx, scope, key, v.Format(time.RFC3339Nano))
}

// SQLiteStore implements Store on a sqlite "settings" table.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore creates the settings table if needed and returns the store.
func NewSQLiteStore(ctx context.Context, db *sql.DB, logger zerolog.Logger) (*SQLiteStore, error) {
	const schema = `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT NOT NULL PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating settings table: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

// GetString returns the raw value for key in scope.
func (s *SQLiteStore) GetString(ctx context.Context, scope Scope, key Key) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", scope.StorageKey(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", scope.StorageKey(key), err)
	}
	return value, true, nil
}

// SetString upserts the raw value for key in scope.
func (s *SQLiteStore) SetString(ctx context.Context, scope Scope, key Key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		scope.StorageKey(key), value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", scope.StorageKey(key), err)
	}
	s.logger.Debug().Str("key", scope.StorageKey(key)).Msg("setting stored")
	return nil
}

// Delete removes key from scope. Missing keys are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, scope Scope, key Key) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", scope.StorageKey(key)); err != nil {
		return fmt.Errorf("deleting setting %s: %w", scope.StorageKey(key), err)
	}
	return nil
}

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// GetString returns the raw value for key in scope.
func (m *MemoryStore) GetString(_ context.Context, scope Scope, key Key) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[scope.StorageKey(key)]
	return v, ok, nil
}

// SetString stores the raw value for key in scope.
func (m *MemoryStore) SetString(_ context.Context, scope Scope, key Key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope.StorageKey(key)] = value
	return nil
}

// Delete removes key from scope.
func (m *MemoryStore) Delete(_ context.Context, scope Scope, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, scope.StorageKey(key))
	return nil
}
