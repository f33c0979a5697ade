// Package datastore reads and replaces the business data of a single workspace.
package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Flocio/AgrisaleWS-sub002/internal/database"
	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/rs/zerolog"
)

const workspaceColumn = "workspaceId"

// Service defines the interface for workspace data operations.
type Service interface {
	Export(ctx context.Context, workspaceID int64) (*models.Snapshot, error)
	Import(ctx context.Context, workspaceID int64, snap *models.Snapshot) error
	WorkspaceName(ctx context.Context, workspaceID int64) (string, error)
	CreateWorkspace(ctx context.Context, name string) (models.Workspace, error)
}

// Impl implements the datastore Service interface on sqlite.
type Impl struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New migrates the schema and returns a datastore service.
func New(ctx context.Context, db *sql.DB, logger zerolog.Logger) (*Impl, error) {
	if err := database.Migrate(ctx, db); err != nil {
		return nil, err
	}
	return &Impl{db: db, logger: logger}, nil
}

// Export reads every business table row belonging to the workspace.
func (s *Impl) Export(ctx context.Context, workspaceID int64) (*models.Snapshot, error) {
	name, err := s.WorkspaceName(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{
		FormatVersion: models.SnapshotFormatVersion,
		WorkspaceID:   workspaceID,
		WorkspaceName: name,
		Tables:        make(map[string][]map[string]any, len(database.BusinessTables)),
	}

	for _, table := range database.BusinessTables {
		rows, err := s.exportTable(ctx, table, workspaceID)
		if err != nil {
			return nil, err
		}
		snap.Tables[table] = rows
	}

	s.logger.Debug().
		Int64("workspace_id", workspaceID).
		Int("rows", snap.RowCount()).
		Msg("workspace exported")

	return snap, nil
}

func (s *Impl) exportTable(ctx context.Context, table string, workspaceID int64) ([]map[string]any, error) {
	//nolint:gosec // table names come from database.BusinessTables
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY id", table, workspaceColumn), workspaceID)
	if err != nil {
		return nil, fmt.Errorf("exporting %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading %s columns: %w", table, err)
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}
	return out, nil
}

// Import replaces all business data of the workspace with the snapshot rows.
// It runs in one transaction; on any error the existing data is left intact.
// Only columns present in the live table are written and workspaceId is
// always forced to the target workspace.
func (s *Impl) Import(ctx context.Context, workspaceID int64, snap *models.Snapshot) (err error) {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if _, err := s.WorkspaceName(ctx, workspaceID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range slices.Backward(database.BusinessTables) {
		//nolint:gosec // table names come from database.BusinessTables
		if _, err = tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, workspaceColumn), workspaceID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	inserted := 0
	for _, table := range database.BusinessTables {
		rows := snap.Tables[table]
		if len(rows) == 0 {
			continue
		}

		var cols []string
		cols, err = tableColumns(ctx, tx, table)
		if err != nil {
			return err
		}

		for _, row := range rows {
			if err = insertRow(ctx, tx, table, cols, workspaceID, row); err != nil {
				return err
			}
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}

	s.logger.Info().
		Int64("workspace_id", workspaceID).
		Int("rows", inserted).
		Msg("workspace data replaced")

	return nil
}

func tableColumns(ctx context.Context, tx *sql.Tx, table string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("reading %s schema: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning %s schema: %w", table, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func insertRow(ctx context.Context, tx *sql.Tx, table string, cols []string, workspaceID int64, row map[string]any) error {
	names := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))

	for _, col := range cols {
		if col == workspaceColumn {
			names = append(names, col)
			args = append(args, workspaceID)
			continue
		}
		v, ok := row[col]
		if !ok {
			continue
		}
		names = append(names, col)
		args = append(args, normalizeValue(v))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	//nolint:gosec // identifiers come from PRAGMA table_info
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), placeholders)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

// normalizeValue converts decoded JSON values into driver-friendly types.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return v
	}
}

// WorkspaceName returns the display name of the workspace.
func (s *Impl) WorkspaceName(ctx context.Context, workspaceID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, "SELECT name FROM workspaces WHERE id = ?", workspaceID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("workspace %d: %w", workspaceID, models.ErrWorkspaceUnresolved)
	}
	if err != nil {
		return "", fmt.Errorf("reading workspace %d: %w", workspaceID, err)
	}
	return name, nil
}

// CreateWorkspace inserts a new workspace.
func (s *Impl) CreateWorkspace(ctx context.Context, name string) (models.Workspace, error) {
	if err := models.ValidateWorkspaceName(name); err != nil {
		return models.Workspace{}, err
	}
	res, err := s.db.ExecContext(ctx, "INSERT INTO workspaces (name) VALUES (?)", name)
	if err != nil {
		return models.Workspace{}, fmt.Errorf("creating workspace: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Workspace{}, fmt.Errorf("reading workspace id: %w", err)
	}
	s.logger.Info().Int64("workspace_id", id).Str("name", name).Msg("workspace created")
	return models.Workspace{ID: id, Name: name}, nil
}
