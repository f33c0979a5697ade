package runner

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, compress bool) models.AppConfig {
	t.Helper()
	dir := t.TempDir()
	return models.AppConfig{
		Data: models.DataConfig{Database: filepath.Join(dir, "agrisale.db")},
		Backup: models.StorageConfig{
			Directory: filepath.Join(dir, "backups"),
			Prefix:    "backup",
			Compress:  compress,
		},
	}
}

func customerNames(t *testing.T, st *Stack, workspaceID int64) []string {
	t.Helper()
	rows, err := st.DB.Query("SELECT name FROM customers WHERE workspaceId = ? ORDER BY name", workspaceID)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestStack_CaptureListRestore(t *testing.T) {
	for _, compress := range []bool{true, false} {
		t.Run(map[bool]string{true: "zstd", false: "json"}[compress], func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, compress)

			st, err := Open(ctx, zerolog.New(io.Discard), cfg)
			require.NoError(t, err)
			defer st.Close()

			ws, err := st.Data.CreateWorkspace(ctx, "Farm")
			require.NoError(t, err)
			require.NotNil(t, st.Workspace)
			require.NoError(t, st.Workspace.Select(ctx, ws.ID))

			_, err = st.DB.Exec("INSERT INTO customers (workspaceId, name) VALUES (?, ?)", ws.ID, "Alice")
			require.NoError(t, err)

			result, err := st.Backup.PerformManualBackup(ctx)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.FileExists(t, result.Record.Path)

			records, err := st.Backup.GetBackupList(ctx)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, result.Record.FileName, records[0].FileName)

			bs, err := st.Backup.Settings(ctx)
			require.NoError(t, err)
			require.NotNil(t, bs.LastBackupTime)

			_, err = st.DB.Exec("INSERT INTO customers (workspaceId, name) VALUES (?, ?)", ws.ID, "Bob")
			require.NoError(t, err)
			assert.Equal(t, []string{"Alice", "Bob"}, customerNames(t, st, ws.ID))

			require.NoError(t, st.Backup.RestoreBackup(ctx, records[0].FileName))
			assert.Equal(t, []string{"Alice"}, customerNames(t, st, ws.ID))

			removed, err := st.Backup.DeleteAllBackups(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, removed)
			_, err = os.Stat(result.Record.Path)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestStack_NoWorkspaceSelected(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, zerolog.New(io.Discard), testConfig(t, true))
	require.NoError(t, err)
	defer st.Close()

	result, err := st.Backup.PerformManualBackup(ctx)
	require.NoError(t, err)
	assert.Nil(t, result)

	records, err := st.Backup.GetBackupList(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, st.Backup.OnWorkspaceOpened(ctx))
	assert.False(t, st.Backup.Status().Running)
}

func TestStack_FixedWorkspace(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, false)
	cfg.Workspace = models.WorkspaceConfig{ID: 1, Name: "Farm"}

	st, err := Open(ctx, zerolog.New(io.Discard), cfg)
	require.NoError(t, err)
	defer st.Close()

	assert.Nil(t, st.Workspace)

	ws, err := st.Data.CreateWorkspace(ctx, "Farm")
	require.NoError(t, err)
	require.Equal(t, int64(1), ws.ID)

	result, err := st.Backup.PerformManualBackup(ctx)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Record.FileName, "backup_Farm_")
}

func TestStack_SettingsPersistAcrossOpen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, true)

	st, err := Open(ctx, zerolog.New(io.Discard), cfg)
	require.NoError(t, err)
	ws, err := st.Data.CreateWorkspace(ctx, "Farm")
	require.NoError(t, err)
	require.NoError(t, st.Workspace.Select(ctx, ws.ID))

	_, err = st.Backup.UpdateSettings(ctx, models.BackupSettings{
		Enabled:         true,
		BackupOnExit:    true,
		IntervalMinutes: 60,
		MaxCount:        10,
	})
	require.NoError(t, err)
	assert.True(t, st.Backup.Status().Running)
	require.NoError(t, st.Close())

	st, err = Open(ctx, zerolog.New(io.Discard), cfg)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Backup.OnWorkspaceOpened(ctx))
	status := st.Backup.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 60, int(status.Interval.Minutes()))

	bs, err := st.Backup.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, bs.BackupOnExit)
	assert.Equal(t, 10, bs.MaxCount)

	st.Backup.BackupOnWorkspaceExitIfNeeded(ctx)
	records, err := st.Backup.GetBackupList(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestOpen_BadDatabasePath(t *testing.T) {
	cfg := testConfig(t, true)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfg.Data.Database = filepath.Join(blocker, "agrisale.db")

	_, err := Open(context.Background(), zerolog.New(io.Discard), cfg)

	assert.Error(t, err)
}
