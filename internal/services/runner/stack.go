package runner

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Flocio/AgrisaleWS-sub002/internal/database"
	"github.com/Flocio/AgrisaleWS-sub002/internal/metrics"
	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/backup"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/datastore"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/executor"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/notify"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/settings"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/storage"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/workspace"
	"github.com/rs/zerolog"
)

// Stack holds the wired services of one process.
type Stack struct {
	DB        *sql.DB
	Settings  *settings.SQLiteStore
	Data      *datastore.Impl
	Resolver  workspace.Resolver
	Storage   *storage.Impl
	Executor  *executor.Impl
	Metrics   *metrics.Collector
	Backup    *backup.Impl
	Workspace *workspace.SettingsResolver // nil when the workspace is fixed by config
}

// Open wires every service from cfg. The caller must Close the stack.
func Open(ctx context.Context, logger zerolog.Logger, cfg models.AppConfig) (*Stack, error) {
	db, err := database.Open(cfg.Data.Database)
	if err != nil {
		return nil, err
	}

	st := &Stack{DB: db}
	if err := st.wire(ctx, logger, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug().
		Str("database", cfg.Data.Database).
		Str("directory", st.Storage.Dir()).
		Bool("compress", cfg.Backup.Compress).
		Bool("telegram", cfg.Telegram != nil).
		Msg("services initialized")

	return st, nil
}

func (st *Stack) wire(ctx context.Context, logger zerolog.Logger, cfg models.AppConfig) error {
	var err error

	st.Settings, err = settings.NewSQLiteStore(ctx, st.DB, logger.With().Str("component", "settings").Logger())
	if err != nil {
		return fmt.Errorf("settings store: %w", err)
	}

	st.Data, err = datastore.New(ctx, st.DB, logger.With().Str("component", "datastore").Logger())
	if err != nil {
		return fmt.Errorf("data store: %w", err)
	}

	if cfg.Workspace.ID > 0 {
		st.Resolver = workspace.Fixed(models.Workspace{ID: cfg.Workspace.ID, Name: cfg.Workspace.Name})
	} else {
		st.Workspace = workspace.NewSettingsResolver(logger.With().Str("component", "workspace").Logger(), st.Settings, st.Data)
		st.Resolver = st.Workspace
	}

	st.Storage, err = storage.New(logger.With().Str("component", "storage").Logger(), cfg.Backup.Directory)
	if err != nil {
		return fmt.Errorf("backup storage: %w", err)
	}

	st.Executor = executor.New(logger.With().Str("component", "executor").Logger(), st.Storage, st.Data, st.Settings, cfg.Backup)
	st.Metrics = metrics.NewCollector(nil)

	notifier := notify.New(logger.With().Str("component", "notify").Logger(), cfg.Telegram)
	st.Backup = backup.New(logger, st.Resolver, st.Executor, st.Settings, notifier, st.Metrics)
	return nil
}

// Close stops the scheduler and closes the database.
func (st *Stack) Close() error {
	if st.Backup != nil {
		st.Backup.StopAutoBackup()
	}
	return st.DB.Close()
}
