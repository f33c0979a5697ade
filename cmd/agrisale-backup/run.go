package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Flocio/AgrisaleWS-sub002/internal/api"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the backup scheduler until interrupted",
	Long: `Run the backup service for the active workspace:
1. Apply the workspace's backup settings (start the schedule if enabled)
2. Take a backup on launch (if enabled)
3. Serve the HTTP API and /metrics (if api.listen is set)
4. On SIGINT/SIGTERM take a backup on exit (if enabled) and shut down`,
	RunE: runService,
}

func runService(cmd *cobra.Command, args []string) error {
	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	st, cfg, err := openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	log.Info().
		Str("config", configFile).
		Str("database", cfg.Data.Database).
		Str("directory", cfg.Backup.Directory).
		Msg("configuration loaded")

	handler := api.NewRouter(log.Logger, st.Backup, st.Metrics, cfg.API.AllowedOrigins)
	runnerSvc := runner.New(log.Logger, st.Backup, handler, cfg.API.Listen)
	if err := runnerSvc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("backup service failed")
		return err
	}
	return nil
}
