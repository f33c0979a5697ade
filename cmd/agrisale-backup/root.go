package main

import (
	"context"
	"os"
	"strings"

	"github.com/Flocio/AgrisaleWS-sub002/internal/config"
	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/runner"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile    string
	verbose       bool
	quiet         bool
	jsonOutput    bool
	workspaceID   int64
	workspaceName string
)

var rootCmd = &cobra.Command{
	Use:   "agrisale-backup",
	Short: "Automatic backup scheduler for agrisale workspaces",
	Long: `agrisale-backup keeps timestamped snapshots of the active agrisale workspace:
  - Interval-driven automatic backups with a live countdown
  - Backups on launch and on exit
  - Per-workspace retention of the newest N backups
  - Manual backup, restore and delete
  - Optional HTTP API, Prometheus metrics and Telegram notifications

Use "run" to keep the scheduler alive, or the one-shot commands from scripts.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (defaults are used when omitted)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")
	rootCmd.PersistentFlags().Int64Var(&workspaceID, "workspace-id", 0, "pin the workspace id instead of the selected one")
	rootCmd.PersistentFlags().StringVar(&workspaceName, "workspace-name", "", "name of the pinned workspace")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(validateCmd)
}

func setupLogging() {
	// Set output format
	if jsonOutput {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set log level
	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// loadConfig reads the config file, or defaults without one, and applies the
// workspace flags.
func loadConfig() (*models.AppConfig, error) {
	parser := config.NewParser()

	var (
		cfg *models.AppConfig
		err error
	)
	if configFile == "" {
		cfg, err = parser.LoadDefaults()
	} else {
		cfg, err = parser.LoadFile(configFile)
	}
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, err
	}

	if workspaceID > 0 {
		cfg.Workspace = models.WorkspaceConfig{ID: workspaceID, Name: workspaceName}
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}
	return cfg, nil
}

// openStack loads the configuration and wires the services.
func openStack(ctx context.Context) (*runner.Stack, *models.AppConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	st, err := runner.Open(ctx, log.Logger, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize services")
		return nil, nil, err
	}
	return st, cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
