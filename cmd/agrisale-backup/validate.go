package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without opening the database or touching backups.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Database: %s\n", cfg.Data.Database)
	fmt.Printf("  Backup directory: %s\n", cfg.Backup.Directory)
	fmt.Printf("  File name: %s_<workspace>_<yyyyMMddHHmmss>.%s\n", cfg.Backup.Prefix, cfg.Backup.Extension())
	fmt.Println()
	fmt.Println("Workspace:")
	if cfg.Workspace.ID > 0 {
		fmt.Printf("  Pinned: %s (id %d)\n", cfg.Workspace.Name, cfg.Workspace.ID)
	} else {
		fmt.Println("  Selected in settings")
	}
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  HTTP API: %v\n", cfg.API.Listen != "")
	fmt.Printf("  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.API.Listen != "" {
		fmt.Println()
		fmt.Println("HTTP API Configuration:")
		fmt.Printf("  Listen: %s\n", cfg.API.Listen)
		fmt.Printf("  Allowed origins: %v\n", cfg.API.AllowedOrigins)
	}

	if cfg.Telegram != nil {
		fmt.Println()
		fmt.Println("Telegram Configuration:")
		fmt.Printf("  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Printf("  Bot Token: (configured)\n")
		fmt.Printf("  Notify on success: %v\n", cfg.Telegram.OnSuccess)
	}

	return nil
}
