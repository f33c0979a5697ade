// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/spf13/viper"
)

// Default values applied when a key is absent.
const (
	DefaultDatabase  = "./agrisale.db"
	DefaultPrefix    = "backup"
	DefaultDirectory = "./backups"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("data.database", DefaultDatabase)
	v.SetDefault("backup.directory", DefaultDirectory)
	v.SetDefault("backup.prefix", DefaultPrefix)
	v.SetDefault("backup.compress", true)
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.AppConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.AppConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

// LoadDefaults builds a configuration from defaults only, for running without a file.
func (p *Parser) LoadDefaults() (*models.AppConfig, error) {
	return p.parse()
}

func (p *Parser) parse() (*models.AppConfig, error) {
	cfg := &models.AppConfig{}

	cfg.Data = models.DataConfig{
		Database: p.expandEnv(p.v.GetString("data.database")),
	}
	if cfg.Data.Database == "" {
		return nil, fmt.Errorf("data.database is required")
	}

	cfg.Backup = models.StorageConfig{
		Directory: p.expandEnv(p.v.GetString("backup.directory")),
		Prefix:    p.v.GetString("backup.prefix"),
		Compress:  p.v.GetBool("backup.compress"),
	}
	if cfg.Backup.Directory == "" {
		return nil, fmt.Errorf("backup.directory is required")
	}
	if strings.ContainsAny(cfg.Backup.Prefix, `/\`) {
		return nil, fmt.Errorf("backup.prefix must not contain path separators")
	}
	if cfg.Backup.Prefix == "" {
		cfg.Backup.Prefix = DefaultPrefix
	}

	cfg.Workspace = models.WorkspaceConfig{
		ID:   p.v.GetInt64("workspace.id"),
		Name: p.v.GetString("workspace.name"),
	}
	if cfg.Workspace.ID < 0 {
		return nil, fmt.Errorf("workspace.id must not be negative")
	}
	if cfg.Workspace.ID > 0 && cfg.Workspace.Name == "" {
		return nil, fmt.Errorf("workspace.name is required when workspace.id is set")
	}

	cfg.API = models.APIConfig{
		Listen:         p.v.GetString("api.listen"),
		AllowedOrigins: p.v.GetStringSlice("api.allowed_origins"),
	}

	// Parse optional Telegram config.
	if p.v.IsSet("notify.telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken:  p.expandEnv(p.v.GetString("notify.telegram.bot_token")),
			ChatID:    p.expandEnv(p.v.GetString("notify.telegram.chat_id")),
			OnSuccess: p.v.GetBool("notify.telegram.on_success"),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("notify.telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("notify.telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Data.Database == "" {
		return fmt.Errorf("data.database is required")
	}

	if cfg.Backup.Directory == "" {
		return fmt.Errorf("backup.directory is required")
	}

	if cfg.Workspace.ID > 0 && cfg.Workspace.Name == "" {
		return fmt.Errorf("workspace.name is required when workspace.id is set")
	}

	if info, err := os.Stat(cfg.Backup.Directory); err == nil && !info.IsDir() {
		return fmt.Errorf("backup.directory %s is not a directory", cfg.Backup.Directory)
	}

	if cfg.Telegram != nil && (cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "") {
		return fmt.Errorf("telegram requires bot_token and chat_id")
	}

	return nil
}
