// Package models contains the data structures used throughout agrisale-backup.
package models

// AppConfig holds the complete configuration for the backup service.
type AppConfig struct {
	Data      DataConfig
	Backup    StorageConfig
	Workspace WorkspaceConfig
	API       APIConfig
	Telegram  *TelegramConfig // nil if not configured
}

// DataConfig holds the location of the local data store.
type DataConfig struct {
	Database string // sqlite file holding settings and workspace data
}

// StorageConfig holds backup artifact settings.
type StorageConfig struct {
	Directory string
	Prefix    string
	Compress  bool
}

// Extension returns the artifact file extension without the leading dot.
func (c StorageConfig) Extension() string {
	if c.Compress {
		return "json.zst"
	}
	return "json"
}

// WorkspaceConfig pins a fixed workspace. ID 0 means resolve from settings.
type WorkspaceConfig struct {
	ID   int64
	Name string
}

// APIConfig holds the optional HTTP surface configuration.
type APIConfig struct {
	Listen         string // empty disables the HTTP surface
	AllowedOrigins []string
}
