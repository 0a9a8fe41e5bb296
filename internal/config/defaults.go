package config

import (
	"fmt"
	"time"
)

const (
	// DefaultCallbackPath is the default path for OAuth callbacks
	DefaultCallbackPath = "/oauth/callback"

	DefaultHost = "localhost"
	DefaultPort = 3978

	DefaultPromptTimeout = 15 * time.Minute
	DefaultMagicCodeTTL  = 10 * time.Minute

	// DefaultSQLitePath is relative to the configuration directory.
	DefaultSQLitePath = "oauthprompt.db"

	// DefaultFileStoragePath is relative to the configuration directory.
	DefaultFileStoragePath = "state"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			CallbackPath: DefaultCallbackPath,
		},
		Storage: StorageConfig{
			Driver: StorageDriverSQLite,
		},
		Prompt: PromptConfig{
			Timeout:      DefaultPromptTimeout,
			MagicCodeTTL: DefaultMagicCodeTTL,
		},
	}
}

// applyDerivedDefaults fills settings that depend on other settings.
func applyDerivedDefaults(cfg *Config) {
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Storage.Path == "" {
		switch cfg.Storage.Driver {
		case StorageDriverSQLite:
			cfg.Storage.Path = DefaultSQLitePath
		case StorageDriverFile:
			cfg.Storage.Path = DefaultFileStoragePath
		}
	}
}
