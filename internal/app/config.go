package app

import (
	"oauthprompt/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug enables debug logging.
	Debug bool

	// Silent discards log output.
	Silent bool

	// ConfigPath is the configuration directory.
	ConfigPath string

	// AppConfig is the loaded configuration file.
	AppConfig *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}
