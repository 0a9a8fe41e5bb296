package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"oauthprompt/pkg/logging"
)

const (
	userConfigDir  = ".config/oauthprompt"
	configFileName = "config.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "OAUTHPROMPT_"
)

// GetDefaultConfigPathOrPanic returns ~/.config/oauthprompt.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// FilePath returns the path of config.yaml inside configPath.
func FilePath(configPath string) string {
	return filepath.Join(configPath, configFileName)
}

// LoadConfig loads configuration from the given directory. A missing
// config.yaml is not an error.
func LoadConfig(configPath string) (Config, error) {
	return loadConfig(configPath, os.Environ())
}

func loadConfig(configPath string, environ []string) (Config, error) {
	configFilePath := FilePath(configPath)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("Config", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, NewConfigurationError(configFilePath, "io", "general", err.Error())
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			ce := NewConfigurationError(configFilePath, "parse", "general", err.Error())
			ce.Suggestions = []string{"Check the YAML syntax, indentation and duration values such as 15m"}
			return Config{}, ce
		}
		logging.Info("Config", "Loaded configuration from %s", configFilePath)
	}

	if err := applyEnv(&config, environ); err != nil {
		return Config{}, NewConfigurationError(configFilePath, "env", "general", err.Error())
	}

	applyDerivedDefaults(&config)
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(configPath, config.Storage.Path)
	}
	return config, nil
}

// applyEnv overlays OAUTHPROMPT_* variables onto cfg. Unset variables leave
// the loaded values alone.
func applyEnv(cfg *Config, environ []string) error {
	envMap := env.ToMap(environ)

	sections := []struct {
		prefix string
		target any
	}{
		{"SERVER_", &cfg.Server},
		{"STORAGE_", &cfg.Storage},
		{"PROMPT_", &cfg.Prompt},
	}
	for _, s := range sections {
		opts := env.Options{Prefix: EnvPrefix + s.prefix, Environment: envMap}
		if err := env.ParseWithOptions(s.target, opts); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}

	for i := range cfg.Connections {
		opts := env.Options{
			Prefix:      EnvPrefix + "CONNECTION_" + envName(cfg.Connections[i].Name) + "_",
			Environment: envMap,
		}
		if err := env.ParseWithOptions(&cfg.Connections[i], opts); err != nil {
			return fmt.Errorf("parse env for connection %q: %w", cfg.Connections[i].Name, err)
		}
	}
	return nil
}

// envName converts a connection name into its environment variable form.
func envName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
