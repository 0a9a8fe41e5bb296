package config

import (
	"time"

	"oauthprompt/internal/storage"
)

// Config is the top-level configuration structure for oauthprompt.
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Storage     StorageConfig      `yaml:"storage"`
	Prompt      PromptConfig       `yaml:"prompt"`
	Connections []ConnectionConfig `yaml:"connections,omitempty"`
}

// ServerConfig configures the OAuth callback HTTP server.
type ServerConfig struct {
	Host         string `yaml:"host,omitempty" env:"HOST"`
	Port         int    `yaml:"port,omitempty" env:"PORT"`
	PublicURL    string `yaml:"publicUrl,omitempty" env:"PUBLIC_URL"`         // Externally reachable base URL (default: http://host:port)
	CallbackPath string `yaml:"callbackPath,omitempty" env:"CALLBACK_PATH"` // Path providers redirect to (default: /oauth/callback)
}

// Storage drivers.
const (
	StorageDriverMemory = storage.DriverMemory
	StorageDriverFile   = storage.DriverFile
	StorageDriverSQLite = storage.DriverSQLite
)

// StorageConfig selects where conversation state and tokens are kept.
type StorageConfig struct {
	Driver string `yaml:"driver,omitempty" env:"DRIVER"`
	Path   string `yaml:"path,omitempty" env:"PATH"` // Directory for file, database file for sqlite
}

// PromptConfig configures the sign-in prompt used by the chat command.
type PromptConfig struct {
	ConnectionName      string        `yaml:"connectionName,omitempty" env:"CONNECTION_NAME"` // Defaults to the first connection
	Title               string        `yaml:"title,omitempty" env:"TITLE"`
	Text                string        `yaml:"text,omitempty" env:"TEXT"`
	Timeout             time.Duration `yaml:"timeout,omitempty" env:"TIMEOUT"`
	EndOnInvalidMessage bool          `yaml:"endOnInvalidMessage,omitempty" env:"END_ON_INVALID_MESSAGE"`
	MagicCodeTTL        time.Duration `yaml:"magicCodeTTL,omitempty" env:"MAGIC_CODE_TTL"`
}

// ConnectionConfig is one OAuth provider binding.
type ConnectionConfig struct {
	Name         string   `yaml:"name"`
	ClientID     string   `yaml:"clientId" env:"CLIENT_ID"`
	ClientSecret string   `yaml:"clientSecret,omitempty" env:"CLIENT_SECRET"`
	AuthURL      string   `yaml:"authUrl"`
	TokenURL     string   `yaml:"tokenUrl"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// Connection returns the named connection.
func (c Config) Connection(name string) (ConnectionConfig, bool) {
	for _, conn := range c.Connections {
		if conn.Name == name {
			return conn, true
		}
	}
	return ConnectionConfig{}, false
}

// PromptConnection is the connection the sign-in prompt uses.
func (c Config) PromptConnection() string {
	if c.Prompt.ConnectionName != "" {
		return c.Prompt.ConnectionName
	}
	if len(c.Connections) > 0 {
		return c.Connections[0].Name
	}
	return ""
}
