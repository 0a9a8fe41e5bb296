package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 8080
  publicUrl: https://bot.example.com
storage:
  driver: file
prompt:
  timeout: 2m
  endOnInvalidMessage: true
connections:
  - name: github
    clientId: Iv1.abc
    clientSecret: from-file
    authUrl: https://github.com/login/oauth/authorize
    tokenUrl: https://github.com/login/oauth/access_token
    scopes: [repo, read:user]
`

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadConfig(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "http://localhost:3978", cfg.Server.PublicURL)
	assert.Equal(t, DefaultCallbackPath, cfg.Server.CallbackPath)
	assert.Equal(t, StorageDriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(dir, DefaultSQLitePath), cfg.Storage.Path)
	assert.Equal(t, 15*time.Minute, cfg.Prompt.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Prompt.MagicCodeTTL)
	assert.Empty(t, cfg.Connections)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, sampleConfig)

	cfg, err := loadConfig(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Server.Host, "unset fields keep defaults")
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://bot.example.com", cfg.Server.PublicURL)
	assert.Equal(t, filepath.Join(dir, DefaultFileStoragePath), cfg.Storage.Path)
	assert.Equal(t, 2*time.Minute, cfg.Prompt.Timeout)
	assert.True(t, cfg.Prompt.EndOnInvalidMessage)
	require.Len(t, cfg.Connections, 1)
	assert.Equal(t, []string{"repo", "read:user"}, cfg.Connections[0].Scopes)
	assert.Equal(t, "github", cfg.PromptConnection())

	assert.NoError(t, cfg.Validate(FilePath(dir)))
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, sampleConfig)

	cfg, err := loadConfig(dir, []string{
		"OAUTHPROMPT_SERVER_PORT=9999",
		"OAUTHPROMPT_STORAGE_DRIVER=memory",
		"OAUTHPROMPT_PROMPT_TIMEOUT=30s",
		"OAUTHPROMPT_PROMPT_END_ON_INVALID_MESSAGE=false",
		"OAUTHPROMPT_CONNECTION_GITHUB_CLIENT_SECRET=from-env",
		"UNRELATED=1",
	})
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "https://bot.example.com", cfg.Server.PublicURL)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Empty(t, cfg.Storage.Path)
	assert.Equal(t, 30*time.Second, cfg.Prompt.Timeout)
	assert.False(t, cfg.Prompt.EndOnInvalidMessage)
	assert.Equal(t, "from-env", cfg.Connections[0].ClientSecret)
	assert.Equal(t, "Iv1.abc", cfg.Connections[0].ClientID)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		environ   []string
		errorType string
	}{
		{name: "malformed yaml", content: "server: [", errorType: "parse"},
		{name: "bad duration", content: "prompt:\n  timeout: soon\n", errorType: "parse"},
		{name: "bad env value", content: sampleConfig, environ: []string{"OAUTHPROMPT_SERVER_PORT=eighty"}, errorType: "env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := loadConfig(dir, tt.environ)
			require.Error(t, err)

			var ce ConfigurationError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.errorType, ce.ErrorType)
			assert.Equal(t, "config.yaml", ce.FileName)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := GetDefaultConfig()
		applyDerivedDefaults(&cfg)
		cfg.Connections = []ConnectionConfig{{
			Name:     "github",
			ClientID: "abc",
			AuthURL:  "https://example.com/authorize",
			TokenURL: "https://example.com/token",
		}}
		return cfg
	}

	tests := []struct {
		name       string
		mutate     func(*Config)
		categories []string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, categories: []string{"server"}},
		{name: "relative public url", mutate: func(c *Config) { c.Server.PublicURL = "bot.example.com" }, categories: []string{"server"}},
		{name: "callback path", mutate: func(c *Config) { c.Server.CallbackPath = "callback" }, categories: []string{"server"}},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "redis" }, categories: []string{"storage"}},
		{name: "sqlite without path", mutate: func(c *Config) { c.Storage.Path = "" }, categories: []string{"storage"}},
		{name: "memory without path", mutate: func(c *Config) { c.Storage = StorageConfig{Driver: StorageDriverMemory} }},
		{name: "negative timeout", mutate: func(c *Config) { c.Prompt.Timeout = -time.Second }, categories: []string{"prompt"}},
		{name: "zero timeout uses default", mutate: func(c *Config) { c.Prompt.Timeout = 0 }},
		{name: "zero magic code ttl", mutate: func(c *Config) { c.Prompt.MagicCodeTTL = 0 }, categories: []string{"prompt"}},
		{name: "unknown prompt connection", mutate: func(c *Config) { c.Prompt.ConnectionName = "gitlab" }, categories: []string{"prompt"}},
		{name: "no connections", mutate: func(c *Config) { c.Connections = nil }, categories: []string{"connections"}},
		{
			name: "incomplete connection",
			mutate: func(c *Config) {
				c.Connections = append(c.Connections, ConnectionConfig{Name: "github", TokenURL: "ftp://x"})
			},
			categories: []string{"connections", "connections", "connections", "connections"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate("/etc/oauthprompt/config.yaml")
			if len(tt.categories) == 0 {
				assert.NoError(t, err)
				return
			}

			var cec ConfigurationErrorCollection
			require.True(t, errors.As(err, &cec), "got %v", err)
			require.Equal(t, len(tt.categories), cec.Count(), cec.GetDetailedReport())
			for i, ce := range cec.Errors {
				assert.Equal(t, tt.categories[i], ce.Category)
				assert.Equal(t, "validation", ce.ErrorType)
				assert.Equal(t, "config.yaml", ce.FileName)
			}
		})
	}
}

func TestConfigurationErrorReport(t *testing.T) {
	var cec ConfigurationErrorCollection
	assert.Equal(t, "no configuration errors", cec.Error())
	assert.Equal(t, "No configuration errors to report", cec.GetDetailedReport())

	first := NewConfigurationError("/x/config.yaml", "validation", "server", "field 'server.port': must be between 1 and 65535")
	first.Suggestions = []string{"Use 3978"}
	cec.Add(first)
	assert.Equal(t, "[server] config.yaml: field 'server.port': must be between 1 and 65535", cec.Error())

	cec.Add(NewConfigurationError("/x/config.yaml", "validation", "connections", "at least one connection is required"))
	assert.Contains(t, cec.Error(), "2 configuration errors")
	assert.Len(t, cec.GetErrorsByCategory("connections"), 1)

	report := cec.GetDetailedReport()
	assert.Contains(t, report, "Detailed Configuration Error Report (2 errors)")
	assert.Contains(t, report, "    - Use 3978")
	assert.Contains(t, report, "  File: /x/config.yaml")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "GITHUB", envName("github"))
	assert.Equal(t, "AZURE_AD_V2", envName("azure-ad.v2"))
}

func TestWatchReloadsConnections(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, sampleConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		reloads []Config
	)
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, dir, 20*time.Millisecond, func(cfg Config) {
			mu.Lock()
			reloads = append(reloads, cfg)
			mu.Unlock()
		})
	}()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)

	writeConfig(t, dir, "server: [")
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, reloads, "invalid files are not delivered")
	mu.Unlock()

	writeConfig(t, dir, sampleConfig+`
  - name: gitlab
    clientId: gl
    authUrl: https://gitlab.com/oauth/authorize
    tokenUrl: https://gitlab.com/oauth/token
`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reloads) > 0 && len(reloads[len(reloads)-1].Connections) == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), func(Config) {})
	assert.Error(t, err)
}
