package tokenservice

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"oauthprompt/pkg/logging"
)

// Connection describes one OAuth provider binding.
type Connection struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

// Validate reports missing fields.
func (c Connection) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if c.ClientID == "" {
		missing = append(missing, "clientId")
	}
	if c.AuthURL == "" {
		missing = append(missing, "authUrl")
	}
	if c.TokenURL == "" {
		missing = append(missing, "tokenUrl")
	}
	if len(missing) > 0 {
		return fmt.Errorf("connection %q: missing %s", c.Name, strings.Join(missing, ", "))
	}
	return nil
}

// Registry holds the oauth2 configuration of every connection. It can be
// replaced at runtime when the configuration file changes.
type Registry struct {
	redirectURL string

	mu    sync.RWMutex
	conns map[string]*oauth2.Config
}

// NewRegistry creates a registry whose connections redirect to redirectURL.
func NewRegistry(redirectURL string, conns []Connection) (*Registry, error) {
	r := &Registry{redirectURL: redirectURL}
	if err := r.Replace(conns); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace swaps the whole set of connections. On error the registry is left
// unchanged.
func (r *Registry) Replace(conns []Connection) error {
	next := make(map[string]*oauth2.Config, len(conns))
	for _, c := range conns {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := next[c.Name]; dup {
			return fmt.Errorf("duplicate connection %q", c.Name)
		}
		next[c.Name] = &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: c.AuthURL, TokenURL: c.TokenURL},
			RedirectURL:  r.redirectURL,
			Scopes:       append([]string(nil), c.Scopes...),
		}
	}

	r.mu.Lock()
	r.conns = next
	r.mu.Unlock()

	logging.Info("TokenService", "Loaded %d OAuth connections", len(next))
	return nil
}

// Get returns the oauth2 configuration for name.
func (r *Registry) Get(name string) (*oauth2.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.conns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConnection, name)
	}
	return cfg, nil
}

// Names returns the registered connection names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
