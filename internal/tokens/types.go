package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ExpiryMargin is subtracted from a token's expiration when deciding whether
// it can still be used, to absorb clock skew and request latency.
const ExpiryMargin = 30 * time.Second

// Token is a user token for one connection.
type Token struct {
	Value          RedactedToken
	ConnectionName string

	// Expiration is zero when the provider did not say.
	Expiration time.Time
}

// IsExpired reports whether the token expires before now+margin. Tokens
// without an expiration never expire.
func (t *Token) IsExpired(now time.Time, margin time.Duration) bool {
	if t.Expiration.IsZero() {
		return false
	}
	return now.Add(margin).After(t.Expiration)
}

// ExpirationString formats Expiration as RFC 3339, or "" when unknown.
func (t *Token) ExpirationString() string {
	if t.Expiration.IsZero() {
		return ""
	}
	return t.Expiration.UTC().Format(time.RFC3339)
}

// Key identifies a cached token.
type Key struct {
	ChannelID      string
	UserID         string
	ConnectionName string
}

// Validate checks that every part of the key is set.
func (k Key) Validate() error {
	var missing []string
	if strings.TrimSpace(k.ChannelID) == "" {
		missing = append(missing, "channel id")
	}
	if strings.TrimSpace(k.UserID) == "" {
		missing = append(missing, "user id")
	}
	if strings.TrimSpace(k.ConnectionName) == "" {
		missing = append(missing, "connection name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidKey, strings.Join(missing, ", "))
	}
	return nil
}

func (k Key) String() string {
	return k.ChannelID + "/" + k.UserID + "/" + k.ConnectionName
}

// Entry is a key and its token, as returned by List.
type Entry struct {
	Key   Key
	Token *Token
}

// ErrInvalidKey is returned for keys with missing parts.
var ErrInvalidKey = errors.New("invalid token key")

// Store is a token cache. Implementations provide per-key atomic reads and
// writes; the last writer wins.
type Store interface {
	// GetToken returns the token for key, or nil when there is none or it
	// has expired.
	GetToken(ctx context.Context, key Key) (*Token, error)

	// SetToken stores token under key.
	SetToken(ctx context.Context, key Key, token *Token) error

	// DeleteToken removes the token for key. Missing keys are not an error.
	DeleteToken(ctx context.Context, key Key) error

	// List returns every stored token, expired or not, sorted by key.
	List(ctx context.Context) ([]Entry, error)
}
