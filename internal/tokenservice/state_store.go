package tokenservice

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"oauthprompt/internal/bot"
	"oauthprompt/pkg/logging"
)

// PendingSignIn is what the service remembers between handing out a sign-in
// link and receiving the provider callback.
type PendingSignIn struct {
	Nonce          string
	ConnectionName string
	Reference      bot.ConversationReference
	CodeVerifier   string
	CreatedAt      time.Time
}

// StateStore provides thread-safe storage for pending sign-ins indexed by
// the state nonce. Each state can be consumed once.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]*PendingSignIn
	now    func() time.Time

	stateExpiry time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewStateStore creates a state store whose entries expire after ttl and
// starts its cleanup goroutine.
func NewStateStore(ttl time.Duration, now func() time.Time) *StateStore {
	if now == nil {
		now = time.Now
	}
	ss := &StateStore{
		states:      make(map[string]*PendingSignIn),
		now:         now,
		stateExpiry: ttl,
		stopCleanup: make(chan struct{}),
	}

	go ss.cleanupLoop()

	return ss
}

// Generate stores pending and returns the state parameter to put in the
// authorization URL.
func (ss *StateStore) Generate(pending PendingSignIn) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	pending.Nonce = base64.RawURLEncoding.EncodeToString(nonce)
	pending.CreatedAt = ss.now()

	ss.mu.Lock()
	ss.states[pending.Nonce] = &pending
	ss.mu.Unlock()

	logging.Debug("TokenService", "Generated state for user=%s connection=%s",
		logging.TruncateID(pending.Reference.User.ID), pending.ConnectionName)
	return pending.Nonce, nil
}

// Consume validates a state parameter from a callback and removes it.
// It returns nil for unknown or expired states.
func (ss *StateStore) Consume(state string) *PendingSignIn {
	ss.mu.Lock()
	pending, exists := ss.states[state]
	delete(ss.states, state)
	ss.mu.Unlock()

	if !exists {
		logging.Warn("TokenService", "State not found in store: nonce=%s", logging.TruncateID(state))
		return nil
	}

	if age := ss.now().Sub(pending.CreatedAt); age > ss.stateExpiry {
		logging.Warn("TokenService", "State expired: nonce=%s age=%v", logging.TruncateID(state), age)
		return nil
	}
	return pending
}

// Count returns the number of pending sign-ins.
func (ss *StateStore) Count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.states)
}

// Stop stops the background cleanup goroutine.
func (ss *StateStore) Stop() {
	ss.stopOnce.Do(func() { close(ss.stopCleanup) })
}

func (ss *StateStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ss.cleanup()
		case <-ss.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired states.
func (ss *StateStore) cleanup() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := ss.now()
	count := 0
	for nonce, pending := range ss.states {
		if now.Sub(pending.CreatedAt) > ss.stateExpiry {
			delete(ss.states, nonce)
			count++
		}
	}

	if count > 0 {
		logging.Debug("TokenService", "Cleaned up %d expired states", count)
	}
}
