package tokens

import (
	"context"
	"sort"
	"sync"
	"time"

	"oauthprompt/pkg/logging"
)

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[Key]*Token
	now    func() time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore and starts a background goroutine that
// periodically removes expired tokens. Call Stop to end it.
func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		tokens:          make(map[Key]*Token),
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go ms.cleanupLoop()

	return ms
}

func (ms *MemoryStore) GetToken(_ context.Context, key Key) (*Token, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	token, exists := ms.tokens[key]
	if !exists {
		return nil, nil
	}
	if token.IsExpired(ms.now(), ExpiryMargin) {
		logging.Debug("TokenStore", "Token expired for user=%s connection=%s",
			logging.TruncateID(key.UserID), key.ConnectionName)
		return nil, nil
	}

	cp := *token
	return &cp, nil
}

func (ms *MemoryStore) SetToken(_ context.Context, key Key, token *Token) error {
	if err := key.Validate(); err != nil {
		return err
	}

	cp := *token
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.tokens[key] = &cp

	logging.Debug("TokenStore", "Stored token for user=%s connection=%s (expires: %v)",
		logging.TruncateID(key.UserID), key.ConnectionName, token.Expiration)
	return nil
}

func (ms *MemoryStore) DeleteToken(_ context.Context, key Key) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.tokens, key)
	logging.Debug("TokenStore", "Deleted token for user=%s connection=%s",
		logging.TruncateID(key.UserID), key.ConnectionName)
	return nil
}

func (ms *MemoryStore) List(_ context.Context) ([]Entry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entries := make([]Entry, 0, len(ms.tokens))
	for k, v := range ms.tokens {
		cp := *v
		entries = append(entries, Entry{Key: k, Token: &cp})
	}
	sortEntries(entries)
	return entries, nil
}

// Count returns the number of stored tokens.
func (ms *MemoryStore) Count() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.tokens)
}

// Stop ends the background cleanup goroutine. It is safe to call more than once.
func (ms *MemoryStore) Stop() {
	ms.stopOnce.Do(func() { close(ms.stopCleanup) })
}

func (ms *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.cleanup()
		case <-ms.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired tokens.
func (ms *MemoryStore) cleanup() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	count := 0
	for key, token := range ms.tokens {
		if token.IsExpired(now, 0) {
			delete(ms.tokens, key)
			count++
		}
	}

	if count > 0 {
		logging.Debug("TokenStore", "Cleaned up %d expired tokens", count)
	}
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.String() < entries[j].Key.String()
	})
}
