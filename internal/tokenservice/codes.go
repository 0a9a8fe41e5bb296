package tokenservice

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"oauthprompt/internal/tokens"
	"oauthprompt/pkg/logging"
)

const magicCodeDigits = 6

type issuedCode struct {
	key       tokens.Key
	token     *tokens.Token
	expiresAt time.Time
}

// CodeStore holds tokens waiting to be claimed with a magic code.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]*issuedCode
	ttl   time.Duration
	now   func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewCodeStore creates a CodeStore whose codes expire after ttl.
func NewCodeStore(ttl time.Duration, now func() time.Time) *CodeStore {
	if now == nil {
		now = time.Now
	}
	cs := &CodeStore{
		codes:       make(map[string]*issuedCode),
		ttl:         ttl,
		now:         now,
		stopCleanup: make(chan struct{}),
	}
	go cs.cleanupLoop()
	return cs
}

// Issue stores token for key and returns a fresh six digit code.
func (cs *CodeStore) Issue(key tokens.Key, token *tokens.Token) (string, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for range 10 {
		code, err := randomDigits(magicCodeDigits)
		if err != nil {
			return "", err
		}
		if _, taken := cs.codes[code]; taken {
			continue
		}
		cs.codes[code] = &issuedCode{key: key, token: token, expiresAt: cs.now().Add(cs.ttl)}
		return code, nil
	}
	return "", fmt.Errorf("failed to allocate a unique magic code")
}

// Redeem returns the token issued under code for key and forgets the code.
// It returns nil for unknown or expired codes and for codes issued to
// someone else, which stay redeemable by their owner.
func (cs *CodeStore) Redeem(key tokens.Key, code string) *tokens.Token {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	issued, ok := cs.codes[code]
	if !ok {
		return nil
	}
	if cs.now().After(issued.expiresAt) {
		delete(cs.codes, code)
		return nil
	}
	if issued.key != key {
		logging.Warn("TokenService", "Magic code presented by a different user=%s", logging.TruncateID(key.UserID))
		return nil
	}
	delete(cs.codes, code)
	return issued.token
}

// Revoke drops every code issued to key.
func (cs *CodeStore) Revoke(key tokens.Key) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for code, issued := range cs.codes {
		if issued.key == key {
			delete(cs.codes, code)
		}
	}
}

// Count returns the number of outstanding codes.
func (cs *CodeStore) Count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.codes)
}

// Stop stops the background cleanup goroutine.
func (cs *CodeStore) Stop() {
	cs.stopOnce.Do(func() { close(cs.stopCleanup) })
}

func (cs *CodeStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cs.cleanup()
		case <-cs.stopCleanup:
			return
		}
	}
}

func (cs *CodeStore) cleanup() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	count := 0
	for code, issued := range cs.codes {
		if now.After(issued.expiresAt) {
			delete(cs.codes, code)
			count++
		}
	}
	if count > 0 {
		logging.Debug("TokenService", "Cleaned up %d expired magic codes", count)
	}
}

func randomDigits(n int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v), nil
}
