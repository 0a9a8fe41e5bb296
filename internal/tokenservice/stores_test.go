package tokenservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oauthprompt/internal/testing/mock"
	"oauthprompt/internal/tokens"
)

func TestStateStoreExpiry(t *testing.T) {
	clock := mock.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	ss := NewStateStore(10*time.Minute, clock.NowFunc())
	defer ss.Stop()

	fresh, err := ss.Generate(PendingSignIn{ConnectionName: "github"})
	require.NoError(t, err)
	stale, err := ss.Generate(PendingSignIn{ConnectionName: "github"})
	require.NoError(t, err)
	assert.NotEqual(t, fresh, stale)

	clock.Advance(10 * time.Minute)
	assert.NotNil(t, ss.Consume(fresh), "a state is valid up to its expiry")

	clock.Advance(time.Second)
	assert.Nil(t, ss.Consume(stale))
	assert.Equal(t, 0, ss.Count())
}

func TestStateStoreCleanup(t *testing.T) {
	clock := mock.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	ss := NewStateStore(time.Minute, clock.NowFunc())
	defer ss.Stop()

	_, err := ss.Generate(PendingSignIn{})
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	_, err = ss.Generate(PendingSignIn{})
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	ss.cleanup()
	assert.Equal(t, 1, ss.Count())
}

func TestCodeStoreExpiry(t *testing.T) {
	clock := mock.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	cs := NewCodeStore(5*time.Minute, clock.NowFunc())
	defer cs.Stop()

	key := tokens.Key{ChannelID: "test", UserID: "user1", ConnectionName: "github"}
	token := &tokens.Token{Value: tokens.NewRedactedToken("abc")}

	first, err := cs.Issue(key, token)
	require.NoError(t, err)
	second, err := cs.Issue(key, token)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	clock.Advance(5 * time.Minute)
	assert.NotNil(t, cs.Redeem(key, first))

	clock.Advance(time.Second)
	assert.Nil(t, cs.Redeem(key, second))
	assert.Equal(t, 0, cs.Count())
}

func TestCodeStoreCleanupAndRevoke(t *testing.T) {
	clock := mock.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	cs := NewCodeStore(time.Minute, clock.NowFunc())
	defer cs.Stop()

	alice := tokens.Key{ChannelID: "test", UserID: "alice", ConnectionName: "github"}
	bob := tokens.Key{ChannelID: "test", UserID: "bob", ConnectionName: "github"}
	token := &tokens.Token{Value: tokens.NewRedactedToken("abc")}

	_, err := cs.Issue(alice, token)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, err = cs.Issue(alice, token)
	require.NoError(t, err)
	_, err = cs.Issue(bob, token)
	require.NoError(t, err)

	cs.cleanup()
	assert.Equal(t, 2, cs.Count())

	cs.Revoke(alice)
	assert.Equal(t, 1, cs.Count())
}

func TestRandomDigits(t *testing.T) {
	for range 50 {
		code, err := randomDigits(6)
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
	}
}
