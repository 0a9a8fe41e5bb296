package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oauthprompt/internal/bot"
	"oauthprompt/internal/config"
	"oauthprompt/internal/storage"
	"oauthprompt/internal/storage/sqlite"
	"oauthprompt/internal/testing/mock"
	"oauthprompt/internal/tokens"
	"oauthprompt/pkg/activity"
)

var magicCodePattern = regexp.MustCompile(`class="code">(\d{6})<`)

type stack struct {
	provider *mock.OAuthServer
	cfg      config.Config
	services *Services
	adapter  *mock.TestAdapter
	server   *CallbackServer
}

func newStack(t *testing.T, mutate ...func(*config.Config)) *stack {
	t.Helper()

	provider := mock.NewOAuthServer(mock.OAuthServerConfig{ClientID: "bot", PKCERequired: true})
	t.Cleanup(provider.Close)

	cfg := config.GetDefaultConfig()
	cfg.Server.PublicURL = "https://bot.example.com"
	cfg.Storage = config.StorageConfig{Driver: config.StorageDriverMemory}
	cfg.Connections = []config.ConnectionConfig{{
		Name:     "github",
		ClientID: "bot",
		AuthURL:  provider.AuthorizeURL(),
		TokenURL: provider.TokenURL(),
	}}
	for _, m := range mutate {
		m(&cfg)
	}
	require.NoError(t, cfg.Validate("config.yaml"))

	services, err := InitializeServices(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = services.Close() })

	adapter := mock.NewTestAdapter()
	adapter.SetHandler(services.Bot.OnTurn)

	return &stack{
		provider: provider,
		cfg:      cfg,
		services: services,
		adapter:  adapter,
		server:   NewCallbackServer(cfg.Server, services.TokenService),
	}
}

func (s *stack) key() tokens.Key {
	return tokens.Key{ChannelID: mock.TestChannelID, UserID: mock.TestUserID, ConnectionName: "github"}
}

// completeInBrowser follows the sign-in link on card and returns the
// callback page.
func (s *stack) completeInBrowser(t *testing.T, card *activity.Activity) *httptest.ResponseRecorder {
	t.Helper()
	require.Len(t, card.Attachments, 1)
	oauthCard, err := activity.OAuthCardFrom(card.Attachments[0])
	require.NoError(t, err)
	require.Len(t, oauthCard.Buttons, 1)

	resp, err := s.provider.Client().Get(oauthCard.Buttons[0].Value)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, resp.Header.Get("Location"), nil))
	return rec
}

func texts(acts []*activity.Activity) []string {
	var out []string
	for _, a := range acts {
		out = append(out, a.Text)
	}
	return out
}

func TestLoginBot_DeliveredToken(t *testing.T) {
	s := newStack(t)
	s.services.TokenService.SetDeliverer(ConversationDeliverer(s.adapter, s.services.Bot.OnTurn))
	ctx := context.Background()

	replies, err := s.adapter.SendText(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, activity.InputHintAcceptingInput, replies[0].InputHint)

	before := len(s.adapter.Replies())
	rec := s.completeInBrowser(t, replies[0])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "return to the chat")

	all := s.adapter.Replies()
	require.Len(t, all, before+1)
	assert.Equal(t, "Logged in.", all[before].Text)

	token, err := s.services.Tokens.GetToken(ctx, s.key())
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, s.provider.IssuedTokens()[0], token.Value.Value())

	// A cached token completes the next prompt without a card.
	replies, err = s.adapter.SendText(ctx, "hello again")
	require.NoError(t, err)
	assert.Equal(t, []string{"Logged in."}, texts(replies))
}

func TestLoginBot_MagicCode(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	replies, err := s.adapter.SendText(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, replies, 1)

	rec := s.completeInBrowser(t, replies[0])
	require.Equal(t, http.StatusOK, rec.Code)
	m := magicCodePattern.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2)

	replies, err = s.adapter.SendText(ctx, "000000")
	require.NoError(t, err)
	assert.Empty(t, replies, "a wrong code keeps the prompt waiting")

	replies, err = s.adapter.SendText(ctx, m[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"Logged in."}, texts(replies))
}

func TestLoginBot_DeliveryToOtherConversationFallsBack(t *testing.T) {
	s := newStack(t)
	ref := mock.NewTestAdapter().Reference()
	ref.Conversation.ID = "Convo2"
	other := mock.NewTestAdapter(mock.WithConversation(ref))
	s.services.TokenService.SetDeliverer(ConversationDeliverer(other, s.services.Bot.OnTurn))

	replies, err := s.adapter.SendText(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, replies, 1)

	rec := s.completeInBrowser(t, replies[0])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, magicCodePattern.FindStringSubmatch(rec.Body.String()), 2)
	assert.Empty(t, other.Replies())
}

func TestLoginBot_EndOnInvalidMessage(t *testing.T) {
	s := newStack(t, func(c *config.Config) { c.Prompt.EndOnInvalidMessage = true })
	ctx := context.Background()

	_, err := s.adapter.SendText(ctx, "hello")
	require.NoError(t, err)

	replies, err := s.adapter.SendText(ctx, "what is this")
	require.NoError(t, err)
	assert.Equal(t, []string{"Failed"}, texts(replies))
}

func TestLoginBot_Logout(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	require.NoError(t, s.services.Tokens.SetToken(ctx, s.key(), &tokens.Token{
		Value:          tokens.NewRedactedToken("cached"),
		ConnectionName: "github",
	}))

	replies, err := s.adapter.SendText(ctx, "Logout")
	require.NoError(t, err)
	assert.Equal(t, []string{"Signed out."}, texts(replies))

	token, err := s.services.Tokens.GetToken(ctx, s.key())
	require.NoError(t, err)
	assert.Nil(t, token)

	replies, err = s.adapter.SendText(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Len(t, replies[0].Attachments, 1, "signed out users see the card again")
}

func TestLoginBot_IgnoresStrayActivities(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	typing := bot.ApplyConversationReference(&activity.Activity{Type: activity.TypeTyping}, s.adapter.Reference(), true)
	replies, err := s.adapter.Send(ctx, typing)
	require.NoError(t, err)
	assert.Empty(t, replies)

	replies, err = s.adapter.Send(ctx, s.adapter.TokenResponseEvent("github", "late-token"))
	require.ErrorIs(t, err, ErrNoPendingSignIn)
	assert.Empty(t, replies)
}

func TestLoginBot_TokenAfterPromptEndedFallsBackToCode(t *testing.T) {
	s := newStack(t)
	s.services.TokenService.SetDeliverer(ConversationDeliverer(s.adapter, s.services.Bot.OnTurn))
	ctx := context.Background()

	replies, err := s.adapter.SendText(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	card := replies[0]

	replies, err = s.adapter.SendText(ctx, "logout")
	require.NoError(t, err)
	assert.Equal(t, []string{"Signed out."}, texts(replies))

	rec := s.completeInBrowser(t, card)
	require.Equal(t, http.StatusOK, rec.Code)
	m := magicCodePattern.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2, "the token is handed out as a code instead of being dropped")

	replies, err = s.adapter.SendText(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, replies, 1)

	replies, err = s.adapter.SendText(ctx, m[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"Logged in."}, texts(replies))
}

func TestLoginBot_StateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	fileStorage := func(c *config.Config) {
		c.Storage = config.StorageConfig{Driver: config.StorageDriverFile, Path: dir}
	}
	ctx := context.Background()

	first := newStack(t, fileStorage)
	replies, err := first.adapter.SendText(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, replies, 1)

	second := newStack(t, fileStorage)
	replies, err = second.adapter.SendText(ctx, "still waiting?")
	require.NoError(t, err)
	assert.Empty(t, replies, "the restarted bot resumes the waiting prompt")
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.StorageConfig
		check   func(t *testing.T, s storage.Storage)
		wantErr bool
	}{
		{
			name:  "memory",
			cfg:   config.StorageConfig{Driver: config.StorageDriverMemory},
			check: func(t *testing.T, s storage.Storage) { assert.IsType(t, &storage.MemoryStorage{}, s) },
		},
		{
			name:  "file",
			cfg:   config.StorageConfig{Driver: config.StorageDriverFile, Path: filepath.Join(dir, "state")},
			check: func(t *testing.T, s storage.Storage) { assert.IsType(t, &storage.FileStorage{}, s) },
		},
		{
			name:  "sqlite in a new directory",
			cfg:   config.StorageConfig{Driver: config.StorageDriverSQLite, Path: filepath.Join(dir, "nested", "bot.db")},
			check: func(t *testing.T, s storage.Storage) { assert.IsType(t, &sqlite.Store{}, s) },
		},
		{name: "unknown", cfg: config.StorageConfig{Driver: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, closeFn, err := OpenStorage(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if closeFn != nil {
				defer closeFn()
			}
			tt.check(t, s)

			ctx := context.Background()
			require.NoError(t, s.Write(ctx, "k", []byte("v")))
			got, err := s.Read(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), got)
		})
	}
}

func TestCallbackServerHealth(t *testing.T) {
	s := newStack(t)
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestNewApplicationRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage:\n  driver: memory\n"), 0o600))

	_, err := NewApplication(NewConfig(false, true, dir))
	require.Error(t, err)

	var cec config.ConfigurationErrorCollection
	require.True(t, errors.As(err, &cec))
	assert.Len(t, cec.GetErrorsByCategory("connections"), 1)
}
