package mock

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"oauthprompt/internal/tokens"
)

func authorize(t *testing.T, s *OAuthServer, cfg *oauth2.Config, opts ...oauth2.AuthCodeOption) *url.URL {
	t.Helper()
	resp, err := s.Client().Get(cfg.AuthCodeURL("state-1", opts...))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return loc
}

func newConfig(s *OAuthServer) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Scopes:       []string{"openid"},
		Endpoint:     oauth2.Endpoint{AuthURL: s.AuthorizeURL(), TokenURL: s.TokenURL()},
	}
}

func TestOAuthServer_AuthorizationCodeWithPKCE(t *testing.T) {
	clock := NewMockClock(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewOAuthServer(OAuthServerConfig{
		ClientID:      "client",
		ClientSecret:  "secret",
		PKCERequired:  true,
		TokenLifetime: 30 * time.Minute,
		Clock:         clock,
	})
	defer s.Close()

	cfg := newConfig(s)
	verifier := oauth2.GenerateVerifier()
	loc := authorize(t, s, cfg, oauth2.S256ChallengeOption(verifier))
	assert.Equal(t, "state-1", loc.Query().Get("state"))

	token, err := cfg.Exchange(context.Background(), loc.Query().Get("code"), oauth2.VerifierOption(verifier))
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, []string{token.AccessToken}, s.IssuedTokens())

	exp, ok := tokens.ExpiryFromJWT(token.AccessToken)
	require.True(t, ok)
	assert.True(t, exp.Equal(clock.Now().Add(30*time.Minute)))
}

func TestOAuthServer_CodeIsSingleUse(t *testing.T) {
	s := NewOAuthServer(OAuthServerConfig{ClientID: "client"})
	defer s.Close()

	cfg := newConfig(s)
	code := authorize(t, s, cfg).Query().Get("code")

	_, err := cfg.Exchange(context.Background(), code)
	require.NoError(t, err)

	_, err = cfg.Exchange(context.Background(), code)
	assert.Error(t, err)
}

func TestOAuthServer_WrongVerifier(t *testing.T) {
	s := NewOAuthServer(OAuthServerConfig{ClientID: "client"})
	defer s.Close()

	cfg := newConfig(s)
	loc := authorize(t, s, cfg, oauth2.S256ChallengeOption(oauth2.GenerateVerifier()))

	_, err := cfg.Exchange(context.Background(), loc.Query().Get("code"), oauth2.VerifierOption(oauth2.GenerateVerifier()))
	assert.Error(t, err)
}

func TestOAuthServer_InvalidGrant(t *testing.T) {
	s := NewOAuthServer(OAuthServerConfig{ClientID: "client", InvalidGrant: true})
	defer s.Close()

	cfg := newConfig(s)
	code := authorize(t, s, cfg).Query().Get("code")

	_, err := cfg.Exchange(context.Background(), code)
	var retrieveErr *oauth2.RetrieveError
	require.ErrorAs(t, err, &retrieveErr)
	assert.Equal(t, "invalid_grant", retrieveErr.ErrorCode)
}

func TestOAuthServer_RejectsUnknownClient(t *testing.T) {
	s := NewOAuthServer(OAuthServerConfig{ClientID: "client"})
	defer s.Close()

	cfg := newConfig(s)
	cfg.ClientID = "someone-else"
	resp, err := s.Client().Get(cfg.AuthCodeURL("state-1"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
