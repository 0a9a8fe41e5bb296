package mock

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OAuthServerConfig configures the mock OAuth server behavior.
type OAuthServerConfig struct {
	// ClientID is the expected OAuth client ID.
	ClientID string

	// ClientSecret is the expected client secret. Empty accepts any.
	ClientSecret string

	// Subject is the sub claim of issued tokens.
	Subject string

	// TokenLifetime is how long issued access tokens remain valid.
	TokenLifetime time.Duration

	// PKCERequired rejects authorization requests without a code challenge.
	PKCERequired bool

	// InvalidGrant rejects every code exchange.
	InvalidGrant bool

	// Clock defaults to RealClock.
	Clock Clock
}

// TokenResponse is the token endpoint response body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

type authCodeEntry struct {
	ClientID        string
	RedirectURI     string
	Scope           string
	CodeChallenge   string
	ChallengeMethod string
}

// OAuthServer is a mock OAuth 2.0 authorization server. Its authorize
// endpoint approves every request by redirecting straight back with a code.
type OAuthServer struct {
	config     OAuthServerConfig
	server     *httptest.Server
	signingKey []byte

	mu        sync.Mutex
	authCodes map[string]*authCodeEntry
	issued    []string
}

// NewOAuthServer starts a mock OAuth server. Call Close when done.
func NewOAuthServer(config OAuthServerConfig) *OAuthServer {
	if config.Clock == nil {
		config.Clock = RealClock{}
	}
	if config.TokenLifetime == 0 {
		config.TokenLifetime = time.Hour
	}
	if config.Subject == "" {
		config.Subject = "test-user-123"
	}

	s := &OAuthServer{
		config:     config,
		signingKey: []byte(generateOpaqueToken()),
		authCodes:  make(map[string]*authCodeEntry),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", s.handleAuthorize)
	mux.HandleFunc("/token", s.handleToken)
	s.server = httptest.NewServer(mux)
	return s
}

// Close shuts the server down.
func (s *OAuthServer) Close() {
	s.server.Close()
}

// URL returns the server base URL.
func (s *OAuthServer) URL() string {
	return s.server.URL
}

// AuthorizeURL returns the authorization endpoint URL.
func (s *OAuthServer) AuthorizeURL() string {
	return s.server.URL + "/authorize"
}

// TokenURL returns the token endpoint URL.
func (s *OAuthServer) TokenURL() string {
	return s.server.URL + "/token"
}

// Client returns an HTTP client that does not follow redirects, so tests can
// inspect where the authorize endpoint sends the browser.
func (s *OAuthServer) Client() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// IssuedTokens returns every access token issued so far.
func (s *OAuthServer) IssuedTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.issued))
	copy(out, s.issued)
	return out
}

func (s *OAuthServer) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("response_type") != "code" {
		http.Error(w, "unsupported_response_type", http.StatusBadRequest)
		return
	}
	if s.config.ClientID != "" && q.Get("client_id") != s.config.ClientID {
		http.Error(w, "invalid_client", http.StatusBadRequest)
		return
	}
	if s.config.PKCERequired && q.Get("code_challenge") == "" {
		http.Error(w, "PKCE required: code_challenge missing", http.StatusBadRequest)
		return
	}

	redirectURL, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || redirectURL.Scheme == "" {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}

	code := generateOpaqueToken()
	s.mu.Lock()
	s.authCodes[code] = &authCodeEntry{
		ClientID:        q.Get("client_id"),
		RedirectURI:     q.Get("redirect_uri"),
		Scope:           q.Get("scope"),
		CodeChallenge:   q.Get("code_challenge"),
		ChallengeMethod: q.Get("code_challenge_method"),
	}
	s.mu.Unlock()

	rq := redirectURL.Query()
	rq.Set("code", code)
	if state := q.Get("state"); state != "" {
		rq.Set("state", state)
	}
	redirectURL.RawQuery = rq.Encode()
	http.Redirect(w, r, redirectURL.String(), http.StatusFound)
}

func (s *OAuthServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if r.FormValue("grant_type") != "authorization_code" {
		tokenError(w, "unsupported_grant_type", "only authorization_code is supported")
		return
	}

	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID, clientSecret = r.FormValue("client_id"), r.FormValue("client_secret")
	}
	if s.config.ClientSecret != "" && clientSecret != s.config.ClientSecret {
		tokenError(w, "invalid_client", "client authentication failed")
		return
	}
	if s.config.InvalidGrant {
		tokenError(w, "invalid_grant", "authorization code is invalid")
		return
	}

	code := r.FormValue("code")
	s.mu.Lock()
	entry, exists := s.authCodes[code]
	delete(s.authCodes, code)
	s.mu.Unlock()

	if !exists || (entry.ClientID != "" && entry.ClientID != clientID) {
		tokenError(w, "invalid_grant", "authorization code not found or expired")
		return
	}
	if entry.RedirectURI != r.FormValue("redirect_uri") {
		tokenError(w, "invalid_grant", "redirect_uri mismatch")
		return
	}
	if entry.CodeChallenge != "" && !verifyPKCE(entry.CodeChallenge, entry.ChallengeMethod, r.FormValue("code_verifier")) {
		tokenError(w, "invalid_grant", "code_verifier verification failed")
		return
	}

	accessToken, err := s.issueAccessToken(entry)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.TokenLifetime.Seconds()),
		RefreshToken: generateOpaqueToken(),
		Scope:        entry.Scope,
	})
}

// issueAccessToken signs a JWT access token so callers can read its expiry.
func (s *OAuthServer) issueAccessToken(entry *authCodeEntry) (string, error) {
	now := s.config.Clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   s.server.URL,
		"sub":   s.config.Subject,
		"aud":   entry.ClientID,
		"scope": entry.Scope,
		"iat":   now.Unix(),
		"exp":   now.Add(s.config.TokenLifetime).Unix(),
		"jti":   generateOpaqueToken(),
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	s.mu.Lock()
	s.issued = append(s.issued, signed)
	s.mu.Unlock()
	return signed, nil
}

func tokenError(w http.ResponseWriter, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func verifyPKCE(challenge, method, verifier string) bool {
	if verifier == "" {
		return false
	}
	switch method {
	case "S256":
		hash := sha256.Sum256([]byte(verifier))
		return base64.RawURLEncoding.EncodeToString(hash[:]) == challenge
	case "plain", "":
		return verifier == challenge
	default:
		return false
	}
}

// generateOpaqueToken returns a random URL-safe string.
// Panics if crypto/rand fails, which should never happen in practice.
func generateOpaqueToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Errorf("crypto/rand failed: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
