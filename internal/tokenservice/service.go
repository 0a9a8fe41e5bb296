package tokenservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"oauthprompt/internal/bot"
	"oauthprompt/internal/tokens"
	"oauthprompt/pkg/activity"
	"oauthprompt/pkg/logging"
)

const (
	// DefaultCallbackPath is where providers redirect after sign-in.
	DefaultCallbackPath = "/oauth/callback"

	// DefaultMagicCodeTTL is how long an issued magic code can be redeemed.
	DefaultMagicCodeTTL = 10 * time.Minute

	// DefaultStateTTL is how long a sign-in link stays valid.
	DefaultStateTTL = 10 * time.Minute
)

// Config configures a Service.
type Config struct {
	// PublicURL is the externally reachable base URL of the callback server.
	PublicURL string

	// CallbackPath is appended to PublicURL to form the redirect URL.
	CallbackPath string

	MagicCodeTTL time.Duration
	StateTTL     time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	// HTTPClient is used for token endpoint calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// RedirectURL is the absolute callback URL registered with providers.
func (c Config) RedirectURL() string {
	return strings.TrimRight(c.PublicURL, "/") + c.CallbackPath
}

func (c *Config) setDefaults() {
	if c.CallbackPath == "" {
		c.CallbackPath = DefaultCallbackPath
	}
	if c.MagicCodeTTL <= 0 {
		c.MagicCodeTTL = DefaultMagicCodeTTL
	}
	if c.StateTTL <= 0 {
		c.StateTTL = DefaultStateTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// Deliverer pushes an activity into a running conversation.
type Deliverer interface {
	Deliver(ctx context.Context, act *activity.Activity) error
}

// DeliverFunc adapts a function to the Deliverer interface.
type DeliverFunc func(ctx context.Context, act *activity.Activity) error

// Deliver calls f(ctx, act).
func (f DeliverFunc) Deliver(ctx context.Context, act *activity.Activity) error {
	return f(ctx, act)
}

// SignInOutcome describes what happened after a successful callback.
type SignInOutcome struct {
	ConnectionName string

	// Delivered is true when the token was pushed into the conversation.
	Delivered bool

	// MagicCode is set when the user has to paste a code into the chat.
	MagicCode string
}

// Service implements the token collaborators of the OAuth prompt against
// real OAuth providers.
type Service struct {
	cfg      Config
	store    tokens.Store
	registry *Registry
	states   *StateStore
	codes    *CodeStore

	exchangeGroup singleflight.Group

	mu        sync.RWMutex
	deliverer Deliverer
}

// New creates a Service. Call Stop to release the background goroutines.
func New(cfg Config, store tokens.Store, conns []Connection) (*Service, error) {
	if store == nil {
		return nil, errors.New("token store is required")
	}
	if strings.TrimSpace(cfg.PublicURL) == "" {
		return nil, errors.New("public URL is required")
	}
	cfg.setDefaults()

	registry, err := NewRegistry(cfg.RedirectURL(), conns)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:      cfg,
		store:    store,
		registry: registry,
		states:   NewStateStore(cfg.StateTTL, cfg.Now),
		codes:    NewCodeStore(cfg.MagicCodeTTL, cfg.Now),
	}, nil
}

// Stop releases background resources.
func (s *Service) Stop() {
	s.states.Stop()
	s.codes.Stop()
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Connections returns the configured connection names.
func (s *Service) Connections() []string {
	return s.registry.Names()
}

// ReplaceConnections swaps the connection registry.
func (s *Service) ReplaceConnections(conns []Connection) error {
	return s.registry.Replace(conns)
}

// SetDeliverer configures how tokens reach conversations after a callback.
func (s *Service) SetDeliverer(d Deliverer) {
	s.mu.Lock()
	s.deliverer = d
	s.mu.Unlock()
}

// GetToken returns the cached token for key, or nil.
func (s *Service) GetToken(ctx context.Context, key tokens.Key) (*tokens.Token, error) {
	return s.store.GetToken(ctx, key)
}

// SetToken caches a token for key.
func (s *Service) SetToken(ctx context.Context, key tokens.Key, token *tokens.Token) error {
	return s.store.SetToken(ctx, key, token)
}

// DeleteToken removes the token cached for key.
func (s *Service) DeleteToken(ctx context.Context, key tokens.Key) error {
	return s.store.DeleteToken(ctx, key)
}

// SignOutUser forgets the cached token and any unredeemed magic codes.
func (s *Service) SignOutUser(ctx context.Context, key tokens.Key) error {
	s.codes.Revoke(key)
	return s.store.DeleteToken(ctx, key)
}

// GetSignInResource creates a sign-in link for the user of turn.
func (s *Service) GetSignInResource(ctx context.Context, turn *bot.TurnContext, connectionName string) (*activity.SignInResource, error) {
	conf, err := s.registry.Get(connectionName)
	if err != nil {
		return nil, err
	}

	verifier := oauth2.GenerateVerifier()
	state, err := s.states.Generate(PendingSignIn{
		ConnectionName: connectionName,
		Reference:      bot.GetConversationReference(turn.Activity()),
		CodeVerifier:   verifier,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	return &activity.SignInResource{
		SignInLink: conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)),
		TokenExchangeResource: &activity.TokenExchangeResource{
			ID:         uuid.NewString(),
			ProviderID: connectionName,
		},
	}, nil
}

// ExchangeCode redeems a magic code issued to key. It returns nil when the
// code is unknown, expired or belongs to someone else.
func (s *Service) ExchangeCode(ctx context.Context, key tokens.Key, code string) (*tokens.Token, error) {
	v, err, _ := s.exchangeGroup.Do(key.String()+"#"+code, func() (interface{}, error) {
		return s.codes.Redeem(key, code), nil
	})
	if err != nil {
		return nil, err
	}
	token, _ := v.(*tokens.Token)
	if token == nil {
		return nil, nil
	}

	logging.Audit(logging.AuditEvent{
		Action:     "code_redeemed",
		Outcome:    "success",
		Connection: key.ConnectionName,
		UserID:     logging.TruncateID(key.UserID),
		ChannelID:  key.ChannelID,
	})
	cp := *token
	return &cp, nil
}

// CompleteSignIn finishes the authorization code flow for state. The token
// is delivered to the conversation when possible and otherwise parked under
// a magic code.
func (s *Service) CompleteSignIn(ctx context.Context, state, code string) (*SignInOutcome, error) {
	pending := s.states.Consume(state)
	if pending == nil {
		return nil, ErrInvalidState
	}

	conf, err := s.registry.Get(pending.ConnectionName)
	if err != nil {
		return nil, err
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, s.cfg.HTTPClient)
	oauthToken, err := conf.Exchange(exchangeCtx, code, oauth2.VerifierOption(pending.CodeVerifier))
	if err != nil {
		logging.Audit(logging.AuditEvent{
			Action:     "signin_completed",
			Outcome:    "failure",
			Connection: pending.ConnectionName,
			UserID:     logging.TruncateID(pending.Reference.User.ID),
			ChannelID:  pending.Reference.ChannelID,
			Reason:     "code exchange failed",
		})
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	token := &tokens.Token{
		Value:          tokens.NewRedactedToken(oauthToken.AccessToken),
		ConnectionName: pending.ConnectionName,
		Expiration:     oauthToken.Expiry,
	}
	if token.Expiration.IsZero() {
		if exp, ok := tokens.ExpiryFromJWT(oauthToken.AccessToken); ok {
			token.Expiration = exp
		}
	}

	logging.Audit(logging.AuditEvent{
		Action:     "signin_completed",
		Outcome:    "success",
		Connection: pending.ConnectionName,
		UserID:     logging.TruncateID(pending.Reference.User.ID),
		ChannelID:  pending.Reference.ChannelID,
	})

	outcome := &SignInOutcome{ConnectionName: pending.ConnectionName}
	if s.deliver(ctx, pending, token) {
		outcome.Delivered = true
		return outcome, nil
	}

	key := tokens.Key{
		ChannelID:      pending.Reference.ChannelID,
		UserID:         pending.Reference.User.ID,
		ConnectionName: pending.ConnectionName,
	}
	magic, err := s.codes.Issue(key, token)
	if err != nil {
		return nil, err
	}
	outcome.MagicCode = magic
	return outcome, nil
}

func (s *Service) deliver(ctx context.Context, pending *PendingSignIn, token *tokens.Token) bool {
	s.mu.RLock()
	d := s.deliverer
	s.mu.RUnlock()
	if d == nil {
		return false
	}

	resp := activity.TokenResponse{
		ChannelID:      pending.Reference.ChannelID,
		ConnectionName: pending.ConnectionName,
		Token:          token.Value.Value(),
	}
	if !token.Expiration.IsZero() {
		resp.Expiration = token.Expiration.UTC().Format(time.RFC3339)
	}

	act := pending.Reference.ContinuationActivity(activity.EventNameTokenResponse)
	if err := act.SetValue(resp); err != nil {
		logging.Error("TokenService", err, "Failed to encode token response")
		return false
	}
	if err := d.Deliver(ctx, act); err != nil {
		logging.Warn("TokenService", "Failed to deliver token to conversation=%s, falling back to magic code: %v",
			logging.TruncateID(pending.Reference.Conversation.ID), err)
		return false
	}
	return true
}
