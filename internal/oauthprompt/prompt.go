package oauthprompt

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"oauthprompt/internal/bot"
	"oauthprompt/internal/dialogs"
	"oauthprompt/internal/tokens"
	"oauthprompt/pkg/activity"
	"oauthprompt/pkg/logging"
)

// TokenStore caches user tokens. GetToken returns nil when there is none.
type TokenStore interface {
	GetToken(ctx context.Context, key tokens.Key) (*tokens.Token, error)
	SetToken(ctx context.Context, key tokens.Key, token *tokens.Token) error
	DeleteToken(ctx context.Context, key tokens.Key) error
}

// SignInResourceProvider returns the sign-in link for a connection.
type SignInResourceProvider interface {
	GetSignInResource(ctx context.Context, turn *bot.TurnContext, connectionName string) (*activity.SignInResource, error)
}

// TokenExchanger redeems a magic code typed by the user. It returns a nil
// token when the code is rejected and an error only when it could not decide.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, key tokens.Key, code string) (*tokens.Token, error)
}

// Config wires a Prompt to its collaborators.
type Config struct {
	Tokens    TokenStore
	SignIn    SignInResourceProvider
	Exchanger TokenExchanger

	// Now defaults to time.Now.
	Now func() time.Time

	// MagicCodePattern defaults to DefaultMagicCodePattern.
	MagicCodePattern *regexp.Regexp
}

// Prompt is a dialogs.Dialog that obtains a user token.
type Prompt struct {
	id        string
	settings  PromptOptions
	tokens    TokenStore
	signIn    SignInResourceProvider
	exchanger TokenExchanger
	now       func() time.Time
	pattern   *regexp.Regexp
}

var _ dialogs.Dialog = (*Prompt)(nil)

// New creates a Prompt registered under id. settings are the defaults for
// every invocation; options passed to BeginDialog override them.
func New(id string, settings PromptOptions, cfg Config) (*Prompt, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: dialog id is required", ErrMisconfigured)
	}
	var missing []string
	if cfg.Tokens == nil {
		missing = append(missing, "token store")
	}
	if cfg.SignIn == nil {
		missing = append(missing, "sign-in resource provider")
	}
	if cfg.Exchanger == nil {
		missing = append(missing, "token exchanger")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMisconfigured, strings.Join(missing, ", "))
	}

	p := &Prompt{
		id:        id,
		settings:  settings,
		tokens:    cfg.Tokens,
		signIn:    cfg.SignIn,
		exchanger: cfg.Exchanger,
		now:       cfg.Now,
		pattern:   cfg.MagicCodePattern,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.pattern == nil {
		p.pattern = DefaultMagicCodePattern
	}
	return p, nil
}

func (p *Prompt) ID() string {
	return p.id
}

// BeginDialog completes immediately with a cached token or sends the sign-in
// card and starts waiting. options may be nil, PromptOptions or *PromptOptions.
func (p *Prompt) BeginDialog(ctx context.Context, dc *dialogs.DialogContext, options any) (dialogs.TurnResult, error) {
	now := p.now()

	override, err := optionsFrom(options)
	if err != nil {
		return dialogs.TurnResult{}, err
	}
	opts, err := p.settings.merge(override).validate()
	if err != nil {
		return dialogs.TurnResult{}, err
	}

	turn := dc.Turn()
	act := turn.Activity()
	key := tokenKey(act, opts.ConnectionName)
	if err := key.Validate(); err != nil {
		return dialogs.TurnResult{}, err
	}

	cached, err := p.tokens.GetToken(ctx, key)
	if err != nil {
		return dialogs.TurnResult{}, err
	}
	if cached != nil && !cached.Value.IsEmpty() && !cached.IsExpired(now, 0) {
		logging.Debug("OAuthPrompt", "Using cached token for user=%s connection=%s",
			logging.TruncateID(key.UserID), key.ConnectionName)
		if cached.ConnectionName == "" {
			cached.ConnectionName = key.ConnectionName
		}
		p.audit(key, "token_acquired", "success", "cached")
		return dc.EndDialog(ctx, successResult(cached))
	}

	resource, err := p.signIn.GetSignInResource(ctx, turn, opts.ConnectionName)
	if err != nil {
		return dialogs.TurnResult{}, err
	}
	if resource == nil || resource.SignInLink == "" {
		return dialogs.TurnResult{}, fmt.Errorf("%w: connection %s", ErrInvalidSignInResource, opts.ConnectionName)
	}

	if _, err := turn.SendActivity(ctx, newCardActivity(opts, resource)); err != nil {
		return dialogs.TurnResult{}, err
	}

	st := PromptState{
		State:               PhaseWaitingForInput,
		ConnectionName:      opts.ConnectionName,
		ExpiresAt:           now.Add(opts.Timeout),
		EndOnInvalidMessage: opts.EndOnInvalidMessage,
	}
	if err := dc.SetActiveState(ctx, st); err != nil {
		return dialogs.TurnResult{}, err
	}

	logging.Info("OAuthPrompt", "Waiting for sign-in of user=%s connection=%s until %s",
		logging.TruncateID(key.UserID), key.ConnectionName, st.ExpiresAt.Format(time.RFC3339))
	p.audit(key, "signin_started", "success", "")
	return dialogs.EndOfTurn, nil
}

// ContinueDialog applies one turn to a waiting prompt.
func (p *Prompt) ContinueDialog(ctx context.Context, dc *dialogs.DialogContext) (dialogs.TurnResult, error) {
	var st PromptState
	ok, err := dc.ActiveState(&st)
	if err != nil {
		return dialogs.TurnResult{}, err
	}
	if !ok {
		return dialogs.TurnResult{}, fmt.Errorf("oauth prompt %s has no state", p.id)
	}
	if st.State != PhaseWaitingForInput {
		// Already finished; end without producing output.
		return dc.EndDialog(ctx, failureResult(st.ConnectionName, ""))
	}

	act := dc.Turn().Activity()
	key := tokenKey(act, st.ConnectionName)

	if st.expired(p.now()) {
		logging.Info("OAuthPrompt", "Sign-in timed out for user=%s connection=%s",
			logging.TruncateID(key.UserID), key.ConnectionName)
		p.audit(key, "signin_failed", "failure", string(ReasonTimeout))
		return p.complete(ctx, dc, &st, failureResult(st.ConnectionName, ReasonTimeout))
	}

	in := Classify(act, st.ConnectionName, p.pattern)
	logging.Debug("OAuthPrompt", "Classified %s activity as %s", act.Type, in.Kind)

	switch in.Kind {
	case InputTokenEvent:
		token := tokenFromResponse(in.TokenResponse)
		return p.succeed(ctx, dc, &st, key, token, "token_event")

	case InputMagicCode:
		token, err := p.exchangeCode(ctx, key, in.Code)
		if err != nil {
			return dialogs.TurnResult{}, err
		}
		if token == nil {
			p.audit(key, "code_rejected", "failure", "")
			return p.keepWaiting(ctx, dc, &st)
		}
		return p.succeed(ctx, dc, &st, key, token, "magic_code")

	default:
		if st.EndOnInvalidMessage && act.Type == activity.TypeMessage {
			p.audit(key, "signin_failed", "failure", string(ReasonInvalidMessage))
			return p.complete(ctx, dc, &st, failureResult(st.ConnectionName, ReasonInvalidMessage))
		}
		return p.keepWaiting(ctx, dc, &st)
	}
}

// ResumeDialog keeps waiting; the prompt never starts child dialogs.
func (p *Prompt) ResumeDialog(_ context.Context, _ *dialogs.DialogContext, _ any) (dialogs.TurnResult, error) {
	return dialogs.EndOfTurn, nil
}

// GetUserToken returns the cached token for the sender of the turn without
// prompting, or nil.
func (p *Prompt) GetUserToken(ctx context.Context, turn *bot.TurnContext) (*tokens.Token, error) {
	key, err := p.settingsKey(turn)
	if err != nil {
		return nil, err
	}
	return p.tokens.GetToken(ctx, key)
}

// SignOutUser removes the cached token for the sender of the turn.
func (p *Prompt) SignOutUser(ctx context.Context, turn *bot.TurnContext) error {
	key, err := p.settingsKey(turn)
	if err != nil {
		return err
	}
	if err := p.tokens.DeleteToken(ctx, key); err != nil {
		return err
	}
	p.audit(key, "signout", "success", "")
	return nil
}

func (p *Prompt) settingsKey(turn *bot.TurnContext) (tokens.Key, error) {
	name := strings.TrimSpace(p.settings.ConnectionName)
	if name == "" {
		return tokens.Key{}, ErrMissingConnectionName
	}
	key := tokenKey(turn.Activity(), name)
	return key, key.Validate()
}

func (p *Prompt) succeed(ctx context.Context, dc *dialogs.DialogContext, st *PromptState, key tokens.Key, token *tokens.Token, via string) (dialogs.TurnResult, error) {
	if err := p.tokens.SetToken(ctx, key, token); err != nil {
		return dialogs.TurnResult{}, err
	}
	logging.Info("OAuthPrompt", "Signed in user=%s connection=%s via %s",
		logging.TruncateID(key.UserID), key.ConnectionName, via)
	p.audit(key, "token_acquired", "success", via)
	return p.complete(ctx, dc, st, successResult(token))
}

func (p *Prompt) keepWaiting(ctx context.Context, dc *dialogs.DialogContext, st *PromptState) (dialogs.TurnResult, error) {
	st.AttemptCount++
	if err := dc.SetActiveState(ctx, st); err != nil {
		return dialogs.TurnResult{}, err
	}
	return dialogs.EndOfTurn, nil
}

// complete ends the dialog, which discards the prompt state.
func (p *Prompt) complete(ctx context.Context, dc *dialogs.DialogContext, st *PromptState, result TokenResult) (dialogs.TurnResult, error) {
	st.State = PhaseCompleted
	return dc.EndDialog(ctx, result)
}

func (p *Prompt) audit(key tokens.Key, action, outcome, reason string) {
	logging.Audit(logging.AuditEvent{
		Action:     action,
		Outcome:    outcome,
		Connection: key.ConnectionName,
		UserID:     logging.TruncateID(key.UserID),
		ChannelID:  key.ChannelID,
		Reason:     reason,
	})
}
