package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"oauthprompt/internal/bot"
	"oauthprompt/internal/tokens"
	"oauthprompt/pkg/activity"
)

// Defaults used to address activities sent through a TestAdapter.
const (
	TestChannelID      = "test"
	TestUserID         = "user1"
	TestBotID          = "bot"
	TestConversationID = "Convo1"
)

type userToken struct {
	token     string
	magicCode string
}

// TestAdapter is an in-process bot.Adapter that also plays the token service:
// it implements the token store, sign-in resource provider and code exchanger
// used by the OAuth prompt.
type TestAdapter struct {
	ref   bot.ConversationReference
	clock Clock

	// turnMu serializes turns like a real channel does per conversation.
	turnMu  sync.Mutex
	handler bot.Handler

	mu      sync.Mutex
	replies []*activity.Activity
	tokens  map[tokens.Key][]userToken
	signIns []string
}

// TestAdapterOption configures a TestAdapter.
type TestAdapterOption func(*TestAdapter)

// WithClock sets the clock used to timestamp inbound activities.
func WithClock(c Clock) TestAdapterOption {
	return func(a *TestAdapter) { a.clock = c }
}

// WithConversation overrides the default conversation reference.
func WithConversation(ref bot.ConversationReference) TestAdapterOption {
	return func(a *TestAdapter) { a.ref = ref }
}

// NewTestAdapter creates a TestAdapter for user1 talking to bot in Convo1 on
// the test channel.
func NewTestAdapter(opts ...TestAdapterOption) *TestAdapter {
	a := &TestAdapter{
		ref: bot.ConversationReference{
			User:         activity.ChannelAccount{ID: TestUserID, Name: "User1"},
			Bot:          activity.ChannelAccount{ID: TestBotID, Name: "Bot"},
			Conversation: activity.ConversationAccount{ID: TestConversationID},
			ChannelID:    TestChannelID,
			ServiceURL:   "https://test.com",
		},
		clock:  RealClock{},
		tokens: make(map[tokens.Key][]userToken),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetHandler sets the bot logic run for every turn.
func (a *TestAdapter) SetHandler(h bot.Handler) {
	a.turnMu.Lock()
	defer a.turnMu.Unlock()
	a.handler = h
}

// Reference returns the conversation reference inbound activities use.
func (a *TestAdapter) Reference() bot.ConversationReference {
	return a.ref
}

// MakeActivity creates an inbound message from the test user.
func (a *TestAdapter) MakeActivity(text string) *activity.Activity {
	act := activity.NewMessage(text)
	return bot.ApplyConversationReference(act, a.ref, true)
}

// TokenResponseEvent creates an inbound tokens/response event carrying token.
func (a *TestAdapter) TokenResponseEvent(connectionName, token string) *activity.Activity {
	act, err := activity.NewEvent(activity.EventNameTokenResponse, activity.TokenResponse{
		ChannelID:      a.ref.ChannelID,
		ConnectionName: connectionName,
		Token:          token,
	})
	if err != nil {
		panic(fmt.Errorf("encode token response: %w", err))
	}
	return bot.ApplyConversationReference(act, a.ref, true)
}

// SendText runs one turn for a message from the test user and returns the
// replies sent during it.
func (a *TestAdapter) SendText(ctx context.Context, text string) ([]*activity.Activity, error) {
	return a.Send(ctx, a.MakeActivity(text))
}

// Send runs one turn for act and returns the replies sent during it.
func (a *TestAdapter) Send(ctx context.Context, act *activity.Activity) ([]*activity.Activity, error) {
	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	if a.handler == nil {
		return nil, fmt.Errorf("test adapter has no handler")
	}

	a.mu.Lock()
	start := len(a.replies)
	a.mu.Unlock()

	if act.ID == "" {
		act.ID = uuid.NewString()
	}
	if act.Timestamp.IsZero() {
		act.Timestamp = a.clock.Now()
	}
	err := a.handler(ctx, bot.NewTurnContext(a, act))

	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*activity.Activity, len(a.replies)-start)
	copy(out, a.replies[start:])
	return out, err
}

// ProcessActivity runs a turn for act, for proactive delivery.
func (a *TestAdapter) ProcessActivity(ctx context.Context, act *activity.Activity, handler bot.Handler) error {
	a.turnMu.Lock()
	defer a.turnMu.Unlock()
	return handler(ctx, bot.NewTurnContext(a, act))
}

// Replies returns every activity the bot has sent so far.
func (a *TestAdapter) Replies() []*activity.Activity {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*activity.Activity, len(a.replies))
	copy(out, a.replies)
	return out
}

func (a *TestAdapter) SendActivities(_ context.Context, _ *bot.TurnContext, acts []*activity.Activity) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(acts))
	for _, act := range acts {
		a.replies = append(a.replies, act)
		ids = append(ids, act.ID)
	}
	return ids, nil
}

func (a *TestAdapter) ContinueConversation(ctx context.Context, ref bot.ConversationReference, handler bot.Handler) error {
	return a.ProcessActivity(ctx, ref.ContinuationActivity("continueConversation"), handler)
}

// AddUserToken seeds a token for a user. Without a magic code the token is
// immediately available from GetToken; with one it is only returned by
// ExchangeCode for that code.
func (a *TestAdapter) AddUserToken(connectionName, channelID, userID, token, magicCode string) {
	key := tokens.Key{ChannelID: channelID, UserID: userID, ConnectionName: connectionName}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[key] = append(a.tokens[key], userToken{token: token, magicCode: magicCode})
}

// SignInRequests returns the connection names sign-in links were requested for.
func (a *TestAdapter) SignInRequests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.signIns))
	copy(out, a.signIns)
	return out
}

func (a *TestAdapter) GetToken(_ context.Context, key tokens.Key) (*tokens.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ut := range a.tokens[key] {
		if ut.magicCode == "" {
			return &tokens.Token{Value: tokens.NewRedactedToken(ut.token), ConnectionName: key.ConnectionName}, nil
		}
	}
	return nil, nil
}

func (a *TestAdapter) SetToken(_ context.Context, key tokens.Key, token *tokens.Token) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := []userToken{{token: token.Value.Value()}}
	for _, ut := range a.tokens[key] {
		if ut.magicCode != "" {
			kept = append(kept, ut)
		}
	}
	a.tokens[key] = kept
	return nil
}

func (a *TestAdapter) DeleteToken(_ context.Context, key tokens.Key) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tokens, key)
	return nil
}

func (a *TestAdapter) GetSignInResource(_ context.Context, turn *bot.TurnContext, connectionName string) (*activity.SignInResource, error) {
	act := turn.Activity()
	a.mu.Lock()
	a.signIns = append(a.signIns, connectionName)
	a.mu.Unlock()
	return &activity.SignInResource{
		SignInLink: fmt.Sprintf("https://fake.com/oauthsignin/%s/%s/%s", connectionName, act.ChannelID, act.From.ID),
		TokenExchangeResource: &activity.TokenExchangeResource{
			ID:         uuid.NewString(),
			URI:        "api://" + connectionName,
			ProviderID: "fake",
		},
	}, nil
}

func (a *TestAdapter) ExchangeCode(_ context.Context, key tokens.Key, code string) (*tokens.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ut := range a.tokens[key] {
		if ut.magicCode != "" && ut.magicCode == code {
			return &tokens.Token{Value: tokens.NewRedactedToken(ut.token), ConnectionName: key.ConnectionName}, nil
		}
	}
	return nil, nil
}
