package bot

import (
	"context"

	"oauthprompt/pkg/activity"
)

// Handler processes one turn.
type Handler func(ctx context.Context, turn *TurnContext) error

// Adapter connects the turn pipeline to a channel.
type Adapter interface {
	// SendActivities delivers outbound activities for a turn and returns the
	// ids the channel assigned to them.
	SendActivities(ctx context.Context, turn *TurnContext, acts []*activity.Activity) ([]string, error)

	// ContinueConversation runs handler as a new turn on an existing
	// conversation. The turn's inbound activity is built from ref unless the
	// adapter supports injecting a specific activity.
	ContinueConversation(ctx context.Context, ref ConversationReference, handler Handler) error
}

// ActivityInjector is implemented by adapters that can run a proactive turn
// for a caller-supplied inbound activity, such as a tokens/response event.
type ActivityInjector interface {
	ProcessActivity(ctx context.Context, act *activity.Activity, handler Handler) error
}
