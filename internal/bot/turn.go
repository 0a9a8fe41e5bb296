package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"oauthprompt/pkg/activity"
)

// TurnContext is the per-turn view of a conversation: the inbound activity,
// a way to reply and a cache shared by everything that runs during the turn.
type TurnContext struct {
	adapter  Adapter
	activity *activity.Activity
	state    *TurnState

	mu        sync.Mutex
	responded bool
}

// NewTurnContext wraps an inbound activity.
func NewTurnContext(adapter Adapter, act *activity.Activity) *TurnContext {
	return &TurnContext{
		adapter:  adapter,
		activity: act,
		state:    &TurnState{values: make(map[string]any)},
	}
}

// Activity returns the inbound activity.
func (t *TurnContext) Activity() *activity.Activity {
	return t.activity
}

// Adapter returns the adapter that created the turn.
func (t *TurnContext) Adapter() Adapter {
	return t.adapter
}

// TurnState returns the per-turn cache.
func (t *TurnContext) TurnState() *TurnState {
	return t.state
}

// Responded reports whether a message has been sent during this turn.
func (t *TurnContext) Responded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.responded
}

// SendText sends a plain message reply.
func (t *TurnContext) SendText(ctx context.Context, text string) (string, error) {
	return t.SendActivity(ctx, activity.NewMessage(text))
}

// SendActivity sends a single activity and returns its id.
func (t *TurnContext) SendActivity(ctx context.Context, act *activity.Activity) (string, error) {
	ids, err := t.SendActivities(ctx, act)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

// SendActivities addresses the activities to the turn's conversation and
// hands them to the adapter.
func (t *TurnContext) SendActivities(ctx context.Context, acts ...*activity.Activity) ([]string, error) {
	if t.adapter == nil {
		return nil, errors.New("turn has no adapter")
	}
	if len(acts) == 0 {
		return nil, nil
	}

	ref := GetConversationReference(t.activity)
	out := make([]*activity.Activity, 0, len(acts))
	sentMessage := false
	for _, a := range acts {
		if a == nil {
			continue
		}
		c := *a
		ApplyConversationReference(&c, ref, false)
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Timestamp.IsZero() {
			c.Timestamp = time.Now().UTC()
		}
		if c.Type == "" {
			c.Type = activity.TypeMessage
		}
		if c.Type != activity.TypeTrace {
			sentMessage = true
		}
		out = append(out, &c)
	}

	ids, err := t.adapter.SendActivities(ctx, t, out)
	if err != nil {
		return nil, err
	}
	if sentMessage {
		t.mu.Lock()
		t.responded = true
		t.mu.Unlock()
	}
	return ids, nil
}

// TurnState is a concurrency-safe cache scoped to one turn.
type TurnState struct {
	mu     sync.RWMutex
	values map[string]any
}

// Get returns the value stored under key.
func (s *TurnState) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *TurnState) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key.
func (s *TurnState) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}
