package dialogs

import (
	"context"
	"fmt"
	"sync"

	"oauthprompt/internal/bot"
	"oauthprompt/internal/state"
)

// DialogSet is a registry of dialogs sharing one persisted stack property.
type DialogSet struct {
	property *state.Property[DialogState]

	mu      sync.RWMutex
	dialogs map[string]Dialog
}

// NewDialogSet creates a DialogSet whose stack is stored in property.
func NewDialogSet(property *state.Property[DialogState]) *DialogSet {
	return &DialogSet{
		property: property,
		dialogs:  make(map[string]Dialog),
	}
}

// Add registers a dialog. Ids must be unique within the set.
func (s *DialogSet) Add(d Dialog) error {
	if d == nil || d.ID() == "" {
		return fmt.Errorf("dialog must have an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.dialogs[d.ID()]; exists {
		return fmt.Errorf("dialog %q already added", d.ID())
	}
	s.dialogs[d.ID()] = d
	return nil
}

// Find returns the dialog registered under id, or nil.
func (s *DialogSet) Find(id string) Dialog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dialogs[id]
}

// CreateContext loads the dialog stack for the turn.
func (s *DialogSet) CreateContext(ctx context.Context, turn *bot.TurnContext) (*DialogContext, error) {
	if s.property == nil {
		return nil, fmt.Errorf("dialog set has no state property")
	}
	ds, err := s.property.Get(ctx, turn, DialogState{})
	if err != nil {
		return nil, fmt.Errorf("failed to load dialog state: %w", err)
	}
	return &DialogContext{set: s, turn: turn, state: ds}, nil
}
