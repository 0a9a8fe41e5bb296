package state

import (
	"context"
	"encoding/json"
	"fmt"

	"oauthprompt/internal/bot"
)

// Property is a typed accessor for one named value inside a BotState.
type Property[T any] struct {
	state *BotState
	name  string
}

// NewProperty creates an accessor for the property name of state.
func NewProperty[T any](state *BotState, name string) *Property[T] {
	return &Property[T]{state: state, name: name}
}

// Name returns the property name.
func (p *Property[T]) Name() string {
	return p.name
}

// Get returns the property value. A missing property is initialised with def.
func (p *Property[T]) Get(ctx context.Context, turn *bot.TurnContext, def T) (T, error) {
	values, err := p.state.values(ctx, turn)
	if err != nil {
		var zero T
		return zero, err
	}

	raw, ok := values[p.name]
	if !ok {
		if err := p.Set(ctx, turn, def); err != nil {
			var zero T
			return zero, err
		}
		return def, nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode property %s: %w", p.name, err)
	}
	return v, nil
}

// Set replaces the property value.
func (p *Property[T]) Set(ctx context.Context, turn *bot.TurnContext, v T) error {
	values, err := p.state.values(ctx, turn)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode property %s: %w", p.name, err)
	}
	values[p.name] = data
	return nil
}

// Delete removes the property.
func (p *Property[T]) Delete(ctx context.Context, turn *bot.TurnContext) error {
	values, err := p.state.values(ctx, turn)
	if err != nil {
		return err
	}
	delete(values, p.name)
	return nil
}
