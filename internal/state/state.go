package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"oauthprompt/internal/bot"
	"oauthprompt/internal/storage"
	"oauthprompt/pkg/activity"
	"oauthprompt/pkg/logging"
)

// KeyFunc derives the storage key for a turn.
type KeyFunc func(act *activity.Activity) (string, error)

// BotState is a storage-backed bag of named properties scoped by a KeyFunc.
type BotState struct {
	name    string
	storage storage.Storage
	key     KeyFunc
}

// cachedState is what a BotState keeps in the turn cache.
type cachedState struct {
	values map[string]json.RawMessage
	hash   string
}

// New creates a BotState. name identifies it in the turn cache and must be
// unique per turn.
func New(name string, store storage.Storage, key KeyFunc) *BotState {
	return &BotState{name: name, storage: store, key: key}
}

// NewConversationState scopes state to channel/conversations/<id>.
func NewConversationState(store storage.Storage) *BotState {
	return New("ConversationState", store, conversationKey)
}

// NewUserState scopes state to channel/users/<id>.
func NewUserState(store storage.Storage) *BotState {
	return New("UserState", store, userKey)
}

func conversationKey(act *activity.Activity) (string, error) {
	if act.ChannelID == "" {
		return "", errors.New("conversation state: missing activity.channelId")
	}
	if act.Conversation.ID == "" {
		return "", errors.New("conversation state: missing activity.conversation.id")
	}
	return act.ChannelID + "/conversations/" + act.Conversation.ID, nil
}

func userKey(act *activity.Activity) (string, error) {
	if act.ChannelID == "" {
		return "", errors.New("user state: missing activity.channelId")
	}
	if act.From.ID == "" {
		return "", errors.New("user state: missing activity.from.id")
	}
	return act.ChannelID + "/users/" + act.From.ID, nil
}

// Name returns the turn cache name of the state.
func (b *BotState) Name() string {
	return b.name
}

// StorageKey returns the storage key used for the turn.
func (b *BotState) StorageKey(turn *bot.TurnContext) (string, error) {
	return b.key(turn.Activity())
}

// Load reads the state into the turn cache. Without force an already loaded
// state is kept.
func (b *BotState) Load(ctx context.Context, turn *bot.TurnContext, force bool) error {
	if _, ok := b.cached(turn); ok && !force {
		return nil
	}

	key, err := b.key(turn.Activity())
	if err != nil {
		return err
	}

	values := make(map[string]json.RawMessage)
	data, err := b.storage.Read(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to load %s: %w", b.name, err)
	default:
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("failed to decode %s: %w", b.name, err)
		}
	}

	hash, err := hashValues(values)
	if err != nil {
		return err
	}
	turn.TurnState().Set(b.name, &cachedState{values: values, hash: hash})
	return nil
}

// SaveChanges writes the cached state back to storage when it changed since
// it was loaded, or unconditionally with force.
func (b *BotState) SaveChanges(ctx context.Context, turn *bot.TurnContext, force bool) error {
	cs, ok := b.cached(turn)
	if !ok {
		return nil
	}

	hash, err := hashValues(cs.values)
	if err != nil {
		return err
	}
	if !force && hash == cs.hash {
		return nil
	}

	key, err := b.key(turn.Activity())
	if err != nil {
		return err
	}
	data, err := json.Marshal(cs.values)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", b.name, err)
	}
	if err := b.storage.Write(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", b.name, err)
	}

	cs.hash = hash
	logging.Debug("Storage", "Saved %s for %s", b.name, logging.TruncateID(key))
	return nil
}

// Clear empties the cached state. The change reaches storage on the next
// SaveChanges.
func (b *BotState) Clear(turn *bot.TurnContext) {
	cs, ok := b.cached(turn)
	if !ok {
		turn.TurnState().Set(b.name, &cachedState{values: make(map[string]json.RawMessage)})
		return
	}
	cs.values = make(map[string]json.RawMessage)
}

// Delete removes the state from the turn cache and from storage.
func (b *BotState) Delete(ctx context.Context, turn *bot.TurnContext) error {
	turn.TurnState().Delete(b.name)
	key, err := b.key(turn.Activity())
	if err != nil {
		return err
	}
	return b.storage.Delete(ctx, key)
}

func (b *BotState) cached(turn *bot.TurnContext) (*cachedState, bool) {
	v, ok := turn.TurnState().Get(b.name)
	if !ok {
		return nil, false
	}
	cs, ok := v.(*cachedState)
	return cs, ok
}

func (b *BotState) values(ctx context.Context, turn *bot.TurnContext) (map[string]json.RawMessage, error) {
	if err := b.Load(ctx, turn, false); err != nil {
		return nil, err
	}
	cs, _ := b.cached(turn)
	return cs.values, nil
}

func hashValues(values map[string]json.RawMessage) (string, error) {
	// encoding/json sorts map keys, so equal contents hash equally.
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to hash state: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
