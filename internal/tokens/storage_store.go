package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"oauthprompt/internal/storage"
	"oauthprompt/pkg/logging"
)

const storageKeyPrefix = "tokens/"

// tokenRecord is the persisted form of a Token. RedactedToken refuses to
// marshal its value, so the secret is copied out explicitly.
type tokenRecord struct {
	ConnectionName string    `json:"connectionName"`
	Token          string    `json:"token"`
	Expiration     time.Time `json:"expiration,omitzero"`
}

// StorageStore keeps tokens in a storage.Storage under
// tokens/<channel>/<user>/<connection>.
type StorageStore struct {
	storage storage.Storage
	now     func() time.Time
}

var _ Store = (*StorageStore)(nil)

// NewStorageStore creates a Store backed by s.
func NewStorageStore(s storage.Storage) *StorageStore {
	return &StorageStore{storage: s, now: time.Now}
}

func (ss *StorageStore) GetToken(ctx context.Context, key Key) (*Token, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	token, err := ss.read(ctx, storageKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if token.IsExpired(ss.now(), ExpiryMargin) {
		logging.Debug("TokenStore", "Token expired for user=%s connection=%s",
			logging.TruncateID(key.UserID), key.ConnectionName)
		return nil, nil
	}
	return token, nil
}

func (ss *StorageStore) SetToken(ctx context.Context, key Key, token *Token) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(tokenRecord{
		ConnectionName: key.ConnectionName,
		Token:          token.Value.Value(),
		Expiration:     token.Expiration,
	})
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := ss.storage.Write(ctx, storageKey(key), data); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	logging.Debug("TokenStore", "Stored token for user=%s connection=%s",
		logging.TruncateID(key.UserID), key.ConnectionName)
	return nil
}

func (ss *StorageStore) DeleteToken(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := ss.storage.Delete(ctx, storageKey(key)); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

func (ss *StorageStore) List(ctx context.Context) ([]Entry, error) {
	keys, err := ss.storage.List(ctx, storageKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	entries := make([]Entry, 0, len(keys))
	for _, raw := range keys {
		key, ok := parseStorageKey(raw)
		if !ok {
			logging.Warn("TokenStore", "Skipping malformed token key %s", raw)
			continue
		}
		token, err := ss.read(ctx, raw)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: key, Token: token})
	}
	sortEntries(entries)
	return entries, nil
}

func (ss *StorageStore) read(ctx context.Context, key string) (*Token, error) {
	data, err := ss.storage.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	var rec tokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode token %s: %w", key, err)
	}
	return &Token{
		Value:          NewRedactedToken(rec.Token),
		ConnectionName: rec.ConnectionName,
		Expiration:     rec.Expiration,
	}, nil
}

func storageKey(k Key) string {
	return storageKeyPrefix + url.PathEscape(k.ChannelID) + "/" + url.PathEscape(k.UserID) + "/" + url.PathEscape(k.ConnectionName)
}

func parseStorageKey(raw string) (Key, bool) {
	parts := strings.Split(strings.TrimPrefix(raw, storageKeyPrefix), "/")
	if len(parts) != 3 {
		return Key{}, false
	}
	var out [3]string
	for i, p := range parts {
		v, err := url.PathUnescape(p)
		if err != nil {
			return Key{}, false
		}
		out[i] = v
	}
	return Key{ChannelID: out[0], UserID: out[1], ConnectionName: out[2]}, true
}
