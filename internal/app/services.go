package app

import (
	"fmt"
	"os"
	"path/filepath"

	"oauthprompt/internal/config"
	"oauthprompt/internal/dialogs"
	"oauthprompt/internal/oauthprompt"
	"oauthprompt/internal/state"
	"oauthprompt/internal/storage"
	"oauthprompt/internal/storage/sqlite"
	"oauthprompt/internal/tokens"
	"oauthprompt/internal/tokenservice"
	"oauthprompt/pkg/logging"
)

// Services holds all initialized components used by the application.
//
// They are created in dependency order:
//  1. Storage backend
//  2. Token store on top of it
//  3. Token service (provider side of sign-in)
//  4. Conversation state, dialog set and the sign-in prompt
//  5. Login bot
type Services struct {
	Storage      storage.Storage
	Tokens       tokens.Store
	TokenService *tokenservice.Service
	Conversation *state.BotState
	Dialogs      *dialogs.DialogSet
	Prompt       *oauthprompt.Prompt
	Bot          *LoginBot

	closers []func() error
}

// InitializeServices builds every service from cfg.
func InitializeServices(cfg *config.Config) (*Services, error) {
	s := &Services{}

	store, closeStore, err := OpenStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.Storage = store
	if closeStore != nil {
		s.closers = append(s.closers, closeStore)
	}

	if cfg.Storage.Driver == config.StorageDriverMemory {
		mem := tokens.NewMemoryStore()
		s.Tokens = mem
		s.closers = append(s.closers, func() error { mem.Stop(); return nil })
	} else {
		s.Tokens = tokens.NewStorageStore(store)
	}

	s.TokenService, err = tokenservice.New(tokenservice.Config{
		PublicURL:    cfg.Server.PublicURL,
		CallbackPath: cfg.Server.CallbackPath,
		MagicCodeTTL: cfg.Prompt.MagicCodeTTL,
	}, s.Tokens, Connections(cfg.Connections))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	s.closers = append(s.closers, func() error { s.TokenService.Stop(); return nil })

	s.Conversation = state.NewConversationState(store)
	s.Dialogs = dialogs.NewDialogSet(state.NewProperty[dialogs.DialogState](s.Conversation, "dialogState"))

	s.Prompt, err = oauthprompt.New(PromptDialogID, oauthprompt.PromptOptions{
		ConnectionName:      cfg.PromptConnection(),
		Title:               cfg.Prompt.Title,
		Text:                cfg.Prompt.Text,
		Timeout:             cfg.Prompt.Timeout,
		EndOnInvalidMessage: cfg.Prompt.EndOnInvalidMessage,
	}, oauthprompt.Config{
		Tokens:    s.TokenService,
		SignIn:    s.TokenService,
		Exchanger: s.TokenService,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create sign-in prompt: %w", err)
	}
	if err := s.Dialogs.Add(s.Prompt); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.Bot = NewLoginBot(s.Conversation, s.Dialogs, s.Prompt)

	logging.Info("App", "Services initialized (storage=%s, connections=%v)", cfg.Storage.Driver, s.TokenService.Connections())
	return s, nil
}

// Close releases storage and background goroutines in reverse order.
func (s *Services) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// OpenStorage opens the configured storage backend. The returned close
// function may be nil.
func OpenStorage(cfg config.StorageConfig) (storage.Storage, func() error, error) {
	switch cfg.Driver {
	case config.StorageDriverMemory:
		return storage.NewMemoryStorage(), nil, nil

	case config.StorageDriverFile:
		fs, err := storage.NewFileStorage(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		return fs, nil, nil

	case config.StorageDriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create storage directory: %w", err)
			}
		}
		db, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return db, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Connections converts configured connections for the token service.
func Connections(in []config.ConnectionConfig) []tokenservice.Connection {
	out := make([]tokenservice.Connection, 0, len(in))
	for _, c := range in {
		out = append(out, tokenservice.Connection{
			Name:         c.Name,
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			AuthURL:      c.AuthURL,
			TokenURL:     c.TokenURL,
			Scopes:       c.Scopes,
		})
	}
	return out
}
