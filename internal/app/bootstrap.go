package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"oauthprompt/internal/bot"
	"oauthprompt/internal/config"
	"oauthprompt/internal/console"
	"oauthprompt/internal/tokenservice"
	"oauthprompt/pkg/activity"
	"oauthprompt/pkg/logging"
)

// Application bootstraps and runs the console bot.
//
// Initialization has two phases:
//  1. Bootstrap: load configuration, initialize logging, build services
//  2. Run: serve the console, the callback server and the config watcher
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads configuration and builds all services. An invalid
// configuration is returned as a config.ConfigurationErrorCollection.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	var logOutput io.Writer = os.Stderr
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.InitForCLI(appLogLevel, logOutput)

	appCfg, err := config.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", cfg.ConfigPath)
		return nil, err
	}
	if err := appCfg.Validate(config.FilePath(cfg.ConfigPath)); err != nil {
		return nil, err
	}
	cfg.AppConfig = &appCfg

	services, err := InitializeServices(&appCfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{config: cfg, services: services}, nil
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves the console conversation until the user quits or ctx is
// cancelled, then releases all resources.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		if err := a.services.Close(); err != nil {
			logging.Error("App", err, "Failed to close services")
		}
	}()

	adapter := console.New(console.Config{}, a.services.Bot.OnTurn)
	a.services.TokenService.SetDeliverer(ConversationDeliverer(adapter, a.services.Bot.OnTurn))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	server := NewCallbackServer(a.config.AppConfig.Server, a.services.TokenService)
	g.Go(func() error {
		return server.ListenAndServe(ctx)
	})

	g.Go(func() error {
		return config.Watch(ctx, a.config.ConfigPath, func(cfg config.Config) {
			if err := a.services.TokenService.ReplaceConnections(Connections(cfg.Connections)); err != nil {
				logging.Warn("App", "Keeping previous connections: %v", err)
			}
		})
	})

	g.Go(func() error {
		defer cancel()
		return adapter.Run(ctx)
	})

	return g.Wait()
}

// ErrUnknownConversation is returned when a token is delivered for a
// conversation the adapter does not host.
var ErrUnknownConversation = errors.New("unknown conversation")

// ConversationDeliverer injects token events into conversations hosted by
// injector and runs handler for them.
func ConversationDeliverer(injector interface {
	bot.ActivityInjector
	Reference() bot.ConversationReference
}, handler bot.Handler) tokenservice.Deliverer {
	return tokenservice.DeliverFunc(func(ctx context.Context, act *activity.Activity) error {
		ref := injector.Reference()
		if act.ChannelID != ref.ChannelID || act.Conversation.ID != ref.Conversation.ID {
			return fmt.Errorf("%w: %s", ErrUnknownConversation, logging.TruncateID(act.Conversation.ID))
		}
		return injector.ProcessActivity(ctx, act, handler)
	})
}
