package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"oauthprompt/internal/bot"
	"oauthprompt/pkg/activity"
	"oauthprompt/pkg/logging"
)

// ChannelID is the channel id of console conversations.
const ChannelID = "console"

// Config configures an Adapter.
type Config struct {
	// UserID identifies the local user. Defaults to the OS user name.
	UserID string

	// ConversationID defaults to a fixed id per user so state survives restarts.
	ConversationID string

	// Prompt is the readline prompt.
	Prompt string

	// HistoryFile defaults to a file in the temp directory.
	HistoryFile string

	// Output receives bot output when no terminal is attached. Defaults to os.Stdout.
	Output io.Writer
}

// Adapter is a bot.Adapter for a local terminal.
type Adapter struct {
	cfg     Config
	ref     bot.ConversationReference
	handler bot.Handler

	turnMu sync.Mutex

	outMu sync.Mutex
	rl    *readline.Instance
}

var (
	_ bot.Adapter          = (*Adapter)(nil)
	_ bot.ActivityInjector = (*Adapter)(nil)
)

// New creates a console adapter that runs handler for every turn.
func New(cfg Config, handler bot.Handler) *Adapter {
	if cfg.UserID == "" {
		cfg.UserID = defaultUserID()
	}
	if cfg.ConversationID == "" {
		cfg.ConversationID = "console-" + cfg.UserID
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "you> "
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = filepath.Join(os.TempDir(), ".oauthprompt_history")
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	return &Adapter{
		cfg:     cfg,
		handler: handler,
		ref: bot.ConversationReference{
			User:         activity.ChannelAccount{ID: cfg.UserID, Name: cfg.UserID, Role: "user"},
			Bot:          activity.ChannelAccount{ID: "oauthprompt", Name: "bot", Role: "bot"},
			Conversation: activity.ConversationAccount{ID: cfg.ConversationID},
			ChannelID:    ChannelID,
		},
	}
}

func defaultUserID() string {
	for _, k := range []string{"USER", "USERNAME"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return "local"
}

// Reference returns the reference of the console conversation.
func (a *Adapter) Reference() bot.ConversationReference {
	return a.ref
}

// Run reads lines until EOF, the user types exit or ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          a.cfg.Prompt,
		HistoryFile:     a.cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	a.outMu.Lock()
	a.rl = rl
	a.outMu.Unlock()
	defer func() {
		a.outMu.Lock()
		a.rl = nil
		a.outMu.Unlock()
	}()

	stop := context.AfterFunc(ctx, func() { rl.Close() })
	defer stop()

	logging.Info("Console", "Console conversation %s started. Type exit to quit.", logging.TruncateID(a.ref.Conversation.ID))

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		} else if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		if err := a.ProcessLine(ctx, input); err != nil {
			logging.Error("Console", err, "Turn failed")
			a.write(fmt.Sprintf("error: %v", err))
		}
	}
}

// ProcessLine runs one turn for a message typed by the user.
func (a *Adapter) ProcessLine(ctx context.Context, text string) error {
	act := bot.ApplyConversationReference(activity.NewMessage(text), a.ref, true)
	act.ID = uuid.NewString()
	return a.ProcessActivity(ctx, act, a.handler)
}

// ProcessActivity runs one turn for act. Turns are serialized.
func (a *Adapter) ProcessActivity(ctx context.Context, act *activity.Activity, handler bot.Handler) error {
	if handler == nil {
		return errors.New("console adapter has no handler")
	}
	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	logging.Debug("Console", "Processing %s activity", act.Type)
	return handler(ctx, bot.NewTurnContext(a, act))
}

// SendActivities prints acts.
func (a *Adapter) SendActivities(_ context.Context, _ *bot.TurnContext, acts []*activity.Activity) ([]string, error) {
	ids := make([]string, len(acts))
	for i, act := range acts {
		ids[i] = act.ID
		if text := Render(act); text != "" {
			a.write(text)
		}
	}
	return ids, nil
}

// ContinueConversation runs handler on a proactive turn for ref.
func (a *Adapter) ContinueConversation(ctx context.Context, ref bot.ConversationReference, handler bot.Handler) error {
	act := ref.ContinuationActivity("continueConversation")
	return a.ProcessActivity(ctx, act, handler)
}

func (a *Adapter) write(text string) {
	a.outMu.Lock()
	defer a.outMu.Unlock()

	if a.rl != nil {
		fmt.Fprintf(a.rl.Stdout(), "\r\033[Kbot> %s\n", text)
		a.rl.Refresh()
		return
	}
	fmt.Fprintf(a.cfg.Output, "bot> %s\n", text)
}
