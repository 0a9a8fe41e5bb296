package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"oauthprompt/internal/bot"
	"oauthprompt/internal/dialogs"
	"oauthprompt/internal/oauthprompt"
	"oauthprompt/internal/state"
	"oauthprompt/pkg/activity"
	"oauthprompt/pkg/logging"
)

// PromptDialogID is the dialog id of the sign-in prompt.
const PromptDialogID = "OAuthPrompt"

const (
	replyLoggedIn  = "Logged in."
	replyFailed    = "Failed"
	replySignedOut = "Signed out."
)

// ErrNoPendingSignIn is returned for a token event that arrives when no
// sign-in prompt is waiting, so the sender can hand the token out another way.
var ErrNoPendingSignIn = errors.New("no sign-in prompt is waiting")

// LoginBot hosts the sign-in prompt.
type LoginBot struct {
	conversation *state.BotState
	dialogs      *dialogs.DialogSet
	prompt       *oauthprompt.Prompt
}

// NewLoginBot creates a LoginBot. prompt must already be added to set.
func NewLoginBot(conversation *state.BotState, set *dialogs.DialogSet, prompt *oauthprompt.Prompt) *LoginBot {
	return &LoginBot{conversation: conversation, dialogs: set, prompt: prompt}
}

// OnTurn runs one turn.
func (b *LoginBot) OnTurn(ctx context.Context, turn *bot.TurnContext) error {
	if err := b.handle(ctx, turn); err != nil {
		return err
	}
	return b.conversation.SaveChanges(ctx, turn, false)
}

func (b *LoginBot) handle(ctx context.Context, turn *bot.TurnContext) error {
	act := turn.Activity()
	if act.Type == activity.TypeMessage && isLogout(act.Text) {
		dc, err := b.dialogs.CreateContext(ctx, turn)
		if err != nil {
			return err
		}
		if _, err := dc.CancelAllDialogs(ctx); err != nil {
			return err
		}
		if err := b.prompt.SignOutUser(ctx, turn); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
		_, err = turn.SendText(ctx, replySignedOut)
		return err
	}

	dc, err := b.dialogs.CreateContext(ctx, turn)
	if err != nil {
		return err
	}

	result, err := dc.ContinueDialog(ctx)
	if err != nil {
		return err
	}
	if result.Status == dialogs.StatusEmpty {
		if act.Type == activity.TypeEvent && act.Name == activity.EventNameTokenResponse {
			return fmt.Errorf("%w: conversation=%s", ErrNoPendingSignIn, logging.TruncateID(act.Conversation.ID))
		}
		if act.Type != activity.TypeMessage {
			logging.Debug("App", "Ignoring %s activity with no active dialog", act.Type)
			return nil
		}
		result, err = dc.Prompt(ctx, PromptDialogID, nil)
		if err != nil {
			return err
		}
	}

	if result.Status == dialogs.StatusComplete {
		tr, ok := result.Result.(oauthprompt.TokenResult)
		text := replyFailed
		if ok && tr.Succeeded() {
			text = replyLoggedIn
		}
		if _, err := turn.SendText(ctx, text); err != nil {
			return err
		}
	}
	return nil
}

func isLogout(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "logout", "signout", "sign out":
		return true
	}
	return false
}
