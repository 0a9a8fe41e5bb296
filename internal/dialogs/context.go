package dialogs

import (
	"context"
	"encoding/json"
	"fmt"

	"oauthprompt/internal/bot"
	"oauthprompt/pkg/logging"
)

// DialogContext is the dialog stack for one turn.
type DialogContext struct {
	set   *DialogSet
	turn  *bot.TurnContext
	state DialogState
}

// Turn returns the current turn.
func (dc *DialogContext) Turn() *bot.TurnContext {
	return dc.turn
}

// Stack returns a copy of the current stack, active dialog last.
func (dc *DialogContext) Stack() []DialogInstance {
	out := make([]DialogInstance, len(dc.state.Stack))
	copy(out, dc.state.Stack)
	return out
}

// ActiveDialog returns the instance on top of the stack, or nil.
func (dc *DialogContext) ActiveDialog() *DialogInstance {
	if len(dc.state.Stack) == 0 {
		return nil
	}
	inst := dc.state.Stack[len(dc.state.Stack)-1]
	return &inst
}

// BeginDialog pushes the dialog registered under id and starts it. If the
// dialog fails to start its instance is removed again.
func (dc *DialogContext) BeginDialog(ctx context.Context, id string, options any) (TurnResult, error) {
	d := dc.set.Find(id)
	if d == nil {
		return TurnResult{}, fmt.Errorf("%w: %s", ErrDialogNotFound, id)
	}

	dc.state.Stack = append(dc.state.Stack, DialogInstance{ID: id})
	depth := len(dc.state.Stack)
	if err := dc.persist(ctx); err != nil {
		return TurnResult{}, err
	}
	logging.Debug("Dialogs", "Beginning dialog %s (depth %d)", id, depth)

	result, err := d.BeginDialog(ctx, dc, options)
	if err != nil {
		if len(dc.state.Stack) == depth && dc.state.Stack[depth-1].ID == id {
			dc.state.Stack = dc.state.Stack[:depth-1]
			if perr := dc.persist(ctx); perr != nil {
				logging.Error("Dialogs", perr, "Failed to unwind dialog %s", id)
			}
		}
		return TurnResult{}, err
	}
	return result, nil
}

// Prompt begins a prompt dialog.
func (dc *DialogContext) Prompt(ctx context.Context, id string, options any) (TurnResult, error) {
	return dc.BeginDialog(ctx, id, options)
}

// ContinueDialog continues the active dialog, if any.
func (dc *DialogContext) ContinueDialog(ctx context.Context) (TurnResult, error) {
	active := dc.ActiveDialog()
	if active == nil {
		return TurnResult{Status: StatusEmpty}, nil
	}
	d := dc.set.Find(active.ID)
	if d == nil {
		return TurnResult{}, fmt.Errorf("%w: active dialog %s", ErrDialogNotFound, active.ID)
	}
	return d.ContinueDialog(ctx, dc)
}

// EndDialog pops the active dialog and resumes its parent with result. When
// the stack becomes empty the turn result is StatusComplete.
func (dc *DialogContext) EndDialog(ctx context.Context, result any) (TurnResult, error) {
	if len(dc.state.Stack) > 0 {
		ended := dc.state.Stack[len(dc.state.Stack)-1]
		dc.state.Stack = dc.state.Stack[:len(dc.state.Stack)-1]
		if err := dc.persist(ctx); err != nil {
			return TurnResult{}, err
		}
		logging.Debug("Dialogs", "Ended dialog %s", ended.ID)
	}

	parent := dc.ActiveDialog()
	if parent == nil {
		return TurnResult{Status: StatusComplete, Result: result}, nil
	}
	d := dc.set.Find(parent.ID)
	if d == nil {
		return TurnResult{}, fmt.Errorf("%w: parent dialog %s", ErrDialogNotFound, parent.ID)
	}
	return d.ResumeDialog(ctx, dc, result)
}

// CancelAllDialogs empties the stack.
func (dc *DialogContext) CancelAllDialogs(ctx context.Context) (TurnResult, error) {
	if len(dc.state.Stack) == 0 {
		return TurnResult{Status: StatusEmpty}, nil
	}
	dc.state.Stack = nil
	if err := dc.persist(ctx); err != nil {
		return TurnResult{}, err
	}
	return TurnResult{Status: StatusCancelled}, nil
}

// ActiveState decodes the active dialog's state into out. It reports false
// when there is no active dialog or it has no state yet.
func (dc *DialogContext) ActiveState(out any) (bool, error) {
	active := dc.ActiveDialog()
	if active == nil || len(active.State) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(active.State, out); err != nil {
		return false, fmt.Errorf("failed to decode state of dialog %s: %w", active.ID, err)
	}
	return true, nil
}

// SetActiveState replaces the active dialog's state.
func (dc *DialogContext) SetActiveState(ctx context.Context, v any) error {
	if len(dc.state.Stack) == 0 {
		return fmt.Errorf("no active dialog")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode dialog state: %w", err)
	}
	dc.state.Stack[len(dc.state.Stack)-1].State = data
	return dc.persist(ctx)
}

func (dc *DialogContext) persist(ctx context.Context) error {
	if err := dc.set.property.Set(ctx, dc.turn, dc.state); err != nil {
		return fmt.Errorf("failed to store dialog state: %w", err)
	}
	return nil
}
