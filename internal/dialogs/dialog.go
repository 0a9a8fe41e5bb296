package dialogs

import (
	"context"
	"encoding/json"
	"errors"
)

// Status reports what a dialog turn did to the stack.
type Status int

const (
	// StatusEmpty means there was no active dialog.
	StatusEmpty Status = iota
	// StatusWaiting means the active dialog is waiting for the next turn.
	StatusWaiting
	// StatusComplete means the last dialog on the stack ended.
	StatusComplete
	// StatusCancelled means the stack was cancelled.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusWaiting:
		return "waiting"
	case StatusComplete:
		return "complete"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TurnResult is returned by dialog lifecycle calls.
type TurnResult struct {
	Status Status
	Result any
}

// EndOfTurn is returned by a dialog that keeps waiting for input.
var EndOfTurn = TurnResult{Status: StatusWaiting}

// ErrDialogNotFound is returned when a dialog id is not registered.
var ErrDialogNotFound = errors.New("dialog not found")

// Dialog is one step of a conversation that can span several turns.
type Dialog interface {
	ID() string

	// BeginDialog runs when the dialog is pushed onto the stack.
	BeginDialog(ctx context.Context, dc *DialogContext, options any) (TurnResult, error)

	// ContinueDialog runs on each later turn while the dialog is active.
	ContinueDialog(ctx context.Context, dc *DialogContext) (TurnResult, error)

	// ResumeDialog runs when a child dialog ended with result.
	ResumeDialog(ctx context.Context, dc *DialogContext, result any) (TurnResult, error)
}

// DialogInstance is one entry of the persisted stack.
type DialogInstance struct {
	ID    string          `json:"id"`
	State json.RawMessage `json:"state,omitempty"`
}

// DialogState is the persisted dialog stack. The active dialog is last.
type DialogState struct {
	Stack []DialogInstance `json:"dialogStack"`
}
