package dialogs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oauthprompt/internal/bot"
	"oauthprompt/internal/state"
	"oauthprompt/internal/storage"
	"oauthprompt/pkg/activity"
)

// counterDialog waits until it has seen target turns, then ends with the
// number of turns it saw.
type counterDialog struct {
	id       string
	target   int
	beginErr error
}

type counterState struct {
	Seen int `json:"seen"`
}

func (d *counterDialog) ID() string { return d.id }

func (d *counterDialog) BeginDialog(ctx context.Context, dc *DialogContext, _ any) (TurnResult, error) {
	if d.beginErr != nil {
		return TurnResult{}, d.beginErr
	}
	if err := dc.SetActiveState(ctx, counterState{}); err != nil {
		return TurnResult{}, err
	}
	return EndOfTurn, nil
}

func (d *counterDialog) ContinueDialog(ctx context.Context, dc *DialogContext) (TurnResult, error) {
	var st counterState
	if _, err := dc.ActiveState(&st); err != nil {
		return TurnResult{}, err
	}
	st.Seen++
	if st.Seen >= d.target {
		return dc.EndDialog(ctx, st.Seen)
	}
	if err := dc.SetActiveState(ctx, st); err != nil {
		return TurnResult{}, err
	}
	return EndOfTurn, nil
}

func (d *counterDialog) ResumeDialog(ctx context.Context, dc *DialogContext, _ any) (TurnResult, error) {
	return EndOfTurn, nil
}

// parentDialog starts a child and ends with whatever the child returned.
type parentDialog struct {
	child string
}

func (d *parentDialog) ID() string { return "parent" }

func (d *parentDialog) BeginDialog(ctx context.Context, dc *DialogContext, _ any) (TurnResult, error) {
	return dc.BeginDialog(ctx, d.child, nil)
}

func (d *parentDialog) ContinueDialog(ctx context.Context, dc *DialogContext) (TurnResult, error) {
	return EndOfTurn, nil
}

func (d *parentDialog) ResumeDialog(ctx context.Context, dc *DialogContext, result any) (TurnResult, error) {
	return dc.EndDialog(ctx, map[string]any{"child": result})
}

type harness struct {
	convo *state.BotState
	set   *DialogSet
}

func newHarness(t *testing.T, ds ...Dialog) *harness {
	t.Helper()
	convo := state.NewConversationState(storage.NewMemoryStorage())
	set := NewDialogSet(state.NewProperty[DialogState](convo, "dialogState"))
	for _, d := range ds {
		require.NoError(t, set.Add(d))
	}
	return &harness{convo: convo, set: set}
}

// turn runs fn against a fresh turn and saves conversation state afterwards,
// the way a host bot does.
func (h *harness) turn(t *testing.T, fn func(dc *DialogContext) (TurnResult, error)) (TurnResult, error) {
	t.Helper()
	turn := bot.NewTurnContext(nil, &activity.Activity{
		Type:         activity.TypeMessage,
		ChannelID:    "test",
		From:         activity.ChannelAccount{ID: "user1"},
		Recipient:    activity.ChannelAccount{ID: "bot"},
		Conversation: activity.ConversationAccount{ID: "Convo1"},
	})
	dc, err := h.set.CreateContext(t.Context(), turn)
	require.NoError(t, err)
	result, err := fn(dc)
	require.NoError(t, h.convo.SaveChanges(t.Context(), turn, false))
	return result, err
}

func TestDialogSet_AddRejectsDuplicates(t *testing.T) {
	set := NewDialogSet(nil)
	require.NoError(t, set.Add(&counterDialog{id: "a"}))
	assert.Error(t, set.Add(&counterDialog{id: "a"}))
	assert.Error(t, set.Add(&counterDialog{id: ""}))
	assert.NotNil(t, set.Find("a"))
	assert.Nil(t, set.Find("b"))
}

func TestDialogContext_StateSurvivesTurns(t *testing.T) {
	h := newHarness(t, &counterDialog{id: "counter", target: 3})

	result, err := h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		r, err := dc.ContinueDialog(t.Context())
		require.NoError(t, err)
		require.Equal(t, StatusEmpty, r.Status)
		return dc.BeginDialog(t.Context(), "counter", nil)
	})
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, result.Status)

	for i := 0; i < 2; i++ {
		result, err = h.turn(t, func(dc *DialogContext) (TurnResult, error) {
			require.NotNil(t, dc.ActiveDialog())
			assert.Equal(t, "counter", dc.ActiveDialog().ID)
			return dc.ContinueDialog(t.Context())
		})
		require.NoError(t, err)
		assert.Equal(t, StatusWaiting, result.Status)
	}

	result, err = h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		return dc.ContinueDialog(t.Context())
	})
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, result.Status)
	assert.Equal(t, 3, result.Result)

	result, err = h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		assert.Nil(t, dc.ActiveDialog())
		return dc.ContinueDialog(t.Context())
	})
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, result.Status)
}

func TestDialogContext_EndResumesParent(t *testing.T) {
	h := newHarness(t, &parentDialog{child: "counter"}, &counterDialog{id: "counter", target: 1})

	result, err := h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		return dc.BeginDialog(t.Context(), "parent", nil)
	})
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, result.Status)

	result, err = h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		require.Len(t, dc.Stack(), 2)
		return dc.ContinueDialog(t.Context())
	})
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, result.Status)
	assert.Equal(t, map[string]any{"child": 1}, result.Result)
}

func TestDialogContext_FailedBeginLeavesNoInstance(t *testing.T) {
	boom := errors.New("misconfigured")
	h := newHarness(t, &counterDialog{id: "broken", beginErr: boom})

	_, err := h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		return dc.BeginDialog(t.Context(), "broken", nil)
	})
	assert.ErrorIs(t, err, boom)

	_, err = h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		assert.Empty(t, dc.Stack())
		return TurnResult{}, nil
	})
	require.NoError(t, err)
}

func TestDialogContext_UnknownDialog(t *testing.T) {
	h := newHarness(t)
	_, err := h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		return dc.BeginDialog(t.Context(), "missing", nil)
	})
	assert.ErrorIs(t, err, ErrDialogNotFound)
}

func TestDialogContext_CancelAll(t *testing.T) {
	h := newHarness(t, &counterDialog{id: "counter", target: 5})

	_, err := h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		return dc.BeginDialog(t.Context(), "counter", nil)
	})
	require.NoError(t, err)

	result, err := h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		return dc.CancelAllDialogs(t.Context())
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Status)

	result, err = h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		return dc.CancelAllDialogs(t.Context())
	})
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, result.Status)
}

func TestDialogContext_SetActiveStateWithoutDialog(t *testing.T) {
	h := newHarness(t)
	_, err := h.turn(t, func(dc *DialogContext) (TurnResult, error) {
		return TurnResult{}, dc.SetActiveState(t.Context(), 1)
	})
	assert.Error(t, err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "waiting", StatusWaiting.String())
	assert.Equal(t, "unknown", Status(99).String())
}
