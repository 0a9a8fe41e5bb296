package console

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oauthprompt/internal/bot"
	"oauthprompt/pkg/activity"
)

func newTestAdapter(handler bot.Handler) (*Adapter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(Config{UserID: "alice", Output: out}, handler), out
}

func TestProcessLineEchoes(t *testing.T) {
	var seen *activity.Activity
	a, out := newTestAdapter(func(ctx context.Context, turn *bot.TurnContext) error {
		seen = turn.Activity()
		_, err := turn.SendText(ctx, "you said "+turn.Activity().Text)
		return err
	})

	require.NoError(t, a.ProcessLine(context.Background(), "hello"))

	require.NotNil(t, seen)
	assert.Equal(t, activity.TypeMessage, seen.Type)
	assert.Equal(t, ChannelID, seen.ChannelID)
	assert.Equal(t, "alice", seen.From.ID)
	assert.Equal(t, "console-alice", seen.Conversation.ID)
	assert.NotEmpty(t, seen.ID)
	assert.Equal(t, "bot> you said hello\n", out.String())
}

func TestProcessActivityErrors(t *testing.T) {
	a, _ := newTestAdapter(nil)
	err := a.ProcessLine(context.Background(), "hi")
	assert.Error(t, err)

	boom := errors.New("boom")
	a, _ = newTestAdapter(func(context.Context, *bot.TurnContext) error { return boom })
	assert.Same(t, boom, a.ProcessLine(context.Background(), "hi"))
}

func TestContinueConversation(t *testing.T) {
	a, out := newTestAdapter(nil)

	var got *activity.Activity
	err := a.ContinueConversation(context.Background(), a.Reference(), func(ctx context.Context, turn *bot.TurnContext) error {
		got = turn.Activity()
		_, err := turn.SendText(ctx, "proactive")
		return err
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, activity.TypeEvent, got.Type)
	assert.Equal(t, "continueConversation", got.Name)
	assert.Equal(t, "alice", got.From.ID)
	assert.Contains(t, out.String(), "bot> proactive")
}

func TestTurnsAreSerialized(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		overlap bool
	)
	a, _ := newTestAdapter(func(context.Context, *bot.TurnContext) error {
		mu.Lock()
		active++
		if active > 1 {
			overlap = true
		}
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.ProcessLine(context.Background(), "x")
		}()
	}
	wg.Wait()
	assert.False(t, overlap)
}

func TestRender(t *testing.T) {
	card := &activity.OAuthCard{
		Text:           "Please sign in",
		ConnectionName: "github",
		Buttons: []activity.CardAction{{
			Type:  activity.ActionTypeSignIn,
			Title: "Sign In",
			Value: "https://example.com/authorize?state=abc",
		}},
	}

	tests := []struct {
		name string
		act  *activity.Activity
		want string
	}{
		{name: "nil", act: nil, want: ""},
		{name: "trace", act: &activity.Activity{Type: activity.TypeTrace, Text: "debug"}, want: ""},
		{name: "text", act: activity.NewMessage("Logged in."), want: "Logged in."},
		{
			name: "oauth card",
			act: &activity.Activity{
				Type:        activity.TypeMessage,
				Attachments: []activity.Attachment{{ContentType: activity.ContentTypeOAuthCard, Content: card}},
			},
			want: "== Sign In (github) ==\nPlease sign in\nOpen: https://example.com/authorize?state=abc\nIf the page shows a code, type it here.",
		},
		{
			name: "card decoded from json",
			act: &activity.Activity{
				Type: activity.TypeMessage,
				Attachments: []activity.Attachment{{
					ContentType: activity.ContentTypeOAuthCard,
					Content:     map[string]any{"connectionName": "github", "buttons": []any{}},
				}},
			},
			want: "== Sign in (github) ==\nIf the page shows a code, type it here.",
		},
		{
			name: "other attachment",
			act: &activity.Activity{
				Type:        activity.TypeMessage,
				Text:        "see",
				Attachments: []activity.Attachment{{ContentType: "image/png"}},
			},
			want: "see\n[image/png attachment]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.act))
		})
	}
}
