package oauthprompt

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oauthprompt/pkg/activity"
)

func message(text string, entities ...activity.Entity) *activity.Activity {
	return &activity.Activity{
		Type:      activity.TypeMessage,
		Text:      text,
		From:      activity.ChannelAccount{ID: "user1"},
		Recipient: activity.ChannelAccount{ID: "bot", Name: "Bot"},
		Entities:  entities,
	}
}

func tokenEvent(t *testing.T, connectionName, token string) *activity.Activity {
	t.Helper()
	act, err := activity.NewEvent(activity.EventNameTokenResponse, activity.TokenResponse{
		ConnectionName: connectionName,
		Token:          token,
	})
	require.NoError(t, err)
	return act
}

func TestClassify(t *testing.T) {
	mention := activity.Entity{
		Type:      activity.EntityTypeMention,
		Text:      "<at>Bot</at>",
		Mentioned: &activity.ChannelAccount{ID: "bot"},
	}
	otherMention := activity.Entity{
		Type:      activity.EntityTypeMention,
		Text:      "<at>Someone</at>",
		Mentioned: &activity.ChannelAccount{ID: "someone"},
	}

	tests := []struct {
		name     string
		act      *activity.Activity
		wantKind InputKind
		wantCode string
	}{
		{name: "nil activity", act: nil, wantKind: InputUnrecognized},
		{name: "plain code", act: message("888999"), wantKind: InputMagicCode, wantCode: "888999"},
		{name: "code with whitespace", act: message("  888999\n"), wantKind: InputMagicCode, wantCode: "888999"},
		{name: "code after bot mention", act: message("<at>Bot</at> 888999", mention), wantKind: InputMagicCode, wantCode: "888999"},
		{name: "code split by bot mention", act: message("888<at>Bot</at>999", mention), wantKind: InputUnrecognized},
		{name: "code after other mention", act: message("<at>Someone</at> 888999", otherMention), wantKind: InputUnrecognized},
		{name: "too short", act: message("12345"), wantKind: InputUnrecognized},
		{name: "too long", act: message("1234567"), wantKind: InputUnrecognized},
		{name: "code inside sentence", act: message("my code is 888999"), wantKind: InputUnrecognized},
		{name: "plain text", act: message("Hello"), wantKind: InputUnrecognized},
		{name: "matching token event", act: tokenEvent(t, "myConnection", "abc123"), wantKind: InputTokenEvent},
		{name: "token event for another connection", act: tokenEvent(t, "other", "abc123"), wantKind: InputUnrecognized},
		{name: "token event without token", act: tokenEvent(t, "myConnection", ""), wantKind: InputUnrecognized},
		{name: "event without value", act: &activity.Activity{Type: activity.TypeEvent, Name: activity.EventNameTokenResponse}, wantKind: InputUnrecognized},
		{name: "other event", act: &activity.Activity{Type: activity.TypeEvent, Name: "ping"}, wantKind: InputUnrecognized},
		{name: "invoke", act: &activity.Activity{Type: activity.TypeInvoke, Name: "signin/verifyState"}, wantKind: InputUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.act, "myConnection", nil)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantCode, got.Code)
			if tt.wantKind == InputTokenEvent {
				require.NotNil(t, got.TokenResponse)
				assert.Equal(t, "abc123", got.TokenResponse.Token)
			} else {
				assert.Nil(t, got.TokenResponse)
			}
		})
	}
}

func TestClassify_CustomPattern(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]{4}-\d{4}$`)

	got := Classify(message("ABCD-1234"), "myConnection", pattern)
	assert.Equal(t, InputMagicCode, got.Kind)

	got = Classify(message("888999"), "myConnection", pattern)
	assert.Equal(t, InputUnrecognized, got.Kind)
}

func TestInputKindString(t *testing.T) {
	assert.Equal(t, "tokenEvent", InputTokenEvent.String())
	assert.Equal(t, "magicCode", InputMagicCode.String())
	assert.Equal(t, "unrecognized", InputUnrecognized.String())
}
