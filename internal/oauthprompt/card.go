package oauthprompt

import (
	"oauthprompt/pkg/activity"
)

// newCardActivity builds the single message sent when the prompt begins.
func newCardActivity(opts PromptOptions, res *activity.SignInResource) *activity.Activity {
	card := &activity.OAuthCard{
		Text:                  opts.Text,
		ConnectionName:        opts.ConnectionName,
		TokenExchangeResource: res.TokenExchangeResource,
		Buttons: []activity.CardAction{{
			Type:  activity.ActionTypeSignIn,
			Title: opts.Title,
			Value: res.SignInLink,
		}},
	}
	return &activity.Activity{
		Type:      activity.TypeMessage,
		InputHint: activity.InputHintAcceptingInput,
		Attachments: []activity.Attachment{{
			ContentType: activity.ContentTypeOAuthCard,
			Content:     card,
		}},
	}
}
