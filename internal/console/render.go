package console

import (
	"fmt"
	"strings"

	"oauthprompt/pkg/activity"
)

// Render formats act for the terminal. Activities with nothing to show
// render as the empty string.
func Render(act *activity.Activity) string {
	if act == nil || act.Type == activity.TypeTrace {
		return ""
	}

	var lines []string
	if act.Text != "" {
		lines = append(lines, act.Text)
	}
	for _, att := range act.Attachments {
		if s := renderAttachment(att); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}

func renderAttachment(att activity.Attachment) string {
	if att.ContentType != activity.ContentTypeOAuthCard {
		return fmt.Sprintf("[%s attachment]", att.ContentType)
	}

	card, err := activity.OAuthCardFrom(att)
	if err != nil {
		return "[unreadable sign-in card]"
	}

	var b strings.Builder
	title := "Sign in"
	if len(card.Buttons) > 0 && card.Buttons[0].Title != "" {
		title = card.Buttons[0].Title
	}
	fmt.Fprintf(&b, "== %s (%s) ==", title, card.ConnectionName)
	if card.Text != "" {
		fmt.Fprintf(&b, "\n%s", card.Text)
	}
	for _, button := range card.Buttons {
		if button.Value != "" {
			fmt.Fprintf(&b, "\nOpen: %s", button.Value)
		}
	}
	b.WriteString("\nIf the page shows a code, type it here.")
	return b.String()
}
