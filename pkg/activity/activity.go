package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoValue is returned by DecodeValue when the activity carries no value.
var ErrNoValue = errors.New("activity has no value")

// NewMessage creates a message activity with the given text.
func NewMessage(text string) *Activity {
	return &Activity{Type: TypeMessage, Text: text}
}

// NewEvent creates a named event activity whose value is the JSON encoding of v.
func NewEvent(name string, v any) (*Activity, error) {
	a := &Activity{Type: TypeEvent, Name: name}
	if err := a.SetValue(v); err != nil {
		return nil, err
	}
	return a, nil
}

// SetValue stores the JSON encoding of v as the activity value.
func (a *Activity) SetValue(v any) error {
	if v == nil {
		a.Value = nil
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode activity value: %w", err)
	}
	a.Value = data
	return nil
}

// DecodeValue decodes the activity value into out.
func (a *Activity) DecodeValue(out any) error {
	if len(a.Value) == 0 {
		return ErrNoValue
	}
	if err := json.Unmarshal(a.Value, out); err != nil {
		return fmt.Errorf("decode activity value: %w", err)
	}
	return nil
}

// IsTokenResponseEvent reports whether the activity is a tokens/response event.
func (a *Activity) IsTokenResponseEvent() bool {
	return a != nil && a.Type == TypeEvent && a.Name == EventNameTokenResponse
}

// CreateReply builds a message addressed back to the sender of a, on the same
// channel and conversation.
func (a *Activity) CreateReply(text string) *Activity {
	return &Activity{
		Type:         TypeMessage,
		ChannelID:    a.ChannelID,
		ServiceURL:   a.ServiceURL,
		From:         a.Recipient,
		Recipient:    a.From,
		Conversation: a.Conversation,
		ReplyToID:    a.ID,
		Text:         text,
	}
}

// RemoveRecipientMention returns the activity text trimmed, with a leading
// @mention of the recipient (the bot) removed.
func RemoveRecipientMention(a *Activity) string {
	if a == nil {
		return ""
	}
	text := strings.TrimSpace(a.Text)
	for _, e := range a.Entities {
		if e.Type != EntityTypeMention || e.Mentioned == nil {
			continue
		}
		if e.Mentioned.ID != a.Recipient.ID || e.Text == "" {
			continue
		}
		text = strings.TrimPrefix(text, e.Text)
	}
	return strings.TrimSpace(text)
}

// OAuthCardFrom extracts the OAuth card from an attachment. It accepts both a
// typed *OAuthCard and content decoded from JSON.
func OAuthCardFrom(att Attachment) (*OAuthCard, error) {
	if att.ContentType != ContentTypeOAuthCard {
		return nil, fmt.Errorf("attachment content type %q is not an OAuth card", att.ContentType)
	}
	switch c := att.Content.(type) {
	case *OAuthCard:
		return c, nil
	case OAuthCard:
		return &c, nil
	}
	data, err := json.Marshal(att.Content)
	if err != nil {
		return nil, fmt.Errorf("encode card content: %w", err)
	}
	var card OAuthCard
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("decode card content: %w", err)
	}
	return &card, nil
}
