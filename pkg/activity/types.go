package activity

import (
	"encoding/json"
	"time"
)

// Type is the kind of an Activity.
type Type string

const (
	TypeMessage            Type = "message"
	TypeEvent              Type = "event"
	TypeInvoke             Type = "invoke"
	TypeTrace              Type = "trace"
	TypeTyping             Type = "typing"
	TypeConversationUpdate Type = "conversationUpdate"
)

// InputHint tells the channel whether the bot expects a reply.
type InputHint string

const (
	InputHintAcceptingInput InputHint = "acceptingInput"
	InputHintExpectingInput InputHint = "expectingInput"
	InputHintIgnoringInput  InputHint = "ignoringInput"
)

const (
	// ContentTypeOAuthCard is the attachment content type of an OAuth sign-in card.
	ContentTypeOAuthCard = "application/vnd.microsoft.card.oauth"

	// ContentTypeSignInCard is the attachment content type of a plain sign-in card.
	ContentTypeSignInCard = "application/vnd.microsoft.card.signin"

	// EventNameTokenResponse is the name of the event activity that carries a
	// token delivered out of band by the token service.
	EventNameTokenResponse = "tokens/response"

	// ActionTypeSignIn is the card action type that opens a sign-in page.
	ActionTypeSignIn = "signin"

	// EntityTypeMention is the entity type used for @mentions.
	EntityTypeMention = "mention"
)

// ChannelAccount identifies a user or bot on a channel.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// ConversationAccount identifies a conversation on a channel.
type ConversationAccount struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	IsGroup bool   `json:"isGroup,omitempty"`
}

// Entity is extra structured data attached to an activity. Only mentions are
// interpreted by this module.
type Entity struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Mentioned *ChannelAccount `json:"mentioned,omitempty"`
}

// Attachment carries rich content such as cards.
type Attachment struct {
	ContentType string `json:"contentType"`
	Content     any    `json:"content,omitempty"`
	Name        string `json:"name,omitempty"`
}

// CardAction is a clickable action on a card.
type CardAction struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	Value string `json:"value,omitempty"`
}

// TokenExchangeResource describes how a channel may perform single sign-on
// token exchange on behalf of the user.
type TokenExchangeResource struct {
	ID         string `json:"id,omitempty"`
	URI        string `json:"uri,omitempty"`
	ProviderID string `json:"providerId,omitempty"`
}

// OAuthCard is the content of an OAuth sign-in attachment.
type OAuthCard struct {
	Text                  string                 `json:"text,omitempty"`
	ConnectionName        string                 `json:"connectionName"`
	TokenExchangeResource *TokenExchangeResource `json:"tokenExchangeResource,omitempty"`
	Buttons               []CardAction           `json:"buttons"`
}

// SignInResource is what a sign-in resource provider hands back for a
// connection: the link the user opens and an optional SSO exchange resource.
type SignInResource struct {
	SignInLink            string                 `json:"signInLink"`
	TokenExchangeResource *TokenExchangeResource `json:"tokenExchangeResource,omitempty"`
}

// TokenResponse is the value of a tokens/response event.
type TokenResponse struct {
	ChannelID      string `json:"channelId,omitempty"`
	ConnectionName string `json:"connectionName"`
	Token          string `json:"token"`
	Expiration     string `json:"expiration,omitempty"`
}

// Activity is a single message, event or command exchanged on a conversation.
type Activity struct {
	Type         Type                `json:"type"`
	ID           string              `json:"id,omitempty"`
	Timestamp    time.Time           `json:"timestamp,omitempty"`
	ChannelID    string              `json:"channelId"`
	ServiceURL   string              `json:"serviceUrl,omitempty"`
	From         ChannelAccount      `json:"from"`
	Recipient    ChannelAccount      `json:"recipient"`
	Conversation ConversationAccount `json:"conversation"`
	ReplyToID    string              `json:"replyToId,omitempty"`
	Text         string              `json:"text,omitempty"`
	Name         string              `json:"name,omitempty"`
	Value        json.RawMessage     `json:"value,omitempty"`
	InputHint    InputHint           `json:"inputHint,omitempty"`
	Attachments  []Attachment        `json:"attachments,omitempty"`
	Entities     []Entity            `json:"entities,omitempty"`
}
