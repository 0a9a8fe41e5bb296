package bot

import (
	"oauthprompt/pkg/activity"
)

// ConversationReference captures enough of an inbound activity to address
// messages to the same conversation later.
type ConversationReference struct {
	ActivityID   string                       `json:"activityId,omitempty"`
	User         activity.ChannelAccount      `json:"user"`
	Bot          activity.ChannelAccount      `json:"bot"`
	Conversation activity.ConversationAccount `json:"conversation"`
	ChannelID    string                       `json:"channelId"`
	ServiceURL   string                       `json:"serviceUrl,omitempty"`
}

// GetConversationReference returns the reference of an inbound activity.
func GetConversationReference(act *activity.Activity) ConversationReference {
	return ConversationReference{
		ActivityID:   act.ID,
		User:         act.From,
		Bot:          act.Recipient,
		Conversation: act.Conversation,
		ChannelID:    act.ChannelID,
		ServiceURL:   act.ServiceURL,
	}
}

// ApplyConversationReference addresses act using ref. Incoming activities are
// from the user to the bot; outgoing ones the other way round.
func ApplyConversationReference(act *activity.Activity, ref ConversationReference, incoming bool) *activity.Activity {
	act.ChannelID = ref.ChannelID
	act.ServiceURL = ref.ServiceURL
	act.Conversation = ref.Conversation
	if incoming {
		act.From = ref.User
		act.Recipient = ref.Bot
		if ref.ActivityID != "" {
			act.ID = ref.ActivityID
		}
		return act
	}
	act.From = ref.Bot
	act.Recipient = ref.User
	if ref.ActivityID != "" {
		act.ReplyToID = ref.ActivityID
	}
	return act
}

// ContinuationActivity returns an inbound event activity for a proactive turn
// on ref.
func (ref ConversationReference) ContinuationActivity(name string) *activity.Activity {
	act := &activity.Activity{Type: activity.TypeEvent, Name: name}
	return ApplyConversationReference(act, ref, true)
}
