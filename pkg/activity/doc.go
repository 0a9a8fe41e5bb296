// Package activity defines the chat wire model exchanged between a channel and
// the bot: activities, accounts, attachments and the OAuth sign-in card.
//
// The JSON shape follows the Bot Framework activity schema so that activities
// can be persisted, replayed and sent over HTTP unchanged.
package activity
