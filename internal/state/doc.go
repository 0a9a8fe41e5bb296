// Package state persists bot state between turns.
//
// A BotState is scoped by a key derived from the inbound activity:
// conversation state is shared by everyone in a conversation, user state
// follows a user across conversations on the same channel. State is loaded
// once per turn into the turn cache, read and written through typed
// properties, and written back to storage by SaveChanges only when its
// contents changed.
package state
