// Package bot implements the turn pipeline shared by every channel.
//
// A channel adapter receives an inbound activity, wraps it in a TurnContext
// and invokes a Handler. Everything the handler sends during the turn goes
// back through the adapter, addressed using the inbound activity's
// conversation reference.
//
// Proactive delivery (for example the token service pushing a tokens/response
// event after the provider callback) uses Adapter.ContinueConversation with a
// ConversationReference captured earlier.
package bot
