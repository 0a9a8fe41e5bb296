// Package oauthprompt implements a dialog that obtains an OAuth token from a
// user over several conversational turns.
//
// # Lifecycle
//
// When the prompt begins it first looks for a cached, unexpired token for the
// user, channel and connection. If one exists the prompt completes at once.
// Otherwise it asks the sign-in resource provider for a link, sends a single
// OAuth card with input hint acceptingInput and stores a PromptState with the
// deadline (now + timeout) on its dialog instance.
//
// Every later turn is handled by ContinueDialog:
//
//   - If the deadline has passed the prompt fails with ReasonTimeout. This is
//     checked before the activity is looked at, so a late code never succeeds.
//   - A tokens/response event for the pending connection completes the
//     prompt with the delivered token.
//   - A message that is only a magic code (after trimming whitespace and an
//     @mention of the bot) is handed to the TokenExchanger. An accepted code
//     completes the prompt; a rejected one increments AttemptCount and keeps
//     waiting without sending anything.
//   - Anything else increments AttemptCount and keeps waiting, or fails with
//     ReasonInvalidMessage when EndOnInvalidMessage is set.
//
// On success the token is written to the TokenStore under the user's key.
// Every terminal outcome ends the dialog exactly once, which removes its
// PromptState.
//
// # Errors
//
// Timeouts and invalid messages are ordinary failed TokenResults. Missing
// connection names and negative timeouts are reported as errors from
// BeginDialog before any state is stored. Errors from the token store, the
// sign-in provider or the exchanger are returned unchanged.
package oauthprompt
