// Package tokenservice is the provider side of the OAuth prompt.
//
// It keeps a registry of OAuth connections built on golang.org/x/oauth2 and
// implements the prompt's collaborators:
//
//   - GetSignInResource builds an authorization URL with PKCE (S256) and a
//     single-use state nonce that remembers which conversation asked.
//   - The callback Handler validates the state, exchanges the authorization
//     code with the provider and then either pushes a tokens/response event
//     into the conversation through a Deliverer or, when no deliverer is
//     configured or delivery fails, issues a six digit magic code and shows
//     it on the result page.
//   - ExchangeCode redeems a magic code for the user it was issued to. Codes
//     are single use and expire after MagicCodeTTL.
//
// Token caching itself is delegated to a tokens.Store.
package tokenservice
