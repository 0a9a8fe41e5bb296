// Package mock provides test doubles for the chat and OAuth layers.
//
// Clock and MockClock let tests move time forward without sleeping, which is
// how prompt timeouts and token expiry are exercised.
//
// TestAdapter is an in-process channel. Tests send text or activities through
// it, collect the bot's replies per turn and seed user tokens the way a real
// token service would:
//
//	adapter := mock.NewTestAdapter()
//	adapter.AddUserToken("myConnection", "test", "user1", "abc123", "888999")
//	replies, err := adapter.SendText(ctx, "Hello")
//
// A token added without a magic code is returned straight from GetToken; one
// added with a code is only handed out by ExchangeCode for that code.
//
// OAuthServer is a minimal OAuth 2.0 authorization server on httptest with an
// auto-approving authorize endpoint, PKCE and JWT access tokens, used to test
// the token service's callback flow end to end.
package mock
