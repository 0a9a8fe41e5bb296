// Package app provides application bootstrap and lifecycle management for
// oauthprompt.
//
// # Components
//
//  1. Configuration (config.go): runtime settings from the command line
//  2. Services (services.go): storage backend, token store, token service,
//     conversation state, dialogs and the sign-in prompt
//  3. Login bot (login_bot.go): the hosting dialog logic
//  4. Callback server (server.go): the HTTP endpoint OAuth providers
//     redirect to
//  5. Bootstrap (bootstrap.go): wires everything and runs the console, the
//     callback server and the configuration watcher until one of them stops
//
// # Login Bot
//
// Every turn the bot continues the active dialog. When nothing is active it
// starts the sign-in prompt. When the prompt completes the bot replies
// "Logged in." or "Failed". Typing "logout" signs the user out. Conversation
// state is saved at the end of every turn so a half-finished sign-in
// survives a restart.
//
// # Token Delivery
//
// After a browser sign-in the token service pushes a tokens/response event
// into the console conversation, which completes the waiting prompt without
// further input. If that fails the callback page shows a six digit code the
// user types into the console instead.
package app
