// Package logging provides the structured logging used throughout oauthprompt.
//
// It is a thin layer over Go's log/slog that tags every entry with a subsystem
// name and keeps the call sites printf-style.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("OAuthPrompt", "Sent sign-in card for connection=%s", name)
//	logging.Debug("TokenStore", "Stored token for user=%s", logging.TruncateID(userID))
//	logging.Warn("Config", "Unknown storage driver %q, using memory", driver)
//	logging.Error("TokenService", err, "Failed to exchange authorization code")
//
// # Subsystems
//
//   - **App**: bootstrap and shutdown
//   - **Config**: configuration loading, validation and reload
//   - **Dialogs**: dialog stack operations
//   - **OAuthPrompt**: the sign-in prompt state machine
//   - **TokenStore**: token cache reads and writes
//   - **TokenService**: sign-in links, callbacks and magic codes
//   - **Storage**: durable key/value backends
//   - **Console**: the interactive console channel
//
// # Secrets
//
// Token values must never be passed to the logging functions. Identifiers such
// as user and conversation IDs are shortened with TruncateID. Security-relevant
// outcomes are reported with Audit, which logs at INFO with an [AUDIT] prefix.
package logging
