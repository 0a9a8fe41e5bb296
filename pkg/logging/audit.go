package logging

import (
	"context"
	"log/slog"
)

// idPrefixLength is how many characters of an identifier are kept in log output.
const idPrefixLength = 8

// TruncateID shortens conversation, user and state identifiers for log output.
// Only the first 8 characters are kept, followed by "...".
func TruncateID(id string) string {
	if len(id) <= idPrefixLength {
		return id
	}
	return id[:idPrefixLength] + "..."
}

// AuditEvent describes a security-relevant operation such as a completed
// sign-in or a redeemed magic code.
type AuditEvent struct {
	// Action is what happened, e.g. "signin_completed", "code_redeemed", "signout".
	Action string

	// Outcome is "success" or "failure".
	Outcome string

	// Connection is the OAuth connection name involved.
	Connection string

	// UserID is the (already truncated) user identifier.
	UserID string

	// ChannelID is the channel the user is talking on.
	ChannelID string

	// Reason is an optional failure reason.
	Reason string
}

// Audit logs an AuditEvent at INFO level with an [AUDIT] prefix.
// Never put token values into an AuditEvent.
func Audit(event AuditEvent) {
	logger := Logger()
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		return
	}

	attrs := []slog.Attr{
		slog.String("subsystem", "Audit"),
		slog.String("action", event.Action),
		slog.String("outcome", event.Outcome),
	}
	if event.Connection != "" {
		attrs = append(attrs, slog.String("connection", event.Connection))
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user", event.UserID))
	}
	if event.ChannelID != "" {
		attrs = append(attrs, slog.String("channel", event.ChannelID))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}

	logger.LogAttrs(context.Background(), slog.LevelInfo, "[AUDIT] "+event.Action, attrs...)
}
