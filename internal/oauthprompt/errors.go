package oauthprompt

import "errors"

var (
	// ErrMissingConnectionName is returned when no connection name is configured.
	ErrMissingConnectionName = errors.New("oauth prompt: connection name is required")

	// ErrInvalidTimeout is returned for a negative timeout.
	ErrInvalidTimeout = errors.New("oauth prompt: timeout must be positive")

	// ErrMisconfigured is returned by New when a collaborator is missing.
	ErrMisconfigured = errors.New("oauth prompt: misconfigured")

	// ErrInvalidSignInResource is returned when the sign-in provider returns
	// no usable link.
	ErrInvalidSignInResource = errors.New("oauth prompt: sign-in resource has no link")
)
