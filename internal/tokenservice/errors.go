package tokenservice

import "errors"

var (
	// ErrUnknownConnection is returned for connection names not in the registry.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrInvalidState is returned when a callback carries an unknown, used or
	// expired state parameter.
	ErrInvalidState = errors.New("invalid or expired sign-in state")
)
