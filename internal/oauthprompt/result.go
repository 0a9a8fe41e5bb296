package oauthprompt

import (
	"time"

	"oauthprompt/internal/tokens"
)

// FailureReason explains a failed TokenResult.
type FailureReason string

const (
	ReasonTimeout        FailureReason = "timeout"
	ReasonInvalidMessage FailureReason = "invalidMessage"
)

// TokenResult is what the prompt ends its dialog with. It succeeded when it
// carries a token.
type TokenResult struct {
	ConnectionName string
	Token          tokens.RedactedToken
	Expiration     time.Time

	// Reason is set on failure.
	Reason FailureReason
}

// Succeeded reports whether the result carries a token.
func (r TokenResult) Succeeded() bool {
	return !r.Token.IsEmpty()
}

func successResult(t *tokens.Token) TokenResult {
	return TokenResult{
		ConnectionName: t.ConnectionName,
		Token:          t.Value,
		Expiration:     t.Expiration,
	}
}

func failureResult(connectionName string, reason FailureReason) TokenResult {
	return TokenResult{ConnectionName: connectionName, Reason: reason}
}
