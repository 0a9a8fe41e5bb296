package oauthprompt

import (
	"context"
	"time"

	"oauthprompt/internal/tokens"
	"oauthprompt/pkg/activity"
)

// exchangeCode asks the exchanger to redeem code. A nil token means the code
// was rejected.
func (p *Prompt) exchangeCode(ctx context.Context, key tokens.Key, code string) (*tokens.Token, error) {
	token, err := p.exchanger.ExchangeCode(ctx, key, code)
	if err != nil {
		return nil, err
	}
	if token == nil || token.Value.IsEmpty() {
		return nil, nil
	}
	if token.ConnectionName == "" {
		token.ConnectionName = key.ConnectionName
	}
	return token, nil
}

// tokenFromResponse converts a delivered tokens/response payload.
func tokenFromResponse(resp *activity.TokenResponse) *tokens.Token {
	token := &tokens.Token{
		Value:          tokens.NewRedactedToken(resp.Token),
		ConnectionName: resp.ConnectionName,
	}
	if resp.Expiration != "" {
		if exp, err := time.Parse(time.RFC3339, resp.Expiration); err == nil {
			token.Expiration = exp
		}
	}
	if token.Expiration.IsZero() {
		if exp, ok := tokens.ExpiryFromJWT(resp.Token); ok {
			token.Expiration = exp
		}
	}
	return token
}

// tokenKey is the token store key for the sender of act.
func tokenKey(act *activity.Activity, connectionName string) tokens.Key {
	return tokens.Key{
		ChannelID:      act.ChannelID,
		UserID:         act.From.ID,
		ConnectionName: connectionName,
	}
}
