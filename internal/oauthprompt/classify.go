package oauthprompt

import (
	"regexp"

	"oauthprompt/pkg/activity"
)

// DefaultMagicCodePattern matches the six digit codes issued by the token
// service.
var DefaultMagicCodePattern = regexp.MustCompile(`^\d{6}$`)

// InputKind tags a RecognizedInput.
type InputKind int

const (
	InputUnrecognized InputKind = iota
	InputTokenEvent
	InputMagicCode
)

func (k InputKind) String() string {
	switch k {
	case InputTokenEvent:
		return "tokenEvent"
	case InputMagicCode:
		return "magicCode"
	default:
		return "unrecognized"
	}
}

// RecognizedInput is the classification of one inbound activity. Exactly one
// of TokenResponse and Code is set, matching Kind, or neither for
// InputUnrecognized.
type RecognizedInput struct {
	Kind          InputKind
	TokenResponse *activity.TokenResponse
	Code          string
}

// Classify decides what an inbound activity means to a prompt waiting on
// connectionName.
func Classify(act *activity.Activity, connectionName string, codePattern *regexp.Regexp) RecognizedInput {
	if act == nil {
		return RecognizedInput{}
	}
	if codePattern == nil {
		codePattern = DefaultMagicCodePattern
	}

	switch act.Type {
	case activity.TypeEvent:
		if !act.IsTokenResponseEvent() {
			break
		}
		var resp activity.TokenResponse
		if err := act.DecodeValue(&resp); err != nil {
			break
		}
		if resp.ConnectionName != connectionName || resp.Token == "" {
			break
		}
		return RecognizedInput{Kind: InputTokenEvent, TokenResponse: &resp}

	case activity.TypeMessage:
		text := activity.RemoveRecipientMention(act)
		if codePattern.MatchString(text) {
			return RecognizedInput{Kind: InputMagicCode, Code: text}
		}
	}
	return RecognizedInput{Kind: InputUnrecognized}
}
