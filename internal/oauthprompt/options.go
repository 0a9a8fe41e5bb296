package oauthprompt

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout applies when PromptOptions.Timeout is zero.
const DefaultTimeout = 15 * time.Minute

// PromptOptions configures one prompt invocation.
type PromptOptions struct {
	// ConnectionName identifies the OAuth connection. Required.
	ConnectionName string `json:"connectionName" yaml:"connectionName"`

	// Title is the label of the sign-in button.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Text is shown on the card above the button.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Timeout is how long the prompt waits for the user. Zero means
	// DefaultTimeout.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// EndOnInvalidMessage fails the prompt on the first message that is
	// neither a token event nor a magic code.
	EndOnInvalidMessage bool `json:"endOnInvalidMessage,omitempty" yaml:"endOnInvalidMessage,omitempty"`
}

// merge returns o with every set field of override applied on top.
func (o PromptOptions) merge(override PromptOptions) PromptOptions {
	if override.ConnectionName != "" {
		o.ConnectionName = override.ConnectionName
	}
	if override.Title != "" {
		o.Title = override.Title
	}
	if override.Text != "" {
		o.Text = override.Text
	}
	if override.Timeout != 0 {
		o.Timeout = override.Timeout
	}
	if override.EndOnInvalidMessage {
		o.EndOnInvalidMessage = true
	}
	return o
}

// validate checks the options and fills in defaults.
func (o PromptOptions) validate() (PromptOptions, error) {
	o.ConnectionName = strings.TrimSpace(o.ConnectionName)
	if o.ConnectionName == "" {
		return o, ErrMissingConnectionName
	}
	if o.Timeout < 0 {
		return o, fmt.Errorf("%w: got %s", ErrInvalidTimeout, o.Timeout)
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Title == "" {
		o.Title = "Sign In"
	}
	return o, nil
}

// optionsFrom accepts the options argument of BeginDialog.
func optionsFrom(v any) (PromptOptions, error) {
	switch o := v.(type) {
	case nil:
		return PromptOptions{}, nil
	case PromptOptions:
		return o, nil
	case *PromptOptions:
		if o == nil {
			return PromptOptions{}, nil
		}
		return *o, nil
	default:
		return PromptOptions{}, fmt.Errorf("oauth prompt: unsupported options type %T", v)
	}
}
