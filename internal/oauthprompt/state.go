package oauthprompt

import "time"

// Phase is the persisted phase of a prompt.
type Phase string

const (
	PhaseWaitingForInput Phase = "waitingForInput"
	PhaseCompleted       Phase = "completed"
)

// PromptState is stored on the prompt's dialog instance while it waits.
type PromptState struct {
	State          Phase     `json:"state"`
	ConnectionName string    `json:"connectionName"`
	ExpiresAt      time.Time `json:"expiresAt"`

	// AttemptCount counts rejected inputs. It does not limit retries.
	AttemptCount int `json:"attemptCount"`

	EndOnInvalidMessage bool `json:"endOnInvalidMessage,omitempty"`
}

// expired reports whether now is past the deadline.
func (s *PromptState) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
