package tokens

// RedactedToken wraps a token string so that formatting or marshalling it
// prints "[REDACTED]" instead of the secret.
//
//	token := tokens.NewRedactedToken("secret-token-value")
//	fmt.Println(token)           // [REDACTED]
//	actualValue := token.Value() // secret-token-value
type RedactedToken struct {
	value string
}

// NewRedactedToken wraps value.
func NewRedactedToken(value string) RedactedToken {
	return RedactedToken{value: value}
}

// Value returns the secret. Never log the result.
func (t RedactedToken) Value() string {
	return t.value
}

func (t RedactedToken) String() string {
	return "[REDACTED]"
}

func (t RedactedToken) GoString() string {
	return "tokens.RedactedToken{[REDACTED]}"
}

// IsEmpty reports whether the wrapped value is empty.
func (t RedactedToken) IsEmpty() bool {
	return t.value == ""
}

func (t RedactedToken) MarshalText() ([]byte, error) {
	return []byte("[REDACTED]"), nil
}

func (t RedactedToken) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}
