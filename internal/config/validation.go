package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Value: value, Message: "is required"}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateHTTPURL checks that value is an absolute http or https URL.
func ValidateHTTPURL(field, value string) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{Field: field, Value: value, Message: "must be an absolute http(s) URL"}
	}
	return nil
}

// Validate checks cfg and returns a ConfigurationErrorCollection describing
// every problem, or nil. filePath is only used for reporting.
func (c Config) Validate(filePath string) error {
	v := validator{filePath: filePath}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		v.add("server", ValidationError{Field: "server.port", Value: c.Server.Port, Message: "must be between 1 and 65535"})
	}
	v.add("server", ValidateHTTPURL("server.publicUrl", c.Server.PublicURL))
	if !strings.HasPrefix(c.Server.CallbackPath, "/") {
		v.add("server", ValidationError{Field: "server.callbackPath", Value: c.Server.CallbackPath, Message: "must start with /"})
	}

	drivers := []string{StorageDriverMemory, StorageDriverFile, StorageDriverSQLite}
	if err := ValidateOneOf("storage.driver", c.Storage.Driver, drivers); err != nil {
		v.add("storage", err)
	} else if c.Storage.Driver != StorageDriverMemory {
		v.add("storage", ValidateRequired("storage.path", c.Storage.Path))
	}

	if c.Prompt.Timeout < 0 {
		v.add("prompt", ValidationError{Field: "prompt.timeout", Value: c.Prompt.Timeout, Message: "must not be negative"})
	}
	if c.Prompt.MagicCodeTTL <= 0 {
		v.add("prompt", ValidationError{Field: "prompt.magicCodeTTL", Value: c.Prompt.MagicCodeTTL, Message: "must be positive"})
	}
	if name := c.Prompt.ConnectionName; name != "" {
		if _, ok := c.Connection(name); !ok {
			v.add("prompt", ValidationError{Field: "prompt.connectionName", Value: name, Message: "does not match any configured connection"})
		}
	}

	if len(c.Connections) == 0 {
		v.addWithSuggestion("connections",
			ValidationError{Field: "connections", Message: "at least one connection is required"},
			"Add a connections entry with name, clientId, authUrl and tokenUrl")
	}
	seen := make(map[string]bool, len(c.Connections))
	for i, conn := range c.Connections {
		prefix := fmt.Sprintf("connections[%d]", i)
		if err := ValidateRequired(prefix+".name", conn.Name); err != nil {
			v.add("connections", err)
		} else if seen[conn.Name] {
			v.add("connections", ValidationError{Field: prefix + ".name", Value: conn.Name, Message: "is a duplicate"})
		}
		seen[conn.Name] = true

		if err := ValidateRequired(prefix+".clientId", conn.ClientID); err != nil {
			v.addWithSuggestion("connections", err,
				fmt.Sprintf("Set clientId or %sCONNECTION_%s_CLIENT_ID", EnvPrefix, envName(conn.Name)))
		}
		v.add("connections", ValidateHTTPURL(prefix+".authUrl", conn.AuthURL))
		v.add("connections", ValidateHTTPURL(prefix+".tokenUrl", conn.TokenURL))
	}

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

type validator struct {
	filePath string
	errors   ConfigurationErrorCollection
}

func (v *validator) add(category string, err error) {
	v.addWithSuggestion(category, err)
}

func (v *validator) addWithSuggestion(category string, err error, suggestions ...string) {
	if err == nil {
		return
	}
	ce := NewConfigurationError(v.filePath, "validation", category, err.Error())
	ce.Suggestions = suggestions
	v.errors.Add(ce)
}
