package policy

import (
	"errors"
	"strings"
)

type ValidationKind string

const (
	MissingField ValidationKind = "missing_field"
	NonNumeric   ValidationKind = "non_numeric"
	OutOfRange   ValidationKind = "out_of_range"
	BadTimestamp ValidationKind = "bad_timestamp"
	Suspicious   ValidationKind = "suspicious"
)

// ValidationError rejects a reading or request before any state changes.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func newValidationError(kind ValidationKind, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Message: msg}
}

// NewValidationError is used by callers outside the policy package that
// validate their own inputs (query parameters, payload fields).
func NewValidationError(kind ValidationKind, msg string) *ValidationError {
	return newValidationError(kind, msg)
}

// AsValidationError unwraps err to a *ValidationError, if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ConfigurationError reports an invalid threshold configuration.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid threshold configuration: " + strings.Join(e.Problems, "; ")
}
