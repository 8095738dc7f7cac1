package intent

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a generation failure.
type ErrorKind string

const (
	// ErrorConfiguration means credentials or endpoints are missing or
	// invalid; the user must fix settings.
	ErrorConfiguration ErrorKind = "configuration"
	// ErrorConnectivity means the provider was unreachable, timed out or
	// answered with a non-2xx status. Retrying the action may succeed.
	ErrorConnectivity ErrorKind = "connectivity"
	// ErrorValidation means the provider answered but the payload did not
	// match the required structure.
	ErrorValidation ErrorKind = "validation"
)

// ErrCancelled is returned when the caller aborted the request. It is an
// outcome, not a failure: nothing was written.
var ErrCancelled = errors.New("generation cancelled")

// GenerationError is a typed failure with a human-readable message.
type GenerationError struct {
	Kind    ErrorKind
	Intent  Kind
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	prefix := string(e.Kind)
	if e.Intent != "" {
		prefix = fmt.Sprintf("%s %s", e.Intent, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ConfigError builds a configuration failure.
func ConfigError(msg string) *GenerationError {
	return &GenerationError{Kind: ErrorConfiguration, Message: msg}
}

// ConnectivityError builds a connectivity failure wrapping err.
func ConnectivityError(msg string, err error) *GenerationError {
	return &GenerationError{Kind: ErrorConnectivity, Message: msg, Err: err}
}

// ValidationError builds a schema conformance failure wrapping err.
func ValidationError(msg string, err error) *GenerationError {
	return &GenerationError{Kind: ErrorValidation, Message: msg, Err: err}
}

// KindOf returns the failure kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return "", false
}

// IsConfiguration reports whether err is a configuration failure.
func IsConfiguration(err error) bool {
	k, ok := KindOf(err)
	return ok && k == ErrorConfiguration
}

// IsConnectivity reports whether err is a connectivity failure.
func IsConnectivity(err error) bool {
	k, ok := KindOf(err)
	return ok && k == ErrorConnectivity
}

// IsValidation reports whether err is a schema conformance failure.
func IsValidation(err error) bool {
	k, ok := KindOf(err)
	return ok && k == ErrorValidation
}
