package service

import (
	"errors"
	"fmt"
)

// ValidationError reports rejected user input. The operation aborted
// before any side effect; Message is safe to show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a user-input rejection.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PathTraversalError reports a relative image path escaping its
// article folder. Parsing of that article stops hard; the batch fetch
// isolates the failure.
type PathTraversalError struct {
	Path string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("image path %q escapes the article folder", e.Path)
}
