package fetch

import (
	"errors"
	"fmt"
)

// ErrRetryAborted is returned when the context ends while waiting between attempts.
var ErrRetryAborted = errors.New("retry aborted")

// MaterializationError reports a request that cannot be turned into transport inputs.
// Retrying it would produce the same invalid request, so it is never retried.
type MaterializationError struct {
	Message string
	wrapped error
}

// NewMaterializationError creates a MaterializationError. wrapped may be nil.
func NewMaterializationError(message string, wrapped error) *MaterializationError {
	return &MaterializationError{Message: message, wrapped: wrapped}
}

func (e *MaterializationError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.wrapped)
	}
	return e.Message
}

func (e *MaterializationError) Unwrap() error {
	return e.wrapped
}
