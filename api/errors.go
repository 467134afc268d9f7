package api

import (
	"errors"
	"fmt"
)

// ErrUnsupportedResponseType marks descriptors whose response type cannot be decoded.
var ErrUnsupportedResponseType = errors.New("unsupported response type")

// ConfigurationError reports a descriptor that can never be fetched.
// It is raised before any network activity and is never retried.
type ConfigurationError struct {
	Endpoint string
	Reason   string
	wrapped  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s encountered for %s", e.Reason, e.Endpoint)
}

func (e *ConfigurationError) Unwrap() error {
	return e.wrapped
}
