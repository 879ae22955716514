package source

import (
	"errors"
	"fmt"
)

// StatusError is returned when the source answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status code %d", e.StatusCode)
}

// TransportError wraps a network, timeout or decode failure talking to the source.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NormalizationError reports why a single raw record was dropped.
type NormalizationError struct {
	Field string
	Err   error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// ErrMissingField is wrapped by NormalizationError for absent required fields.
var ErrMissingField = errors.New("missing required field")

// IsUpstreamFailure reports whether err came from talking to the source,
// as opposed to a caller or programming error.
func IsUpstreamFailure(err error) bool {
	var statusErr *StatusError
	var transportErr *TransportError
	return errors.As(err, &statusErr) || errors.As(err, &transportErr)
}
