package tracker

import (
	"errors"
	"fmt"
)

// ErrInvalidDrive is returned before any network call when a Drive cannot
// be logged.
var ErrInvalidDrive = errors.New("tracker: invalid drive")

// TransportError wraps a failure talking to the calendar or geocoding
// service that is not an authentication failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
