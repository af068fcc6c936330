package account

import (
	"errors"
	"fmt"

	"github.com/teemow/drivelog/internal/logging"
)

var (
	// ErrCancelled reports that the user declined an interactive step.
	// The operation aborts quietly and credential state is unchanged.
	ErrCancelled = errors.New("account: cancelled by user")

	// ErrInteractionUnavailable is returned by collaborators that cannot
	// prompt the user, e.g. in server mode.
	ErrInteractionUnavailable = errors.New("account: interactive authentication unavailable")

	// ErrTooManyRounds is wrapped in an AuthenticationError when the token
	// provider keeps asking for interaction.
	ErrTooManyRounds = errors.New("account: too many interactive rounds")
)

// AuthenticationError reports that resolving an account or token failed for a
// reason other than user cancellation.
type AuthenticationError struct {
	Account string
	Op      string
	Err     error
}

func (e *AuthenticationError) Error() string {
	who := "account"
	if e.Account != "" {
		who = logging.AnonymizeEmail(e.Account)
	}
	return fmt.Sprintf("authentication failed for %s during %s: %v", who, e.Op, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err is a user cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsAuthenticationError reports whether err is or wraps an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
