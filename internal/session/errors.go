package session

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrMissingToken is returned by Prepare when no auth token is stored. The
// caller must resolve an account before issuing protected requests.
var ErrMissingToken = errors.New("session: no auth token; resolve an account first")

// ErrUnauthorized reports that the provider rejected the auth token.
var ErrUnauthorized = errors.New("session: auth token rejected (401)")

// IsUnauthorized reports whether err signals a rejected token, either as
// ErrUnauthorized or as a 401 from a Google API client.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized
	}
	return false
}
