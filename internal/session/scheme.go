package session

import (
	"fmt"
	"strings"
)

// Scheme encodes an auth token into an Authorization header value.
type Scheme string

const (
	// SchemeBearer is the OAuth 2.0 bearer scheme.
	SchemeBearer Scheme = "bearer"
	// SchemeGoogleLogin is the legacy ClientLogin scheme used by the
	// Atom-feed calendar API.
	SchemeGoogleLogin Scheme = "googlelogin"
)

// ParseScheme maps a configuration value to a Scheme. Empty means bearer.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case "", SchemeBearer:
		return SchemeBearer, nil
	case SchemeGoogleLogin:
		return SchemeGoogleLogin, nil
	default:
		return "", fmt.Errorf("unknown auth scheme %q (want bearer or googlelogin)", s)
	}
}

// Encode returns the header value for token.
func (s Scheme) Encode(token string) string {
	if s == SchemeGoogleLogin {
		return "GoogleLogin auth=" + token
	}
	return "Bearer " + token
}
