package google

import (
	"strings"

	"google.golang.org/api/calendar/v3"
)

// LegacyCalendarScope is the short service name the ClientLogin-era token
// provider used for calendar access.
const LegacyCalendarScope = "cl"

// DefaultOAuthScopes are requested when no explicit scope is configured.
var DefaultOAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	calendar.CalendarScope,
}

// ScopesFor maps a token scope setting to OAuth scopes. The legacy "cl"
// service name and an empty value map to DefaultOAuthScopes; anything else is
// a space separated list of scope URLs.
func ScopesFor(scope string) []string {
	scope = strings.TrimSpace(scope)
	if scope == "" || scope == LegacyCalendarScope {
		return append([]string(nil), DefaultOAuthScopes...)
	}
	return strings.Fields(scope)
}
