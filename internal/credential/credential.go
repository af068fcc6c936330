package credential

// Keys under which credential fields are persisted.
const (
	KeyAccountName  = "accountName"
	KeyAuthToken    = "authToken"
	KeySessionID    = "gsessionid"
	KeyRefreshToken = "refreshToken"
)

// DefaultNamespace is the namespace credential keys live under.
const DefaultNamespace = "CalendarSample"

// Credential is the account identifier plus the auth token and session id
// needed to authorize requests. Empty strings mean "absent"; the token and
// the session id are independent of each other.
type Credential struct {
	AccountName string
	AuthToken   string
	SessionID   string
}

// HasAccount reports whether an account has been resolved.
func (c Credential) HasAccount() bool {
	return c.AccountName != ""
}

// HasToken reports whether an auth token is available.
func (c Credential) HasToken() bool {
	return c.AuthToken != ""
}

// HasSession reports whether a session id is bound.
func (c Credential) HasSession() bool {
	return c.SessionID != ""
}

func fromValues(values map[string]string) (Credential, string) {
	return Credential{
		AccountName: values[KeyAccountName],
		AuthToken:   values[KeyAuthToken],
		SessionID:   values[KeySessionID],
	}, values[KeyRefreshToken]
}
