package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/teemow/drivelog/internal/credential"
	"github.com/teemow/drivelog/internal/logging"
)

// SessionParam is the query parameter and cookie name carrying the session id.
const SessionParam = "gsessionid"

// Auth events reported to the EventRecorder.
const (
	EventSessionBound = "session_bound"
	EventTokenCleared = "token_cleared"
)

// CredentialStore is the part of credential.Manager the Authenticator needs.
type CredentialStore interface {
	Snapshot() credential.Credential
	BindSession(ctx context.Context, sessionID string) error
	ClearAuthToken(ctx context.Context) (string, error)
}

// TokenInvalidator tells the token provider a token is no longer valid so it
// is not handed out again.
type TokenInvalidator interface {
	InvalidateToken(ctx context.Context, token string) error
}

// EventRecorder receives auth state changes for metrics.
type EventRecorder interface {
	RecordAuthEvent(ctx context.Context, event string)
}

// Decision is the outcome of OnResponse.
type Decision struct {
	// Retry means the original request should be resent; it will now carry
	// the bound session id.
	Retry bool
	// Reauthenticate means the token was rejected and cleared.
	Reauthenticate bool
}

// Authenticator attaches credentials to requests and applies the 302/401
// transitions to the credential store.
type Authenticator struct {
	store       CredentialStore
	scheme      Scheme
	invalidator TokenInvalidator
	recorder    EventRecorder
	logger      *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithScheme selects the Authorization header scheme.
func WithScheme(s Scheme) Option {
	return func(a *Authenticator) { a.scheme = s }
}

// WithInvalidator sets the hook called with a token rejected by a 401.
func WithInvalidator(inv TokenInvalidator) Option {
	return func(a *Authenticator) { a.invalidator = inv }
}

// WithEventRecorder reports auth events.
func WithEventRecorder(r EventRecorder) Option {
	return func(a *Authenticator) { a.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// NewAuthenticator creates an Authenticator over store.
func NewAuthenticator(store CredentialStore, opts ...Option) *Authenticator {
	a := &Authenticator{
		store:  store,
		scheme: SchemeBearer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Prepare sets the Authorization header from the stored token and adds the
// bound session id, if any, to the URL. It only mutates req.
func (a *Authenticator) Prepare(req *http.Request) error {
	return prepare(req, a.store.Snapshot(), a.scheme)
}

func prepare(req *http.Request, cred credential.Credential, scheme Scheme) error {
	if !cred.HasToken() {
		return ErrMissingToken
	}
	req.Header.Set("Authorization", scheme.Encode(cred.AuthToken))

	if cred.HasSession() {
		q := req.URL.Query()
		q.Set(SessionParam, cred.SessionID)
		req.URL.RawQuery = q.Encode()
	}
	return nil
}

// OnResponse inspects resp and applies the matching credential transition.
// A 302 without a session id and every other status leave state untouched.
func (a *Authenticator) OnResponse(ctx context.Context, resp *http.Response) (Decision, error) {
	switch resp.StatusCode {
	case http.StatusFound:
		id := SessionIDFromResponse(resp)
		if id == "" {
			a.logger.Debug("Redirect without session id, passing through")
			return Decision{}, nil
		}
		if err := a.store.BindSession(ctx, id); err != nil {
			return Decision{}, fmt.Errorf("bind session: %w", err)
		}
		a.record(ctx, EventSessionBound)
		a.logger.Debug("Session bound", logging.Operation("session.bind"))
		return Decision{Retry: true}, nil

	case http.StatusUnauthorized:
		old, err := a.store.ClearAuthToken(ctx)
		if err != nil {
			return Decision{}, fmt.Errorf("clear auth token: %w", err)
		}
		if old != "" && a.invalidator != nil {
			if err := a.invalidator.InvalidateToken(ctx, old); err != nil {
				a.logger.Warn("Failed to invalidate rejected token", logging.Err(err))
			}
		}
		a.record(ctx, EventTokenCleared)
		a.logger.Info("Auth token rejected, cleared", "token", logging.SanitizeToken(old))
		return Decision{Reauthenticate: true}, nil
	}
	return Decision{}, nil
}

func (a *Authenticator) record(ctx context.Context, event string) {
	if a.recorder != nil {
		a.recorder.RecordAuthEvent(ctx, event)
	}
}

// SessionIDFromResponse extracts the session id from a redirect: the
// gsessionid query parameter of Location, falling back to a gsessionid
// cookie. It returns "" when neither carries one.
func SessionIDFromResponse(resp *http.Response) string {
	if loc := resp.Header.Get("Location"); loc != "" {
		if u, err := url.Parse(loc); err == nil {
			if id := u.Query().Get(SessionParam); id != "" {
				return id
			}
		}
	}
	for _, c := range resp.Cookies() {
		if c.Name == SessionParam && c.Value != "" {
			return c.Value
		}
	}
	return ""
}
