package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/teemow/drivelog/internal/credential"
)

func newManager(t *testing.T, values map[string]string) (*credential.Manager, *credential.MemoryStore) {
	t.Helper()
	store := credential.NewMemoryStore(values)
	m, err := credential.NewManager(context.Background(), store, nil)
	require.NoError(t, err)
	return m, store
}

type recordingInvalidator struct {
	tokens []string
	err    error
}

func (r *recordingInvalidator) InvalidateToken(_ context.Context, token string) error {
	r.tokens = append(r.tokens, token)
	return r.err
}

type recordingEvents struct {
	events []string
}

func (r *recordingEvents) RecordAuthEvent(_ context.Context, event string) {
	r.events = append(r.events, event)
}

func TestParseScheme(t *testing.T) {
	tests := []struct {
		in      string
		want    Scheme
		wantErr bool
	}{
		{"", SchemeBearer, false},
		{"bearer", SchemeBearer, false},
		{"Bearer", SchemeBearer, false},
		{" googlelogin ", SchemeGoogleLogin, false},
		{"basic", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScheme(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScheme_Encode(t *testing.T) {
	assert.Equal(t, "Bearer tok", SchemeBearer.Encode("tok"))
	assert.Equal(t, "GoogleLogin auth=tok", SchemeGoogleLogin.Encode("tok"))
}

func TestPrepare_MissingToken(t *testing.T) {
	m, _ := newManager(t, map[string]string{credential.KeyAccountName: "a@example.com"})
	auth := NewAuthenticator(m)

	req := httptest.NewRequest(http.MethodGet, "https://example.com/calendars", nil)
	err := auth.Prepare(req)
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestPrepare_Idempotent(t *testing.T) {
	m, _ := newManager(t, map[string]string{
		credential.KeyAuthToken: "tok",
		credential.KeySessionID: "sess",
	})
	auth := NewAuthenticator(m, WithScheme(SchemeGoogleLogin))

	req := httptest.NewRequest(http.MethodGet, "https://example.com/calendars?alt=json", nil)
	require.NoError(t, auth.Prepare(req))
	first := req.Header.Get("Authorization")
	firstURL := req.URL.String()

	require.NoError(t, auth.Prepare(req))
	assert.Equal(t, first, req.Header.Get("Authorization"))
	assert.Equal(t, firstURL, req.URL.String())
	assert.Equal(t, "GoogleLogin auth=tok", first)
	assert.Equal(t, "sess", req.URL.Query().Get(SessionParam))
	assert.Equal(t, "json", req.URL.Query().Get("alt"))
}

func TestOnResponse_Redirect(t *testing.T) {
	tests := []struct {
		name      string
		resp      *http.Response
		wantID    string
		wantRetry bool
	}{
		{
			name:      "session id in location",
			resp:      redirect("https://example.com/feeds?gsessionid=abc", nil),
			wantID:    "abc",
			wantRetry: true,
		},
		{
			name:      "session id in cookie",
			resp:      redirect("https://example.com/feeds", &http.Cookie{Name: SessionParam, Value: "cookie-id"}),
			wantID:    "cookie-id",
			wantRetry: true,
		},
		{
			name:      "location wins over cookie",
			resp:      redirect("https://example.com/feeds?gsessionid=loc", &http.Cookie{Name: SessionParam, Value: "cookie-id"}),
			wantID:    "loc",
			wantRetry: true,
		},
		{
			name:      "no session id passes through",
			resp:      redirect("https://example.com/elsewhere", nil),
			wantID:    "",
			wantRetry: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store := newManager(t, map[string]string{credential.KeyAuthToken: "tok"})
			events := &recordingEvents{}
			auth := NewAuthenticator(m, WithEventRecorder(events))

			d, err := auth.OnResponse(context.Background(), tt.resp)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRetry, d.Retry)
			assert.False(t, d.Reauthenticate)
			assert.Equal(t, tt.wantID, m.Snapshot().SessionID)

			persisted, _ := store.Load(context.Background())
			assert.Equal(t, tt.wantID, persisted[credential.KeySessionID])

			if tt.wantRetry {
				assert.Equal(t, []string{EventSessionBound}, events.events)

				// The next request carries the new session id.
				req := httptest.NewRequest(http.MethodGet, "https://example.com/feeds", nil)
				require.NoError(t, auth.Prepare(req))
				assert.Equal(t, tt.wantID, req.URL.Query().Get(SessionParam))
			} else {
				assert.Empty(t, events.events)
			}
		})
	}
}

func TestOnResponse_Unauthorized(t *testing.T) {
	m, store := newManager(t, map[string]string{
		credential.KeyAccountName: "a@example.com",
		credential.KeyAuthToken:   "tok",
		credential.KeySessionID:   "sess",
	})
	inv := &recordingInvalidator{err: errors.New("provider down")}
	events := &recordingEvents{}
	auth := NewAuthenticator(m, WithInvalidator(inv), WithEventRecorder(events))

	d, err := auth.OnResponse(context.Background(), &http.Response{StatusCode: http.StatusUnauthorized, Header: http.Header{}})
	require.NoError(t, err, "invalidator failures are not fatal")
	assert.False(t, d.Retry)
	assert.True(t, d.Reauthenticate)

	assert.Empty(t, m.Snapshot().AuthToken)
	assert.Equal(t, "sess", m.Snapshot().SessionID)
	persisted, _ := store.Load(context.Background())
	assert.NotContains(t, persisted, credential.KeyAuthToken)

	assert.Equal(t, []string{"tok"}, inv.tokens)
	assert.Equal(t, []string{EventTokenCleared}, events.events)
}

func TestOnResponse_OtherStatusesPassThrough(t *testing.T) {
	for _, code := range []int{200, 201, 301, 303, 400, 403, 404, 500} {
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			values := map[string]string{credential.KeyAuthToken: "tok", credential.KeySessionID: "s"}
			m, _ := newManager(t, values)
			auth := NewAuthenticator(m)

			resp := &http.Response{StatusCode: code, Header: http.Header{"Location": {"https://x/?gsessionid=new"}}}
			d, err := auth.OnResponse(context.Background(), resp)
			require.NoError(t, err)
			assert.Equal(t, Decision{}, d)
			assert.Equal(t, credential.Credential{AuthToken: "tok", SessionID: "s"}, m.Snapshot())
		})
	}
}

func TestIsUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrUnauthorized, true},
		{"wrapped sentinel", fmt.Errorf("list: %w", ErrUnauthorized), true},
		{"googleapi 401", &googleapi.Error{Code: 401}, true},
		{"wrapped googleapi 401", fmt.Errorf("insert: %w", &googleapi.Error{Code: 401}), true},
		{"googleapi 403", &googleapi.Error{Code: 403}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnauthorized(tt.err))
		})
	}
}

func redirect(location string, cookie *http.Cookie) *http.Response {
	h := http.Header{}
	h.Set("Location", location)
	if cookie != nil {
		h.Add("Set-Cookie", cookie.String())
	}
	return &http.Response{StatusCode: http.StatusFound, Header: h}
}
