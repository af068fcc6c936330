package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/drivelog/internal/account"
	"github.com/teemow/drivelog/internal/config"
	"github.com/teemow/drivelog/internal/geocode"
	"github.com/teemow/drivelog/internal/session"
	"github.com/teemow/drivelog/internal/tracker"
	"github.com/teemow/drivelog/internal/ui"
)

func testConfig(t *testing.T, storageType string) config.Config {
	t.Helper()
	return config.Config{
		Auth:     config.AuthConfig{Scheme: "bearer", TokenScope: "cl"},
		Google:   config.GoogleConfig{ClientID: "client-id", ClientSecret: "secret"},
		Storage:  config.StorageConfig{Type: storageType, Path: t.TempDir(), Namespace: "test"},
		Geocode:  config.GeocodeConfig{Language: "en"},
		Calendar: config.CalendarConfig{Title: "Driving"},
	}
}

func TestOpenCredentials_Backends(t *testing.T) {
	for _, typ := range []string{config.StorageFile, config.StorageSQLite} {
		t.Run(typ, func(t *testing.T) {
			ctx := context.Background()
			c := testConfig(t, typ)

			creds, closeStore, err := openCredentials(ctx, c, nil)
			require.NoError(t, err)
			require.NoError(t, creds.SetAccount(ctx, "user@example.com"))
			require.NoError(t, creds.SetAuthToken(ctx, "tok"))
			require.NoError(t, closeStore())

			// A second open sees the persisted credential.
			creds, closeStore, err = openCredentials(ctx, c, nil)
			require.NoError(t, err)
			defer closeStore()
			assert.Equal(t, "user@example.com", creds.Snapshot().AccountName)
			assert.Equal(t, "tok", creds.Snapshot().AuthToken)
		})
	}
}

func TestOpenCredentials_Memory(t *testing.T) {
	creds, closeStore, err := openCredentials(context.Background(), testConfig(t, config.StorageMemory), nil)
	require.NoError(t, err)
	defer closeStore()
	assert.False(t, creds.Snapshot().HasAccount())
}

func TestOpenCredentials_Encrypted(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t, config.StorageFile)
	c.Storage.EncryptionKey = base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	creds, closeStore, err := openCredentials(ctx, c, nil)
	require.NoError(t, err)
	require.NoError(t, creds.SetAccount(ctx, "user@example.com"))
	require.NoError(t, creds.SetAuthToken(ctx, "secret-token"))
	require.NoError(t, closeStore())

	// Without the key the token is unreadable ciphertext.
	plain := c
	plain.Storage.EncryptionKey = ""
	creds, closeStore, err = openCredentials(ctx, plain, nil)
	require.NoError(t, err)
	assert.NotEqual(t, "secret-token", creds.Snapshot().AuthToken)
	require.NoError(t, closeStore())

	creds, closeStore, err = openCredentials(ctx, c, nil)
	require.NoError(t, err)
	defer closeStore()
	assert.Equal(t, "secret-token", creds.Snapshot().AuthToken)
}

func TestOpenStore_UnknownType(t *testing.T) {
	_, _, err := openStore(config.StorageConfig{Type: "etcd"})
	assert.Error(t, err)
}

func TestNewGeocoder(t *testing.T) {
	g, err := newGeocoder(config.GeocodeConfig{}, "Main St 1, Springfield", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, geocode.NewFixed("Main St 1, Springfield"), g)

	_, err = newGeocoder(config.GeocodeConfig{}, "", nil, nil)
	assert.Error(t, err)

	g, err = newGeocoder(config.GeocodeConfig{APIKey: "key", Language: "en"}, "", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &geocode.GoogleGeocoder{}, g)
}

func TestChooserFor(t *testing.T) {
	creds, closeStore, err := openCredentials(context.Background(), testConfig(t, config.StorageMemory), nil)
	require.NoError(t, err)
	defer closeStore()

	c := testConfig(t, config.StorageMemory)
	assert.IsType(t, account.UnavailableChooser{}, chooserFor(c, creds, nil))
	assert.IsType(t, &ui.ListChooser{}, chooserFor(c, creds, ui.NewPlainTerminal(strings.NewReader(""), &strings.Builder{})))

	c.Account = "user@example.com"
	assert.Equal(t, account.StaticChooser{Account: "user@example.com"}, chooserFor(c, creds, nil))
}

func TestNewApp_RequiresClientID(t *testing.T) {
	c := testConfig(t, config.StorageMemory)
	c.Google.ClientID = ""
	_, err := newApp(context.Background(), c, nil, appOptions{})
	assert.Error(t, err)
}

func TestHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "headless", err: account.ErrInteractionUnavailable, want: "account login"},
		{name: "auth", err: &account.AuthenticationError{Account: "a", Op: "token", Err: assert.AnError}, want: "sign in again"},
		{name: "missing token", err: session.ErrMissingToken, want: "sign in again"},
		{name: "transport", err: &tracker.TransportError{Op: "insert_event", Err: assert.AnError}, want: "network"},
		{name: "other", err: assert.AnError, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hint(tt.err)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, tt.want)
		})
	}
}

// calendarAPI serves a calendar list and records inserted events.
type calendarAPI struct {
	mu       sync.Mutex
	auth     []string
	inserted []map[string]any
}

func (c *calendarAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = append(c.auth, r.Header.Get("Authorization"))

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/users/me/calendarList":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "primary@example.com", "summary": "user@example.com", "primary": true},
				{"id": "driving-id", "summary": "Driving"},
			},
		})
	case r.Method == http.MethodPost && r.URL.Path == "/calendars/driving-id/events":
		var ev map[string]any
		_ = json.NewDecoder(r.Body).Decode(&ev)
		c.inserted = append(c.inserted, ev)
		ev["id"] = "evt-1"
		_ = json.NewEncoder(w).Encode(ev)
	default:
		http.NotFound(w, r)
	}
}

func TestNewApp_TracksDriveWithStoredCredential(t *testing.T) {
	ctx := context.Background()
	api := &calendarAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	c := testConfig(t, config.StorageFile)
	c.Google.CalendarEndpoint = srv.URL + "/"

	creds, closeStore, err := openCredentials(ctx, c, nil)
	require.NoError(t, err)
	require.NoError(t, creds.SetAccount(ctx, "user@example.com"))
	require.NoError(t, creds.SetAuthToken(ctx, "tok"))
	require.NoError(t, closeStore())

	a, err := newApp(ctx, c, nil, appOptions{Geocoder: geocode.NewFixed("Main St 1, Springfield")})
	require.NoError(t, err)
	defer a.Close()

	res, err := a.tracker.Track(ctx, tracker.Drive{
		Kilometers: 42,
		Date:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local),
	})
	require.NoError(t, err)
	assert.Equal(t, tracker.OutcomeCreated, res.Outcome)
	assert.Equal(t, "42 km, Main St 1, Springfield", res.Title)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.inserted, 1)
	assert.Equal(t, "42 km, Main St 1, Springfield", api.inserted[0]["summary"])
	for _, h := range api.auth {
		assert.Equal(t, "Bearer tok", h)
	}
}

func TestNewApp_HeadlessWithoutAccount(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(&calendarAPI{})
	defer srv.Close()

	c := testConfig(t, config.StorageMemory)
	c.Google.CalendarEndpoint = srv.URL + "/"

	a, err := newApp(ctx, c, nil, appOptions{})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.tracker.Calendars(ctx, "")
	assert.ErrorIs(t, err, account.ErrInteractionUnavailable)
}
