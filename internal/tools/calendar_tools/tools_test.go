package calendar_tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/drivelog/internal/account"
	"github.com/teemow/drivelog/internal/calendar"
	"github.com/teemow/drivelog/internal/credential"
	"github.com/teemow/drivelog/internal/server"
	"github.com/teemow/drivelog/internal/tracker"
)

type fakeTracker struct {
	result    tracker.Result
	err       error
	calendars []calendar.CalendarInfo
	drives    []tracker.Drive
	accounts  []string
}

func (f *fakeTracker) Track(_ context.Context, d tracker.Drive) (tracker.Result, error) {
	f.drives = append(f.drives, d)
	return f.result, f.err
}

func (f *fakeTracker) Calendars(_ context.Context, acct string) ([]calendar.CalendarInfo, error) {
	f.accounts = append(f.accounts, acct)
	return f.calendars, f.err
}

func (f *fakeTracker) CalendarTitle() string { return calendar.DrivingCalendarTitle }

type noCredentials struct{}

func (noCredentials) Snapshot() credential.Credential { return credential.Credential{} }
func (noCredentials) SetAccount(context.Context, string) error { return nil }

func (noCredentials) SetAuthToken(context.Context, string) error { return nil }

func newContext(t *testing.T, tr *fakeTracker) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), tr, noCredentials{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func request(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	tc, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return tc.Text
}

func TestRegisterCalendarTools(t *testing.T) {
	s := mcpserver.NewMCPServer("drivelog-test", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterCalendarTools(s, newContext(t, &fakeTracker{})))

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), ToolListCalendars)
	assert.Contains(t, string(raw), ToolTrackDrive)
	assert.Contains(t, string(raw), ToolTrackDrives)
}

func TestHandleListCalendars(t *testing.T) {
	tr := &fakeTracker{calendars: []calendar.CalendarInfo{
		{ID: "primary", Summary: "me@example.com", Primary: true, AccessRole: "owner"},
		{ID: "drv", Summary: "Driving", TimeZone: "Europe/Berlin"},
	}}
	sc := newContext(t, tr)

	result, err := handleListCalendars(context.Background(), request(map[string]interface{}{"account": "me@example.com"}), sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	out := text(t, result)
	assert.Contains(t, out, "Found 2 calendar(s)")
	assert.Contains(t, out, "[PRIMARY]")
	assert.Contains(t, out, "[DRIVES]")
	assert.NotContains(t, out, "No calendar titled")
	assert.Equal(t, []string{"me@example.com"}, tr.accounts)
}

func TestHandleListCalendars_NoDrivingCalendar(t *testing.T) {
	sc := newContext(t, &fakeTracker{calendars: []calendar.CalendarInfo{{ID: "a", Summary: "Work"}}})

	result, err := handleListCalendars(context.Background(), request(nil), sc)
	require.NoError(t, err)
	assert.Contains(t, text(t, result), `No calendar titled "Driving"`)
}

func TestHandleListCalendars_InteractionUnavailable(t *testing.T) {
	err := &account.AuthenticationError{Op: "token", Err: account.ErrInteractionUnavailable}
	sc := newContext(t, &fakeTracker{err: err})

	result, herr := handleListCalendars(context.Background(), request(nil), sc)
	require.NoError(t, herr)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "account_auth_url")
}

func TestHandleTrackDrive(t *testing.T) {
	valid := map[string]interface{}{"km": 12.5, "latitude": 52.52, "longitude": 13.405}

	tests := []struct {
		name      string
		args      map[string]interface{}
		result    tracker.Result
		err       error
		wantError bool
		wantText  string
	}{
		{
			name: "created",
			args: valid,
			result: tracker.Result{
				Outcome:  tracker.OutcomeCreated,
				Calendar: calendar.CalendarInfo{Summary: "Driving"},
				Title:    "12.5 km, Alexanderplatz, Berlin",
				Event:    &calendar.EventSummary{HTMLLink: "https://calendar.example.com/e1"},
			},
			wantText: "12.5 km, Alexanderplatz, Berlin",
		},
		{name: "not found", args: valid, result: tracker.Result{Outcome: tracker.OutcomeNotFound}, wantError: true, wantText: `No calendar titled "Driving"`},
		{name: "no address", args: valid, result: tracker.Result{Outcome: tracker.OutcomeNoAddress}, wantError: true, wantText: "No address"},
		{name: "cancelled", args: valid, result: tracker.Result{Outcome: tracker.OutcomeCancelled}, wantError: true, wantText: "cancelled"},
		{
			name:      "transport failure",
			args:      valid,
			err:       &tracker.TransportError{Op: "insert_event", Err: errors.New("503")},
			wantError: true,
			wantText:  "try again later",
		},
		{name: "missing km", args: map[string]interface{}{"latitude": 1.0, "longitude": 2.0}, wantError: true, wantText: "km is required"},
		{name: "bad date", args: map[string]interface{}{"km": 1.0, "latitude": 1.0, "longitude": 2.0, "date": "yesterday"}, wantError: true, wantText: "YYYY-MM-DD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newContext(t, &fakeTracker{result: tt.result, err: tt.err})

			result, err := handleTrackDrive(context.Background(), request(tt.args), sc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantError, result.IsError)
			assert.Contains(t, text(t, result), tt.wantText)
		})
	}
}

func TestDriveFromArgs(t *testing.T) {
	drive, err := driveFromArgs(map[string]interface{}{
		"account":   "me@example.com",
		"km":        30.0,
		"latitude":  48.1,
		"longitude": 11.6,
		"date":      "2024-05-01",
	})
	require.NoError(t, err)

	assert.Equal(t, "me@example.com", drive.Account)
	assert.Equal(t, 30.0, drive.Kilometers)
	assert.Equal(t, 48.1, drive.Latitude)
	assert.Equal(t, 11.6, drive.Longitude)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local), drive.Date)

	drive, err = driveFromArgs(map[string]interface{}{"km": 1.0, "latitude": 0.0, "longitude": 0.0})
	require.NoError(t, err)
	assert.True(t, drive.Date.IsZero(), "date defaults to today inside the tracker")
	assert.Empty(t, drive.Account)
}
