package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/drivelog/internal/calendar"
	"github.com/teemow/drivelog/internal/credential"
	"github.com/teemow/drivelog/internal/server"
	"github.com/teemow/drivelog/internal/tracker"
	"github.com/teemow/drivelog/internal/ui"
)

func TestTrackOptions_Drive(t *testing.T) {
	opts := trackOptions{km: 12.5, lat: 52.52, lon: 13.405, date: "2026-03-01"}
	d, err := opts.drive("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", d.Account)
	assert.Equal(t, 12.5, d.Kilometers)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local), d.Date)

	d, err = trackOptions{km: 1}.drive("")
	require.NoError(t, err)
	assert.True(t, d.Date.IsZero(), "an empty date leaves the default to the tracker")

	_, err = trackOptions{km: 1, date: "01.03.2026"}.drive("")
	assert.Error(t, err)
}

func TestDescribeTrack(t *testing.T) {
	tests := []struct {
		name      string
		result    tracker.Result
		wantLevel ui.Level
		want      string
	}{
		{
			name: "created",
			result: tracker.Result{
				Outcome:  tracker.OutcomeCreated,
				Calendar: calendar.CalendarInfo{Summary: "Driving"},
				Title:    "42 km, Main St 1",
			},
			wantLevel: ui.LevelSuccess,
			want:      `Logged "42 km, Main St 1" to Driving`,
		},
		{name: "not found", result: tracker.Result{Outcome: tracker.OutcomeNotFound}, wantLevel: ui.LevelWarning, want: `No calendar titled "Driving"`},
		{name: "no address", result: tracker.Result{Outcome: tracker.OutcomeNoAddress}, wantLevel: ui.LevelWarning, want: "No address found"},
		{name: "cancelled", result: tracker.Result{Outcome: tracker.OutcomeCancelled}, wantLevel: ui.LevelInfo, want: "Cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, msg := describeTrack(tt.result, "Driving")
			assert.Equal(t, tt.wantLevel, level)
			assert.Contains(t, msg, tt.want)
		})
	}
}

func TestPrintCalendars(t *testing.T) {
	var buf bytes.Buffer
	printCalendars(&buf, []calendar.CalendarInfo{
		{ID: "p", Summary: "user@example.com", Primary: true},
		{ID: "d1", Summary: "Driving"},
		{ID: "d2", Summary: "Driving"},
	}, "Driving")

	out := buf.String()
	assert.Contains(t, out, "3 calendars")
	assert.Equal(t, 1, strings.Count(out, "<- drives"), "only the first match is used")
	assert.NotContains(t, out, "No calendar titled")

	buf.Reset()
	printCalendars(&buf, []calendar.CalendarInfo{{ID: "p", Summary: "Work"}}, "Driving")
	assert.Contains(t, buf.String(), `No calendar titled "Driving"`)

	buf.Reset()
	printCalendars(&buf, nil, "Driving")
	assert.Contains(t, buf.String(), "No calendars found.")
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, credential.Credential{AccountName: "user@example.com", AuthToken: "tok"}, "Driving")

	out := buf.String()
	assert.Contains(t, out, "user@example.com")
	assert.Contains(t, out, "authenticated")
	assert.Contains(t, out, "Auth token:       yes")
	assert.Contains(t, out, "Session bound:    no")
	assert.NotContains(t, out, "tok\n", "tokens are never printed")
}

func TestRegisterAllTools_GeneratesDocs(t *testing.T) {
	creds, err := credential.NewManager(context.Background(), credential.NewMemoryStore(nil), nil)
	require.NoError(t, err)

	sc, err := newDocsServerContext(creds)
	require.NoError(t, err)
	defer sc.Shutdown()

	md := generateToolsMarkdown(listTools(t, sc))
	for _, want := range []string{
		"## Calendar Tools",
		"## Account Tools",
		"### calendar_track_drive",
		"### calendar_list_calendars",
		"### account_status",
		"### account_auth_url",
		"- `km` (required)",
	} {
		assert.Contains(t, md, want)
	}
}

func listTools(t *testing.T, sc *server.ServerContext) []mcp.Tool {
	t.Helper()
	tools, err := registeredTools(sc)
	require.NoError(t, err)
	return tools
}

func TestGetCategoryFromToolName(t *testing.T) {
	assert.Equal(t, "Calendar Tools", getCategoryFromToolName("calendar_track_drive"))
	assert.Equal(t, "Account Tools", getCategoryFromToolName("account_status"))
	assert.Equal(t, "Other", getCategoryFromToolName("gmail_list"))
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("calendar_example",
		mcp.WithDescription("Example tool"),
		mcp.WithString("b", mcp.Description("second")),
		mcp.WithNumber("a", mcp.Required(), mcp.Description("first")),
	)

	md := generateToolMarkdown(tool)
	assert.Contains(t, md, "### calendar_example")
	assert.Contains(t, md, "Example tool")
	assert.Less(t, strings.Index(md, "`a` (required): first"), strings.Index(md, "`b` (optional): second"))
}
