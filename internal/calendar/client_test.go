package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/drivelog/internal/session"
)

type apiCall struct {
	service, operation, status string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []apiCall
}

func (r *fakeRecorder) RecordGoogleAPIOperation(_ context.Context, service, operation, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, apiCall{service, operation, status})
}

// fakeCalendarAPI serves calendar list pages keyed by page token and
// records inserted events.
type fakeCalendarAPI struct {
	mu       sync.Mutex
	pages    map[string]calendar.CalendarList
	inserted map[string][]calendar.Event
	status   int
}

func (f *fakeCalendarAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/users/me/calendarList":
		page, ok := f.pages[r.URL.Query().Get("pageToken")]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"no such page"}}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(page)

	case r.Method == http.MethodPost && len(r.URL.Path) > len("/calendars/"):
		var ev calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		calID := r.URL.Path[len("/calendars/") : len(r.URL.Path)-len("/events")]
		if f.inserted == nil {
			f.inserted = map[string][]calendar.Event{}
		}
		f.inserted[calID] = append(f.inserted[calID], ev)
		ev.Id = "evt-1"
		ev.Status = "confirmed"
		_ = json.NewEncoder(w).Encode(ev)

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, api http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithEndpoint(srv.URL + "/")}, opts...)
	c, err := NewClient(context.Background(), srv.Client(), opts...)
	require.NoError(t, err)
	return c
}

func entry(id, title string) *calendar.CalendarListEntry {
	return &calendar.CalendarListEntry{Id: id, Summary: title}
}

func TestNewClient_RequiresHTTPClient(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	assert.Error(t, err)
}

func TestClient_ListCalendarsFollowsPages(t *testing.T) {
	api := &fakeCalendarAPI{pages: map[string]calendar.CalendarList{
		"":   {Items: []*calendar.CalendarListEntry{entry("a", "Work")}, NextPageToken: "p2"},
		"p2": {Items: []*calendar.CalendarListEntry{entry("b", "Driving"), entry("c", "Home")}, NextPageToken: "p3"},
		"p3": {Items: []*calendar.CalendarListEntry{entry("d", "Holidays")}},
	}}
	rec := &fakeRecorder{}
	c := newTestClient(t, api, WithRecorder(rec))

	cals, err := c.ListCalendars(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(cals))
	for _, cal := range cals {
		ids = append(ids, cal.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Len(t, rec.calls, 3)
	assert.Equal(t, apiCall{ServiceName, "list_calendars", "success"}, rec.calls[0])
}

func TestClient_InsertEventAllDay(t *testing.T) {
	api := &fakeCalendarAPI{}
	c := newTestClient(t, api, WithUserAgent("drivelog-test"))

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	got, err := c.InsertEvent(context.Background(), "driving-id", EventInput{
		Summary: "42 km, Main St 1, Springfield",
		Start:   day,
		AllDay:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", got.ID)
	assert.True(t, got.AllDay)
	assert.Equal(t, day, got.Start)

	require.Len(t, api.inserted["driving-id"], 1)
	ev := api.inserted["driving-id"][0]
	assert.Equal(t, "42 km, Main St 1, Springfield", ev.Summary)
	assert.Equal(t, "2026-03-14", ev.Start.Date)
	assert.Equal(t, "2026-03-15", ev.End.Date)
	assert.Empty(t, ev.Start.DateTime)
}

func TestClient_UnauthorizedIsDetectable(t *testing.T) {
	rec := &fakeRecorder{}
	c := newTestClient(t, &fakeCalendarAPI{status: http.StatusUnauthorized}, WithRecorder(rec))

	_, err := c.ListCalendarsPage(context.Background(), "")
	require.Error(t, err)
	assert.True(t, session.IsUnauthorized(err))
	assert.Equal(t, "error", rec.calls[0].status)

	_, err = c.InsertEvent(context.Background(), "x", EventInput{Start: time.Now(), AllDay: true})
	assert.True(t, session.IsUnauthorized(err))
}

func TestToEvent_Timed(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ev := toEvent(EventInput{Summary: "s", Start: start, End: start.Add(time.Hour)})
	assert.Equal(t, "2026-03-14T09:00:00Z", ev.Start.DateTime)
	assert.Equal(t, "2026-03-14T10:00:00Z", ev.End.DateTime)
	assert.Equal(t, "UTC", ev.Start.TimeZone)
}

func TestToEventSummary(t *testing.T) {
	assert.Equal(t, EventSummary{}, toEventSummary(nil))

	s := toEventSummary(&calendar.Event{
		Id:    "e",
		Start: &calendar.EventDateTime{DateTime: "2026-03-14T09:00:00Z"},
		End:   &calendar.EventDateTime{DateTime: "bogus"},
	})
	assert.Equal(t, "e", s.ID)
	assert.False(t, s.AllDay)
	assert.Equal(t, 9, s.Start.Hour())
	assert.True(t, s.End.IsZero())
}

func TestToCalendarInfo(t *testing.T) {
	assert.Equal(t, CalendarInfo{}, toCalendarInfo(nil))
	info := toCalendarInfo(&calendar.CalendarListEntry{Id: "id", Summary: "Driving", Primary: true, AccessRole: "owner"})
	assert.Equal(t, CalendarInfo{ID: "id", Summary: "Driving", Primary: true, AccessRole: "owner"}, info)
}
