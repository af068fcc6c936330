package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// dateLayout is the all-day event date format.
const dateLayout = "2006-01-02"

// EventInput represents the input for creating a calendar event.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	// End is exclusive. For all-day events a zero End means one day after Start.
	End      time.Time
	AllDay   bool
	TimeZone string
}

// EventSummary represents a created or fetched event.
type EventSummary struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Status      string
	HTMLLink    string
}

// CalendarInfo represents information about a calendar.
type CalendarInfo struct {
	ID          string
	Summary     string
	Description string
	TimeZone    string
	Primary     bool
	AccessRole  string // "owner", "writer", "reader", "freeBusyReader"
}

// CalendarPage is one page of the calendar list.
type CalendarPage struct {
	Calendars []CalendarInfo
	// NextPageToken is empty on the last page.
	NextPageToken string
}

func toEvent(input EventInput) *calendar.Event {
	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
	}

	// For all-day events, use Date instead of DateTime
	if input.AllDay {
		end := input.End
		if end.IsZero() || !end.After(input.Start) {
			end = input.Start.AddDate(0, 0, 1)
		}
		event.Start = &calendar.EventDateTime{Date: input.Start.Format(dateLayout)}
		event.End = &calendar.EventDateTime{Date: end.Format(dateLayout)}
		return event
	}

	tz := input.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	event.Start = &calendar.EventDateTime{DateTime: input.Start.Format(time.RFC3339), TimeZone: tz}
	event.End = &calendar.EventDateTime{DateTime: input.End.Format(time.RFC3339), TimeZone: tz}
	return event
}

// toEventSummary converts a Google Calendar event to an EventSummary.
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}

	if event.Start != nil {
		summary.Start, summary.AllDay = parseEventTime(event.Start)
	}
	if event.End != nil {
		summary.End, _ = parseEventTime(event.End)
	}

	return summary
}

func parseEventTime(t *calendar.EventDateTime) (time.Time, bool) {
	if t.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return parsed, false
		}
	}
	if t.Date != "" {
		if parsed, err := time.Parse(dateLayout, t.Date); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// toCalendarInfo converts a Google Calendar list entry to CalendarInfo.
func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:          entry.Id,
		Summary:     entry.Summary,
		Description: entry.Description,
		TimeZone:    entry.TimeZone,
		Primary:     entry.Primary,
		AccessRole:  entry.AccessRole,
	}
}
