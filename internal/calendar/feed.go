package calendar

import (
	"context"
	"fmt"
)

// DrivingCalendarTitle is the title of the calendar drives are logged to.
const DrivingCalendarTitle = "Driving"

// PageLister returns one page of the calendar list. An empty pageToken
// requests the first page.
type PageLister interface {
	ListCalendarsPage(ctx context.Context, pageToken string) (CalendarPage, error)
}

// ListCalendars follows next-page tokens until the last page and returns
// every calendar in page order. A token that was already followed is an
// error, so a misbehaving server cannot loop the client forever.
func ListCalendars(ctx context.Context, lister PageLister) ([]CalendarInfo, error) {
	var all []CalendarInfo
	seen := map[string]bool{}
	token := ""

	for {
		page, err := lister.ListCalendarsPage(ctx, token)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Calendars...)

		if page.NextPageToken == "" {
			return all, nil
		}
		if seen[page.NextPageToken] {
			return nil, fmt.Errorf("calendar list repeated page token %q", page.NextPageToken)
		}
		seen[page.NextPageToken] = true
		token = page.NextPageToken
	}
}

// FindByTitle returns the first calendar whose title equals title exactly.
func FindByTitle(calendars []CalendarInfo, title string) (CalendarInfo, bool) {
	for _, c := range calendars {
		if c.Summary == title {
			return c, true
		}
	}
	return CalendarInfo{}, false
}
