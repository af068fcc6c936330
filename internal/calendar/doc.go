// Package calendar is a thin client over the Google Calendar API for the
// two calls drive tracking needs: listing the user's calendars page by page
// and inserting an event.
//
// The client is built on an already authorized *http.Client, normally one
// whose transport is session.Transport, so authorization, session binding and
// 401 handling stay outside this package.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, httpClient)
//	if err != nil {
//	    return err
//	}
//
//	cals, err := client.ListCalendars(ctx)
//	if err != nil {
//	    return err
//	}
//	driving, ok := calendar.FindByTitle(cals, calendar.DrivingCalendarTitle)
package calendar
