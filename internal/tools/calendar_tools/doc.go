// Package calendar_tools provides the MCP tools that read the calendar list
// and log drives.
//
//   - calendar_list_calendars: every calendar of the account, with the
//     driving calendar marked
//   - calendar_track_drive: reverse geocodes a position and inserts an
//     all-day "<km> km, <address>" event into the driving calendar
package calendar_tools
