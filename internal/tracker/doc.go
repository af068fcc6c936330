// Package tracker logs a drive as an all-day event on the user's "Driving"
// calendar.
//
// A Track call runs inside account.Resolver.RunProtected: it lists every
// calendar page, picks the calendar titled exactly "Driving", reverse
// geocodes the drive's position and inserts an event titled
// "<km> km, <address>". Each call ends in one of the Outcome values; only
// failures are returned as errors.
package tracker
