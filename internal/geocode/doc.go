// Package geocode turns a position into human-readable address lines.
//
// GoogleGeocoder calls the Google Geocoding web service through an in-memory
// HTTP cache, so repeated lookups of the same position are served locally.
// Fixed serves an address the user typed instead of a position.
package geocode
