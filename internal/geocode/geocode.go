package geocode

import (
	"context"
	"strings"
)

// Geocoder resolves a position to address lines. A nil slice with a nil
// error means the position has no known address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) ([]string, error)
}

// Fixed is a Geocoder that ignores the position and returns one address.
type Fixed struct {
	Lines []string
}

// NewFixed splits a comma separated address into lines. Blank parts are
// dropped; an empty address yields a Fixed with no lines.
func NewFixed(address string) Fixed {
	var lines []string
	for _, part := range strings.Split(address, ",") {
		if part = strings.TrimSpace(part); part != "" {
			lines = append(lines, part)
		}
	}
	return Fixed{Lines: lines}
}

// ReverseGeocode implements Geocoder.
func (f Fixed) ReverseGeocode(context.Context, float64, float64) ([]string, error) {
	if len(f.Lines) == 0 {
		return nil, nil
	}
	return append([]string(nil), f.Lines...), nil
}
