package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"googlemaps.github.io/maps"

	"github.com/teemow/drivelog/internal/instrumentation"
	"github.com/teemow/drivelog/internal/logging"
)

// DefaultEndpoint is the Google Maps web service host. The geocoding path is
// appended by the maps client.
const DefaultEndpoint = "https://maps.googleapis.com"

// ServiceName labels geocoding calls in metrics, spans and logs.
const ServiceName = instrumentation.ServiceGeocoding

// ErrNoAPIKey is returned when the geocoder is used without an API key.
var ErrNoAPIKey = errors.New("geocode: no API key configured")

// Recorder receives one observation per API call.
// *instrumentation.Metrics implements it.
type Recorder interface {
	RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration)
}

// GoogleGeocoder reverse geocodes with the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey   string
	endpoint string
	language string
	client   *http.Client
	recorder Recorder
	logger   *slog.Logger

	maps    *maps.Client
	initErr error
}

// Option configures a GoogleGeocoder.
type Option func(*GoogleGeocoder)

// WithEndpoint overrides the Maps API host.
func WithEndpoint(endpoint string) Option {
	return func(g *GoogleGeocoder) { g.endpoint = endpoint }
}

// WithLanguage sets the language of the returned address.
func WithLanguage(lang string) Option {
	return func(g *GoogleGeocoder) { g.language = lang }
}

// WithHTTPClient replaces the cached client. Tests use it to disable caching.
func WithHTTPClient(c *http.Client) Option {
	return func(g *GoogleGeocoder) { g.client = c }
}

// WithRecorder records call metrics.
func WithRecorder(r Recorder) Option {
	return func(g *GoogleGeocoder) { g.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *GoogleGeocoder) { g.logger = l }
}

// NewGoogleGeocoder creates a geocoder. Responses are cached in memory,
// honouring the API's cache headers.
func NewGoogleGeocoder(apiKey string, opts ...Option) *GoogleGeocoder {
	g := &GoogleGeocoder{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Transport: httpcache.NewMemoryCacheTransport(), Timeout: 15 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.WithService(g.logger, ServiceName)

	if apiKey != "" {
		g.maps, g.initErr = maps.NewClient(
			maps.WithAPIKey(apiKey),
			maps.WithBaseURL(strings.TrimSuffix(g.endpoint, "/")),
			maps.WithHTTPClient(g.client),
		)
	}
	return g
}

// ReverseGeocode implements Geocoder. The first result's formatted address
// is split into lines on ", ".
func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) ([]string, error) {
	if g.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if g.initErr != nil {
		return nil, fmt.Errorf("geocode: %w", g.initErr)
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, ServiceName, instrumentation.OperationReverse)
	defer span.End()

	start := time.Now()
	lines, err := g.reverseGeocode(ctx, lat, lon)
	duration := time.Since(start)

	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	if g.recorder != nil {
		g.recorder.RecordGoogleAPIOperation(ctx, ServiceName, instrumentation.OperationReverse, status, duration)
	}
	g.logger.Debug("Reverse geocode",
		logging.Status(status),
		"lines", len(lines),
		slog.Duration(logging.KeyDuration, duration),
	)
	return lines, err
}

func (g *GoogleGeocoder) reverseGeocode(ctx context.Context, lat, lon float64) ([]string, error) {
	results, err := g.maps.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: lat, Lng: lon},
		Language: g.language,
	})
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", stripURL(err))
	}

	if len(results) == 0 || strings.TrimSpace(results[0].FormattedAddress) == "" {
		return nil, nil
	}
	return splitAddress(results[0].FormattedAddress), nil
}

// stripURL drops the request URL from transport errors. It carries the API
// key as a query parameter.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", strings.ToLower(uerr.Op), uerr.Err)
	}
	return err
}

func splitAddress(formatted string) []string {
	var lines []string
	for _, part := range strings.Split(formatted, ",") {
		if part = strings.TrimSpace(part); part != "" {
			lines = append(lines, part)
		}
	}
	return lines
}
