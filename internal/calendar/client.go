package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/drivelog/internal/instrumentation"
	"github.com/teemow/drivelog/internal/logging"
)

// ServiceName labels calendar calls in metrics, spans and logs.
const ServiceName = instrumentation.ServiceCalendar

// Recorder receives one observation per API call.
// *instrumentation.Metrics implements it.
type Recorder interface {
	RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration)
}

// Client wraps the Google Calendar service.
type Client struct {
	svc      *calendar.Service
	recorder Recorder
	logger   *slog.Logger
}

type clientOptions struct {
	endpoint  string
	userAgent string
	recorder  Recorder
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) { o.endpoint = endpoint }
}

// WithUserAgent sets the application name sent with every request.
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) { o.userAgent = ua }
}

// WithRecorder records call metrics.
func WithRecorder(r Recorder) Option {
	return func(o *clientOptions) { o.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// NewClient creates a Client that sends requests through httpClient.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}

	o := clientOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if o.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(o.endpoint))
	}
	if o.userAgent != "" {
		clientOpts = append(clientOpts, option.WithUserAgent(o.userAgent))
	}

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:      svc,
		recorder: o.recorder,
		logger:   logging.WithService(o.logger, ServiceName),
	}, nil
}

// observe runs call inside a span and records its duration and status.
func (c *Client) observe(ctx context.Context, operation string, call func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, ServiceName, operation)
	defer span.End()

	start := time.Now()
	err := call(ctx)
	duration := time.Since(start)

	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	if c.recorder != nil {
		c.recorder.RecordGoogleAPIOperation(ctx, ServiceName, operation, status, duration)
	}

	c.logger.Debug("Calendar API call",
		logging.Operation(operation),
		logging.Status(status),
		slog.Duration(logging.KeyDuration, duration),
	)
	return err
}

// ListCalendarsPage returns one page of the user's calendar list.
func (c *Client) ListCalendarsPage(ctx context.Context, pageToken string) (CalendarPage, error) {
	var page CalendarPage
	err := c.observe(ctx, instrumentation.OperationListCalendars, func(ctx context.Context) error {
		call := c.svc.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return fmt.Errorf("failed to list calendars: %w", err)
		}

		for _, entry := range list.Items {
			page.Calendars = append(page.Calendars, toCalendarInfo(entry))
		}
		page.NextPageToken = list.NextPageToken
		return nil
	})
	return page, err
}

// ListCalendars returns every calendar accessible to the user.
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	return ListCalendars(ctx, c)
}

// InsertEvent creates an event in calendarID.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	var summary EventSummary
	err := c.observe(ctx, instrumentation.OperationInsertEvent, func(ctx context.Context) error {
		created, err := c.svc.Events.Insert(calendarID, toEvent(input)).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
		summary = toEventSummary(created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
