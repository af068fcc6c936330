package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/drivelog/internal/account"
	"github.com/teemow/drivelog/internal/calendar"
	"github.com/teemow/drivelog/internal/credential"
	"github.com/teemow/drivelog/internal/geocode"
	"github.com/teemow/drivelog/internal/instrumentation"
	"github.com/teemow/drivelog/internal/logging"
	"github.com/teemow/drivelog/internal/session"
)

// Outcome is how a Track call ended.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeNoAddress Outcome = "no_address"
)

// Drive is one trip to log.
type Drive struct {
	// Account to log the drive for; empty uses the stored account.
	Account string
	// Date of the drive. The zero value means today.
	Date       time.Time
	Kilometers float64
	Latitude   float64
	Longitude  float64
}

// Result describes a finished Track call.
type Result struct {
	Outcome  Outcome
	Calendar calendar.CalendarInfo
	// Title is set once an address was found.
	Title string
	// Event is set for OutcomeCreated.
	Event *calendar.EventSummary
}

// Runner runs an operation with a valid credential. *account.Resolver
// implements it.
type Runner interface {
	RunProtected(ctx context.Context, account string, op account.ProtectedFunc) error
}

// CalendarService is the part of *calendar.Client the tracker uses.
type CalendarService interface {
	calendar.PageLister
	InsertEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.EventSummary, error)
}

// Recorder counts outcomes. *instrumentation.Metrics implements it.
type Recorder interface {
	RecordDriveTracked(ctx context.Context, outcome string)
}

// Tracker logs drives.
type Tracker struct {
	runner    Runner
	calendars CalendarService
	geocoder  geocode.Geocoder
	title     string
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithCalendarTitle overrides the title of the calendar drives go to.
func WithCalendarTitle(title string) Option {
	return func(t *Tracker) {
		if title != "" {
			t.title = title
		}
	}
}

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(t *Tracker) { t.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithClock overrides time.Now for the default drive date.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a Tracker.
func New(runner Runner, calendars CalendarService, geocoder geocode.Geocoder, opts ...Option) (*Tracker, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if calendars == nil {
		return nil, fmt.Errorf("calendar service is required")
	}
	if geocoder == nil {
		return nil, fmt.Errorf("geocoder is required")
	}

	t := &Tracker{
		runner:    runner,
		calendars: calendars,
		geocoder:  geocoder,
		title:     calendar.DrivingCalendarTitle,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.WithOperation(t.logger, "track")
	return t, nil
}

// Track logs drive. User cancellation is reported as OutcomeCancelled with a
// nil error; a missing calendar or address is reported through its Outcome.
func (t *Tracker) Track(ctx context.Context, drive Drive) (Result, error) {
	if err := drive.validate(); err != nil {
		return Result{}, err
	}
	if drive.Date.IsZero() {
		drive.Date = t.now()
	}

	ctx, span := instrumentation.StartSpan(ctx, "tracker.track",
		attribute.String(instrumentation.SpanAttrAccount, logging.AnonymizeEmail(drive.Account)),
		attribute.Float64(instrumentation.SpanAttrDistance, drive.Kilometers),
	)
	defer span.End()

	var result Result
	err := t.runner.RunProtected(ctx, drive.Account, func(ctx context.Context, _ credential.Credential) error {
		var err error
		result, err = t.track(ctx, drive)
		return err
	})

	switch {
	case errors.Is(err, account.ErrCancelled):
		result = Result{Outcome: OutcomeCancelled}
		err = nil
	case err != nil:
		instrumentation.SetSpanError(span, err)
		t.logger.Warn("Drive not tracked", logging.Err(err))
		return Result{}, err
	}

	span.SetAttributes(attribute.String(instrumentation.SpanAttrOutcome, string(result.Outcome)))
	instrumentation.SetSpanSuccess(span)
	if t.recorder != nil {
		t.recorder.RecordDriveTracked(ctx, string(result.Outcome))
	}
	t.logger.Info("Drive tracked", logging.Outcome(string(result.Outcome)))
	return result, nil
}

func (t *Tracker) track(ctx context.Context, drive Drive) (Result, error) {
	cal, found, err := t.findCalendar(ctx)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{Outcome: OutcomeNotFound}, nil
	}

	lines, err := t.geocoder.ReverseGeocode(ctx, drive.Latitude, drive.Longitude)
	if err != nil {
		return Result{}, wrap("reverse_geocode", err)
	}
	if len(lines) == 0 {
		return Result{Outcome: OutcomeNoAddress, Calendar: cal}, nil
	}

	title := EventTitle(drive.Kilometers, lines)
	event, err := t.calendars.InsertEvent(ctx, cal.ID, calendar.EventInput{
		Summary: title,
		Start:   drive.Date,
		AllDay:  true,
	})
	if err != nil {
		return Result{}, wrap("insert_event", err)
	}

	return Result{Outcome: OutcomeCreated, Calendar: cal, Title: title, Event: event}, nil
}

func (t *Tracker) findCalendar(ctx context.Context) (calendar.CalendarInfo, bool, error) {
	calendars, err := calendar.ListCalendars(ctx, t.calendars)
	if err != nil {
		return calendar.CalendarInfo{}, false, wrap("list_calendars", err)
	}
	cal, found := calendar.FindByTitle(calendars, t.title)
	if !found {
		t.logger.Info("Calendar not found", logging.Calendar(t.title), "calendars", len(calendars))
	}
	return cal, found, nil
}

// Calendars lists every calendar of account.
func (t *Tracker) Calendars(ctx context.Context, acct string) ([]calendar.CalendarInfo, error) {
	var calendars []calendar.CalendarInfo
	err := t.runner.RunProtected(ctx, acct, func(ctx context.Context, _ credential.Credential) error {
		var err error
		calendars, err = calendar.ListCalendars(ctx, t.calendars)
		return wrap("list_calendars", err)
	})
	if err != nil {
		return nil, err
	}
	return calendars, nil
}

// CalendarTitle returns the title of the calendar drives are logged to.
func (t *Tracker) CalendarTitle() string {
	return t.title
}

// EventTitle formats the event title: "<km> km, <address lines>".
func EventTitle(km float64, lines []string) string {
	return strconv.FormatFloat(km, 'f', -1, 64) + " km, " + strings.Join(lines, ", ")
}

func (d Drive) validate() error {
	if !(d.Kilometers > 0) {
		return fmt.Errorf("%w: kilometers must be greater than zero", ErrInvalidDrive)
	}
	if d.Latitude < -90 || d.Latitude > 90 || d.Longitude < -180 || d.Longitude > 180 {
		return fmt.Errorf("%w: position %f,%f out of range", ErrInvalidDrive, d.Latitude, d.Longitude)
	}
	return nil
}

// wrap turns a service failure into a TransportError. Rejected tokens and
// context errors are returned unchanged so RunProtected and callers can see
// them.
func wrap(op string, err error) error {
	if err == nil || session.IsUnauthorized(err) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
