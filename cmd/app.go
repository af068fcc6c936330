package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/teemow/drivelog/internal/account"
	"github.com/teemow/drivelog/internal/calendar"
	"github.com/teemow/drivelog/internal/config"
	"github.com/teemow/drivelog/internal/credential"
	"github.com/teemow/drivelog/internal/geocode"
	"github.com/teemow/drivelog/internal/google"
	"github.com/teemow/drivelog/internal/instrumentation"
	"github.com/teemow/drivelog/internal/session"
	"github.com/teemow/drivelog/internal/storage/sqlite"
	"github.com/teemow/drivelog/internal/tracker"
	"github.com/teemow/drivelog/internal/ui"
)

// sqliteFile is the database name used by the sqlite storage backend.
const sqliteFile = "drivelog.db"

// app is the wired object graph one command works with.
type app struct {
	creds    *credential.Manager
	tokens   *google.TokenProvider
	resolver *account.Resolver
	tracker  *tracker.Tracker

	closers []func() error
}

// appOptions selects the interactive collaborators and the geocoder.
type appOptions struct {
	// Terminal prompts for accounts and authorization codes. Nil means
	// nobody can be asked.
	Terminal *ui.Terminal
	// Geocoder overrides the configured Google geocoder.
	Geocoder geocode.Geocoder
	Metrics  *instrumentation.Metrics
}

// openCredentials opens the configured store and loads the credential.
// The returned closer releases the store.
func openCredentials(ctx context.Context, c config.Config, log *slog.Logger) (*credential.Manager, func() error, error) {
	store, closer, err := openStore(c.Storage)
	if err != nil {
		return nil, nil, err
	}

	key, err := c.Storage.Key()
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	if key != nil {
		if store, err = credential.NewEncryptedStore(store, key); err != nil {
			_ = closer()
			return nil, nil, err
		}
	}

	creds, err := credential.NewManager(ctx, store, log)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	return creds, closer, nil
}

func openStore(c config.StorageConfig) (credential.Store, func() error, error) {
	noop := func() error { return nil }

	switch c.Type {
	case config.StorageMemory:
		return credential.NewMemoryStore(nil), noop, nil
	case config.StorageSQLite:
		if err := os.MkdirAll(c.Path, 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		db, err := sqlite.Open(filepath.Join(c.Path, sqliteFile))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open credential database: %w", err)
		}
		return sqlite.NewPreferenceRepo(db, c.Namespace), db.Close, nil
	case config.StorageFile, "":
		store, err := credential.NewFileStore(c.Path, c.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", c.Type)
	}
}

// newGeocoder returns a Fixed geocoder for address, or the Google geocoder
// when address is empty.
func newGeocoder(c config.GeocodeConfig, address string, metrics *instrumentation.Metrics, log *slog.Logger) (geocode.Geocoder, error) {
	if address != "" {
		return geocode.NewFixed(address), nil
	}
	if c.APIKey == "" {
		return nil, errors.New("no geocoding API key configured: set geocode.api_key or pass --address")
	}
	opts := []geocode.Option{
		geocode.WithLanguage(c.Language),
		geocode.WithRecorder(metrics),
		geocode.WithLogger(log),
	}
	if c.Endpoint != "" {
		opts = append(opts, geocode.WithEndpoint(c.Endpoint))
	}
	return geocode.NewGoogleGeocoder(c.APIKey, opts...), nil
}

// newApp wires credentials, authentication, the calendar client and the
// tracker.
func newApp(ctx context.Context, c config.Config, log *slog.Logger, opts appOptions) (*app, error) {
	if c.Google.ClientID == "" {
		return nil, errors.New("no Google OAuth client configured: set google.client_id and google.client_secret")
	}
	scheme, err := session.ParseScheme(c.Auth.Scheme)
	if err != nil {
		return nil, err
	}

	creds, closeStore, err := openCredentials(ctx, c, log)
	if err != nil {
		return nil, err
	}
	a := &app{creds: creds, closers: []func() error{closeStore}}

	a.tokens = google.NewTokenProvider(
		google.OAuthConfig(c.Google.ClientID, c.Google.ClientSecret, c.Google.RedirectURL),
		creds,
		google.WithRefreshRecorder(opts.Metrics),
		google.WithLogger(log),
	)

	auth := session.NewAuthenticator(creds,
		session.WithScheme(scheme),
		session.WithInvalidator(a.tokens),
		session.WithEventRecorder(opts.Metrics),
		session.WithLogger(log),
	)
	httpClient := session.NewTransport(auth, google.NewHTTPTransport()).Client()

	calOpts := []calendar.Option{
		calendar.WithUserAgent("drivelog/" + version),
		calendar.WithRecorder(opts.Metrics),
		calendar.WithLogger(log),
	}
	if c.Google.CalendarEndpoint != "" {
		calOpts = append(calOpts, calendar.WithEndpoint(c.Google.CalendarEndpoint))
	}
	calendars, err := calendar.NewClient(ctx, httpClient, calOpts...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.resolver, err = account.NewResolver(creds, account.Config{
		Chooser:       chooserFor(c, creds, opts.Terminal),
		TokenProvider: a.tokens,
		Interactor:    interactorFor(a.tokens, opts.Terminal),
		Scope:         c.Auth.TokenScope,
		MaxReauth:     c.Auth.MaxReauth,
		Recorder:      opts.Metrics,
		Logger:        log,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	geocoder := opts.Geocoder
	if geocoder == nil {
		geocoder = geocode.NewFixed("")
	}
	a.tracker, err = tracker.New(a.resolver, calendars, geocoder,
		tracker.WithCalendarTitle(c.Calendar.Title),
		tracker.WithRecorder(opts.Metrics),
		tracker.WithLogger(log),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// chooserFor picks the configured account when there is one, otherwise asks
// on term.
func chooserFor(c config.Config, creds *credential.Manager, term *ui.Terminal) account.Chooser {
	if c.Account != "" {
		return account.StaticChooser{Account: c.Account}
	}
	if term == nil {
		return account.UnavailableChooser{}
	}
	return &ui.ListChooser{
		Accounts: c.Accounts,
		Current:  creds.Snapshot().AccountName,
		Terminal: term,
	}
}

func interactorFor(tokens *google.TokenProvider, term *ui.Terminal) account.Interactor {
	if term == nil || !term.Interactive() {
		return account.UnavailableInteractor{}
	}
	return google.NewCodePrompt(tokens, term.In(), term.Out(), term)
}

// Close releases the app's resources.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// hint suggests what to do about err.
func hint(err error) string {
	switch {
	case errors.Is(err, account.ErrInteractionUnavailable):
		return "run 'drivelog account login' in a terminal first"
	case account.IsAuthenticationError(err), errors.Is(err, session.ErrMissingToken):
		return "run 'drivelog account login' to sign in again"
	case tracker.IsTransportError(err):
		return "check your network connection and try again"
	default:
		return ""
	}
}

// report prints err as a notification and returns it for cobra's exit code.
func report(term *ui.Terminal, err error) error {
	msg := err.Error()
	if h := hint(err); h != "" {
		msg += " (" + h + ")"
	}
	ui.Notify(term.Out(), ui.LevelError, "%s", msg)
	return err
}
