package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/drivelog/internal/account"
	"github.com/teemow/drivelog/internal/calendar"
	"github.com/teemow/drivelog/internal/credential"
	"github.com/teemow/drivelog/internal/instrumentation"
	"github.com/teemow/drivelog/internal/tracker"
)

// DriveTracker is the part of *tracker.Tracker the tools use.
type DriveTracker interface {
	Track(ctx context.Context, drive tracker.Drive) (tracker.Result, error)
	Calendars(ctx context.Context, acct string) ([]calendar.CalendarInfo, error)
	CalendarTitle() string
}

// CredentialSource exposes the stored credential. *credential.Manager
// implements it.
type CredentialSource interface {
	Snapshot() credential.Credential
	SetAccount(ctx context.Context, acct string) error
	SetAuthToken(ctx context.Context, token string) error
}

// Authorizer grants tokens headlessly: GetToken yields a consent URL and
// Exchange completes it with the code the user pasted. *google.TokenProvider
// implements it.
type Authorizer interface {
	GetToken(ctx context.Context, acct, scope string) (account.Grant, error)
	Exchange(ctx context.Context, intent account.Intent, code string) error
}

// ServerContext holds the services shared by all MCP tools.
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	tracker     DriveTracker
	credentials CredentialSource
	authorizer  Authorizer
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	mu          sync.RWMutex
	shutdown    bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, tr DriveTracker, creds CredentialSource, logger *slog.Logger) (*ServerContext, error) {
	if tr == nil {
		return nil, fmt.Errorf("drive tracker is required")
	}
	if creds == nil {
		return nil, fmt.Errorf("credential source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		tracker:     tr,
		credentials: creds,
		logger:      logger,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Tracker returns the drive tracker.
func (sc *ServerContext) Tracker() DriveTracker {
	return sc.tracker
}

// Credential returns a copy of the stored credential.
func (sc *ServerContext) Credential() credential.Credential {
	return sc.credentials.Snapshot()
}

// Credentials returns the credential source.
func (sc *ServerContext) Credentials() CredentialSource {
	return sc.credentials
}

// SetAuthorizer enables the account authorization tools.
func (sc *ServerContext) SetAuthorizer(a Authorizer) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.authorizer = a
}

// Authorizer returns the authorizer, or nil when none is configured.
func (sc *ServerContext) Authorizer() Authorizer {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.authorizer
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// SetMetrics sets the metrics recorder. Passing nil disables tool metrics.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
