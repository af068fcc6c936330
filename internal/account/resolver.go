package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/teemow/drivelog/internal/credential"
	"github.com/teemow/drivelog/internal/logging"
	"github.com/teemow/drivelog/internal/session"
)

// Defaults for Config.
const (
	DefaultMaxInteractiveRounds = 3
	DefaultMaxReauth            = 1
)

// Auth events reported to the EventRecorder.
const (
	EventCancelled       = "cancelled"
	EventReauthenticated = "reauthenticated"
	EventTokenGranted    = "token_granted"
	EventAccountChosen   = "account_chosen"
)

// CredentialManager is the part of credential.Manager the Resolver needs.
type CredentialManager interface {
	Snapshot() credential.Credential
	SetAccount(ctx context.Context, account string) error
	SetAuthToken(ctx context.Context, token string) error
	ClearAuthToken(ctx context.Context) (string, error)
}

// Config holds the Resolver's collaborators and limits.
type Config struct {
	Chooser       Chooser
	TokenProvider TokenProvider
	Interactor    Interactor

	// AccountType is passed to the chooser. Defaults to AccountType.
	AccountType string
	// Scope is passed to the token provider. Defaults to DefaultTokenScope.
	Scope string
	// MaxInteractiveRounds bounds Interactor calls per resolution.
	MaxInteractiveRounds int
	// MaxReauth bounds re-authentications after a 401 in RunProtected.
	// Zero means DefaultMaxReauth; a negative value disables them.
	MaxReauth int

	Recorder session.EventRecorder
	Logger   *slog.Logger
}

// Resolver implements the account resolution flow.
type Resolver struct {
	creds CredentialManager
	cfg   Config
	group singleflight.Group
	log   *slog.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context a shared resolution runs under. It is cancelled
// once every caller waiting on it has left.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewResolver creates a Resolver.
func NewResolver(creds CredentialManager, cfg Config) (*Resolver, error) {
	if creds == nil {
		return nil, fmt.Errorf("credential manager is required")
	}
	if cfg.Chooser == nil {
		return nil, fmt.Errorf("account chooser is required")
	}
	if cfg.TokenProvider == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	if cfg.Interactor == nil {
		cfg.Interactor = UnavailableInteractor{}
	}
	if cfg.AccountType == "" {
		cfg.AccountType = AccountType
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultTokenScope
	}
	if cfg.MaxInteractiveRounds <= 0 {
		cfg.MaxInteractiveRounds = DefaultMaxInteractiveRounds
	}
	switch {
	case cfg.MaxReauth == 0:
		cfg.MaxReauth = DefaultMaxReauth
	case cfg.MaxReauth < 0:
		cfg.MaxReauth = 0
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{creds: creds, cfg: cfg, log: log, flights: make(map[string]*flight)}, nil
}

// EnsureAuthenticated returns a credential with a token for account. An
// empty account accepts whichever account is stored. Concurrent calls for
// the same account share one resolution; a caller whose ctx ends returns
// early without failing the others.
func (r *Resolver) EnsureAuthenticated(ctx context.Context, account string) (credential.Credential, error) {
	f := r.join(ctx, account)
	defer r.leave(account, f)

	ch := r.group.DoChan(account, func() (any, error) {
		defer r.land(account, f)
		return r.resolve(f.ctx, account)
	})

	select {
	case <-ctx.Done():
		return credential.Credential{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			r.log.Debug("Joined in-flight account resolution", logging.UserHash(account))
		}
		if res.Err != nil {
			return credential.Credential{}, res.Err
		}
		return res.Val.(credential.Credential), nil
	}
}

// join registers the caller with the current flight for account, starting
// one detached from ctx's cancellation if none is in progress.
func (r *Resolver) join(ctx context.Context, account string) *flight {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[account]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		r.flights[account] = f
	}
	f.waiters++
	return f
}

// leave cancels the flight when its last waiter is gone.
func (r *Resolver) leave(account string, f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if r.flights[account] == f {
		delete(r.flights, account)
	}
}

// land retires the flight once its resolution has finished, so later calls
// start a fresh one.
func (r *Resolver) land(account string, f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flights[account] == f {
		delete(r.flights, account)
	}
}

func (r *Resolver) resolve(ctx context.Context, account string) (credential.Credential, error) {
	cred := r.creds.Snapshot()
	needChoose := !cred.HasAccount() || (account != "" && cred.AccountName != account)
	rounds := 0

	for {
		if needChoose {
			choice, err := r.cfg.Chooser.Choose(ctx, r.cfg.AccountType).Wait(ctx)
			if err != nil {
				return credential.Credential{}, r.fail(ctx, account, "choose_account", err)
			}
			if choice.Account == "" {
				return credential.Credential{}, &AuthenticationError{Account: account, Op: "choose_account", Err: errors.New("chooser returned no account")}
			}
			if err := r.adopt(ctx, choice); err != nil {
				return credential.Credential{}, &AuthenticationError{Account: choice.Account, Op: "store_account", Err: err}
			}
			needChoose = false
			cred = r.creds.Snapshot()
		}

		if cred.HasToken() {
			return cred, nil
		}

		grant, err := r.cfg.TokenProvider.GetToken(ctx, cred.AccountName, r.cfg.Scope)
		if err != nil {
			return credential.Credential{}, r.fail(ctx, cred.AccountName, "get_token", err)
		}
		if grant.Token != "" {
			if err := r.creds.SetAuthToken(ctx, grant.Token); err != nil {
				return credential.Credential{}, &AuthenticationError{Account: cred.AccountName, Op: "store_token", Err: err}
			}
			r.record(ctx, EventTokenGranted)
			r.log.Info("Auth token granted", logging.UserHash(cred.AccountName))
			return r.creds.Snapshot(), nil
		}
		if grant.Intent == nil {
			return credential.Credential{}, &AuthenticationError{Account: cred.AccountName, Op: "get_token", Err: errors.New("token provider returned neither token nor intent")}
		}

		if rounds >= r.cfg.MaxInteractiveRounds {
			return credential.Credential{}, &AuthenticationError{Account: cred.AccountName, Op: "authorize", Err: ErrTooManyRounds}
		}
		rounds++

		approved, err := r.cfg.Interactor.Authorize(ctx, *grant.Intent).Wait(ctx)
		if err != nil {
			return credential.Credential{}, r.fail(ctx, cred.AccountName, "authorize", err)
		}
		if !approved {
			r.log.Info("Authorization refused, choosing account again", logging.UserHash(cred.AccountName))
			needChoose = true
		}
		cred = r.creds.Snapshot()
	}
}

// adopt stores the chosen account and the token that came with it.
func (r *Resolver) adopt(ctx context.Context, choice Choice) error {
	if err := r.creds.SetAccount(ctx, choice.Account); err != nil {
		return err
	}
	if choice.Token != "" {
		if err := r.creds.SetAuthToken(ctx, choice.Token); err != nil {
			return err
		}
	}
	r.record(ctx, EventAccountChosen)
	r.log.Info("Account chosen", logging.UserHash(choice.Account))
	return nil
}

// fail maps a collaborator error. Cancellation and context errors pass
// through; everything else becomes an AuthenticationError.
func (r *Resolver) fail(ctx context.Context, account, op string, err error) error {
	switch {
	case errors.Is(err, ErrCancelled):
		r.record(ctx, EventCancelled)
		r.log.Info("Authentication cancelled by user", logging.Operation(op))
		return ErrCancelled
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return &AuthenticationError{Account: account, Op: op, Err: err}
	}
}

func (r *Resolver) record(ctx context.Context, event string) {
	if r.cfg.Recorder != nil {
		r.cfg.Recorder.RecordAuthEvent(ctx, event)
	}
}

// ProtectedFunc is an operation that needs a valid token.
type ProtectedFunc func(ctx context.Context, cred credential.Credential) error

// RunProtected resolves account and runs op. When op fails with a 401 the
// token is cleared, the account resolved again and op reissued, at most
// MaxReauth times. After that the 401 is returned inside an
// AuthenticationError.
func (r *Resolver) RunProtected(ctx context.Context, account string, op ProtectedFunc) error {
	cred, err := r.EnsureAuthenticated(ctx, account)
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		err = op(ctx, cred)
		if !session.IsUnauthorized(err) {
			return err
		}
		if attempt >= r.cfg.MaxReauth {
			return &AuthenticationError{Account: cred.AccountName, Op: "reauthenticate", Err: err}
		}

		r.log.Info("Token rejected, re-authenticating", logging.UserHash(cred.AccountName))
		if _, cerr := r.creds.ClearAuthToken(ctx); cerr != nil {
			return &AuthenticationError{Account: cred.AccountName, Op: "clear_token", Err: cerr}
		}
		r.record(ctx, EventReauthenticated)

		cred, err = r.EnsureAuthenticated(ctx, account)
		if err != nil {
			return err
		}
	}
}
