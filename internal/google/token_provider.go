package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/drivelog/internal/account"
	"github.com/teemow/drivelog/internal/instrumentation"
	"github.com/teemow/drivelog/internal/logging"
)

// RefreshTokenStore persists the refresh token. credential.Manager
// implements it.
type RefreshTokenStore interface {
	RefreshToken() string
	SetRefreshToken(ctx context.Context, token string) error
	ClearRefreshToken(ctx context.Context) error
}

// RefreshRecorder counts refresh attempts. *instrumentation.Metrics
// implements it.
type RefreshRecorder interface {
	RecordTokenRefresh(ctx context.Context, result string)
}

// TokenProvider implements account.TokenProvider on top of an OAuth2 refresh
// token. It also implements session.TokenInvalidator.
type TokenProvider struct {
	conf       *oauth2.Config
	store      RefreshTokenStore
	httpClient *http.Client
	recorder   RefreshRecorder
	logger     *slog.Logger

	mu        sync.Mutex
	cached    *oauth2.Token
	cachedFor string
	pending   map[string]string // state -> account
}

// TokenProviderOption configures a TokenProvider.
type TokenProviderOption func(*TokenProvider)

// WithHTTPClient sets the client used for token endpoint calls.
func WithHTTPClient(c *http.Client) TokenProviderOption {
	return func(p *TokenProvider) { p.httpClient = c }
}

// WithRefreshRecorder reports refresh results to r.
func WithRefreshRecorder(r RefreshRecorder) TokenProviderOption {
	return func(p *TokenProvider) { p.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) TokenProviderOption {
	return func(p *TokenProvider) { p.logger = l }
}

// NewTokenProvider creates a TokenProvider.
func NewTokenProvider(conf *oauth2.Config, store RefreshTokenStore, opts ...TokenProviderOption) *TokenProvider {
	p := &TokenProvider{
		conf:    conf,
		store:   store,
		logger:  slog.Default(),
		pending: map[string]string{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *TokenProvider) oauthContext(ctx context.Context) context.Context {
	if p.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	return ctx
}

func (p *TokenProvider) config(scope string) *oauth2.Config {
	c := *p.conf
	c.Scopes = ScopesFor(scope)
	return &c
}

// GetToken returns a valid access token, minting one from the refresh token
// when needed. Without a usable refresh token it returns an Intent carrying
// the consent URL.
func (p *TokenProvider) GetToken(ctx context.Context, acct, scope string) (account.Grant, error) {
	p.mu.Lock()
	if p.cached.Valid() && p.cachedFor == acct {
		tok := p.cached.AccessToken
		p.mu.Unlock()
		return account.Grant{Token: tok}, nil
	}
	p.mu.Unlock()

	refresh := p.store.RefreshToken()
	if refresh == "" {
		return account.Grant{Intent: p.newIntent(acct, scope)}, nil
	}

	ts := p.config(scope).TokenSource(p.oauthContext(ctx), &oauth2.Token{RefreshToken: refresh})
	tok, err := ts.Token()
	if err != nil {
		if isInvalidGrant(err) {
			p.record(ctx, instrumentation.RefreshResultRevoked)
			p.logger.Info("Refresh token rejected, consent required", logging.UserHash(acct))
			if cerr := p.store.ClearRefreshToken(ctx); cerr != nil {
				return account.Grant{}, fmt.Errorf("clear refresh token: %w", cerr)
			}
			return account.Grant{Intent: p.newIntent(acct, scope)}, nil
		}
		p.record(ctx, instrumentation.RefreshResultFailure)
		return account.Grant{}, fmt.Errorf("refresh access token: %w", err)
	}
	p.record(ctx, instrumentation.RefreshResultSuccess)

	if tok.RefreshToken != "" && tok.RefreshToken != refresh {
		if err := p.store.SetRefreshToken(ctx, tok.RefreshToken); err != nil {
			return account.Grant{}, fmt.Errorf("store rotated refresh token: %w", err)
		}
	}

	p.remember(acct, tok)
	return account.Grant{Token: tok.AccessToken}, nil
}

func (p *TokenProvider) newIntent(acct, scope string) *account.Intent {
	state := uuid.NewString()

	p.mu.Lock()
	p.pending[state] = acct
	p.mu.Unlock()

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}
	if acct != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", acct))
	}
	return &account.Intent{
		Account: acct,
		URL:     p.config(scope).AuthCodeURL(state, opts...),
		State:   state,
	}
}

// Exchange trades an authorization code for tokens and stores the refresh
// token. The intent must have been issued by this provider for the same
// account; a mismatched account leaves the state pending.
func (p *TokenProvider) Exchange(ctx context.Context, intent account.Intent, code string) error {
	p.mu.Lock()
	issuedFor, ok := p.pending[intent.State]
	if ok && issuedFor == intent.Account {
		delete(p.pending, intent.State)
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown authorization state")
	}
	if issuedFor != intent.Account {
		return fmt.Errorf("authorization state was issued for a different account")
	}

	tok, err := p.conf.Exchange(p.oauthContext(ctx), code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if tok.RefreshToken == "" {
		return fmt.Errorf("authorization did not return a refresh token")
	}
	if err := p.store.SetRefreshToken(ctx, tok.RefreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}

	p.remember(intent.Account, tok)
	p.logger.Info("Authorization code exchanged", logging.UserHash(intent.Account))
	return nil
}

func (p *TokenProvider) remember(acct string, tok *oauth2.Token) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached, p.cachedFor = tok, acct
}

// InvalidateToken drops token from the cache so the next GetToken mints a
// new one.
func (p *TokenProvider) InvalidateToken(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil && p.cached.AccessToken == token {
		p.cached = nil
	}
	return nil
}

func (p *TokenProvider) record(ctx context.Context, result string) {
	if p.recorder != nil {
		p.recorder.RecordTokenRefresh(ctx, result)
	}
}

func isInvalidGrant(err error) bool {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return re.ErrorCode == "invalid_grant"
	}
	return false
}
