package credential

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/drivelog/internal/logging"
)

// Manager owns the credential. All reads return copies; all writes go through
// the transitions below, each of which commits to the Store before updating
// memory.
type Manager struct {
	mu      sync.Mutex
	store   Store
	cred    Credential
	refresh string
	logger  *slog.Logger
}

// NewManager loads the persisted credential from store.
func NewManager(ctx context.Context, store Store, logger *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	values, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cred, refresh := fromValues(values)

	logger.Debug("Loaded credentials",
		logging.UserHash(cred.AccountName),
		"has_token", cred.HasToken(),
		"has_session", cred.HasSession(),
	)

	return &Manager{
		store:   store,
		cred:    cred,
		refresh: refresh,
		logger:  logger,
	}, nil
}

// Snapshot returns a copy of the current credential.
func (m *Manager) Snapshot() Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred
}

// RefreshToken returns the stored refresh token, if any.
func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh
}

// SetAccount records the chosen account. The session id is always dropped;
// switching to a different account also drops that account's tokens. All of
// it is one commit.
func (m *Manager) SetAccount(ctx context.Context, account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	edit := Edit{Set: map[string]string{KeyAccountName: account}, Remove: []string{KeySessionID}}
	switched := m.cred.AccountName != "" && m.cred.AccountName != account
	if switched {
		edit.Remove = append(edit.Remove, KeyAuthToken, KeyRefreshToken)
	}
	return m.commitLocked(ctx, "set_account", edit, func(c *Credential, r *string) {
		c.AccountName = account
		c.SessionID = ""
		if switched {
			c.AuthToken = ""
			*r = ""
		}
	})
}

// SetAuthToken stores a freshly granted auth token.
func (m *Manager) SetAuthToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("auth token cannot be empty")
	}
	return m.commit(ctx, "set_auth_token",
		Edit{Set: map[string]string{KeyAuthToken: token}},
		func(c *Credential, _ *string) { c.AuthToken = token })
}

// BindSession stores the session id issued by the provider.
func (m *Manager) BindSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	return m.commit(ctx, "bind_session",
		Edit{Set: map[string]string{KeySessionID: sessionID}},
		func(c *Credential, _ *string) { c.SessionID = sessionID })
}

// ClearAuthToken removes the auth token from memory and storage and returns
// the value that was cleared ("" when there was none).
func (m *Manager) ClearAuthToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.cred.AuthToken
	if old == "" {
		return "", nil
	}
	if err := m.commitLocked(ctx, "clear_auth_token",
		Edit{Remove: []string{KeyAuthToken}},
		func(c *Credential, _ *string) { c.AuthToken = "" }); err != nil {
		return "", err
	}
	return old, nil
}

// SetRefreshToken stores the long-lived token used to mint auth tokens.
func (m *Manager) SetRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("refresh token cannot be empty")
	}
	return m.commit(ctx, "set_refresh_token",
		Edit{Set: map[string]string{KeyRefreshToken: token}},
		func(_ *Credential, r *string) { *r = token })
}

// ClearRefreshToken removes the refresh token.
func (m *Manager) ClearRefreshToken(ctx context.Context) error {
	return m.commit(ctx, "clear_refresh_token",
		Edit{Remove: []string{KeyRefreshToken}},
		func(_ *Credential, r *string) { *r = "" })
}

// Reset forgets everything: account, tokens and session.
func (m *Manager) Reset(ctx context.Context) error {
	return m.commit(ctx, "reset",
		Edit{Remove: []string{KeyAccountName, KeyAuthToken, KeySessionID, KeyRefreshToken}},
		func(c *Credential, r *string) {
			*c = Credential{}
			*r = ""
		})
}

func (m *Manager) commit(ctx context.Context, op string, edit Edit, mutate func(*Credential, *string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commitLocked(ctx, op, edit, mutate)
}

// commitLocked persists edit and, only if that succeeds, applies mutate to
// memory. Callers hold m.mu.
func (m *Manager) commitLocked(ctx context.Context, op string, edit Edit, mutate func(*Credential, *string)) error {
	if err := m.store.Apply(ctx, edit); err != nil {
		m.logger.Error("Failed to persist credentials", logging.Operation(op), logging.Err(err))
		return fmt.Errorf("failed to persist credentials (%s): %w", op, err)
	}

	next, refresh := m.cred, m.refresh
	mutate(&next, &refresh)
	m.cred, m.refresh = next, refresh

	m.logger.Debug("Credentials updated", logging.Operation(op))
	return nil
}
