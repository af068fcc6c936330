package account

import (
	"context"
	"fmt"
)

// AccountType is the account type presented to the chooser.
const AccountType = "com.google"

// DefaultTokenScope is the token scope requested for calendar access.
const DefaultTokenScope = "cl"

// Choice is the chooser's result: an account and, optionally, a token
// obtained while choosing.
type Choice struct {
	Account string
	Token   string
}

// Chooser lets the user pick an account of accountType. The Future fails
// with ErrCancelled when the user declines.
type Chooser interface {
	Choose(ctx context.Context, accountType string) *Future[Choice]
}

// Intent describes an out-of-band interaction needed to grant a token.
type Intent struct {
	Account string
	// URL is where the user approves access.
	URL string
	// State correlates the approval with this request.
	State string
}

// Grant is the token provider's answer: either a token or an Intent.
type Grant struct {
	Token  string
	Intent *Intent
}

// TokenProvider returns a token for account and scope, or an Intent when the
// user must approve access first.
type TokenProvider interface {
	GetToken(ctx context.Context, account, scope string) (Grant, error)
}

// Interactor completes an Intent. The Future yields true when the user
// approved, false when they refused.
type Interactor interface {
	Authorize(ctx context.Context, intent Intent) *Future[bool]
}

// StaticChooser always chooses the same account.
type StaticChooser struct {
	Account string
}

// Choose implements Chooser.
func (c StaticChooser) Choose(_ context.Context, _ string) *Future[Choice] {
	if c.Account == "" {
		return Resolved(Choice{}, fmt.Errorf("no account configured: %w", ErrInteractionUnavailable))
	}
	return Resolved(Choice{Account: c.Account}, nil)
}

// UnavailableChooser is used where nobody can be prompted.
type UnavailableChooser struct{}

// Choose implements Chooser.
func (UnavailableChooser) Choose(context.Context, string) *Future[Choice] {
	return Resolved(Choice{}, ErrInteractionUnavailable)
}

// UnavailableInteractor is used where nobody can be prompted.
type UnavailableInteractor struct{}

// Authorize implements Interactor.
func (UnavailableInteractor) Authorize(context.Context, Intent) *Future[bool] {
	return Resolved(false, ErrInteractionUnavailable)
}
