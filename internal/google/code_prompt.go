package google

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/teemow/drivelog/internal/account"
)

// CodeExchanger completes an authorization. TokenProvider implements it.
type CodeExchanger interface {
	Exchange(ctx context.Context, intent account.Intent, code string) error
}

// Suspender hands the terminal to fn for the duration of the call, e.g. by
// pausing a running TUI.
type Suspender interface {
	Suspend(fn func() error) error
}

// CodePrompt implements account.Interactor on a terminal: it prints the
// consent URL, reads the authorization code and exchanges it. An empty line
// refuses; end of input cancels.
type CodePrompt struct {
	exchanger CodeExchanger
	in        *bufio.Reader
	out       io.Writer
	terminal  Suspender
}

// NewCodePrompt creates a CodePrompt reading from in and writing to out.
// terminal may be nil.
func NewCodePrompt(exchanger CodeExchanger, in io.Reader, out io.Writer, terminal Suspender) *CodePrompt {
	return &CodePrompt{
		exchanger: exchanger,
		in:        bufio.NewReader(in),
		out:       out,
		terminal:  terminal,
	}
}

// Authorize implements account.Interactor.
func (p *CodePrompt) Authorize(ctx context.Context, intent account.Intent) *account.Future[bool] {
	return account.Async(func() (bool, error) {
		var approved bool
		run := func() error {
			var err error
			approved, err = p.prompt(ctx, intent)
			return err
		}
		var err error
		if p.terminal != nil {
			err = p.terminal.Suspend(run)
		} else {
			err = run()
		}
		return approved, err
	})
}

func (p *CodePrompt) prompt(ctx context.Context, intent account.Intent) (bool, error) {
	who := intent.Account
	if who == "" {
		who = "your Google account"
	}
	fmt.Fprintf(p.out, "\nTo let drivelog use the calendar of %s, visit:\n\n  %s\n\n", who, intent.URL)
	fmt.Fprint(p.out, "Paste the authorization code (empty to choose another account): ")

	line, err := p.in.ReadString('\n')
	code := strings.TrimSpace(line)
	switch {
	case errors.Is(err, io.EOF) && code == "":
		return false, account.ErrCancelled
	case err != nil && !errors.Is(err, io.EOF):
		return false, fmt.Errorf("read authorization code: %w", err)
	}

	if code == "" {
		return false, nil
	}
	if err := p.exchanger.Exchange(ctx, intent, code); err != nil {
		return false, err
	}
	fmt.Fprintln(p.out, "Authorized.")
	return true, nil
}
