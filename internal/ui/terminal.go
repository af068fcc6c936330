package ui

import (
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// Terminal is the CLI's input and output plus the bubbletea program, if any,
// currently drawing on it.
type Terminal struct {
	in          io.Reader
	out         io.Writer
	interactive bool

	mu      sync.Mutex
	program *tea.Program
}

// NewTerminal creates a Terminal. It is interactive when both in and out are
// terminals.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:          in,
		out:         out,
		interactive: isTTY(in) && isTTY(out),
	}
}

// NewPlainTerminal creates a non-interactive Terminal; programs never start
// on it.
func NewPlainTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

func isTTY(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Interactive reports whether bubbletea programs may run.
func (t *Terminal) Interactive() bool {
	return t.interactive
}

// In returns the input stream.
func (t *Terminal) In() io.Reader { return t.in }

// Out returns the output stream.
func (t *Terminal) Out() io.Writer { return t.out }

// Suspend hands the terminal to fn. A running program is released first and
// restored afterwards.
func (t *Terminal) Suspend(fn func() error) error {
	t.mu.Lock()
	p := t.program
	t.mu.Unlock()

	if p == nil {
		return fn()
	}
	if err := p.ReleaseTerminal(); err != nil {
		return err
	}
	defer func() { _ = p.RestoreTerminal() }()
	return fn()
}

func (t *Terminal) attach(p *tea.Program) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.program = p
}

func (t *Terminal) detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.program = nil
}

func (t *Terminal) newProgram(m tea.Model) *tea.Program {
	return tea.NewProgram(m, tea.WithInput(t.in), tea.WithOutput(t.out))
}
