package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultProgressMessage is shown while a drive is being tracked.
const DefaultProgressMessage = "Getting calendar, and GPS"

type doneMsg struct {
	value any
	err   error
}

type progressModel struct {
	spinner    spinner.Model
	message    string
	work       func() (any, error)
	cancel     context.CancelFunc
	cancelling bool
	done       *doneMsg
}

func newProgressModel(message string, cancel context.CancelFunc, work func() (any, error)) progressModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = TitleStyle
	return progressModel{spinner: s, message: message, work: work, cancel: cancel}
}

func (m progressModel) Init() tea.Cmd {
	work := m.work
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		v, err := work()
		return doneMsg{value: v, err: err}
	})
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = &msg
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.cancelling = true
			m.cancel()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done != nil {
		return ""
	}
	if m.cancelling {
		return fmt.Sprintf("%s %s\n", m.spinner.View(), DimStyle.Render("Cancelling..."))
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.message)
}

// RunWithProgress runs work while a spinner with message is shown. On a
// non-interactive terminal work runs without one. Ctrl-C cancels the
// context passed to work.
func RunWithProgress[T any](ctx context.Context, term *Terminal, message string, work func(ctx context.Context) (T, error)) (T, error) {
	if !term.Interactive() {
		return work(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newProgressModel(message, cancel, func() (any, error) {
		return work(ctx)
	})
	p := term.newProgram(m)
	term.attach(p)
	defer term.detach()

	final, err := p.Run()
	var zero T
	if err != nil {
		return zero, fmt.Errorf("progress display failed: %w", err)
	}

	pm, ok := final.(progressModel)
	if !ok || pm.done == nil {
		return zero, errors.New("progress ended before the work finished")
	}
	if pm.done.err != nil {
		return zero, pm.done.err
	}
	v, _ := pm.done.value.(T)
	return v, nil
}
