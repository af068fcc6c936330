package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/teemow/drivelog/internal/account"
)

const otherAccountTitle = "Use another account"

type accountItem struct {
	name    string
	current bool
	other   bool
}

func (i accountItem) Title() string {
	if i.other {
		return otherAccountTitle
	}
	return i.name
}

func (i accountItem) Description() string {
	switch {
	case i.other:
		return "type an address"
	case i.current:
		return "currently signed in"
	}
	return ""
}

func (i accountItem) FilterValue() string { return i.name }

type chooserModel struct {
	list      list.Model
	input     textinput.Model
	typing    bool
	chosen    string
	cancelled bool
	err       string
}

func newChooserModel(accountType string, accounts []string, current string) chooserModel {
	items := make([]list.Item, 0, len(accounts)+1)
	for _, a := range accounts {
		items = append(items, accountItem{name: a, current: a == current})
	}
	items = append(items, accountItem{other: true})

	l := list.New(items, list.NewDefaultDelegate(), 50, 4+3*len(items))
	l.Title = fmt.Sprintf("Choose a %s account", accountType)
	l.Styles.Title = TitleStyle
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)

	in := textinput.New()
	in.Placeholder = "name@example.com"
	in.Width = 40

	m := chooserModel{list: l, input: in}
	if len(accounts) == 0 {
		m.typing = true
		m.input.Focus()
	}
	return m
}

func (m chooserModel) Init() tea.Cmd {
	if m.typing {
		return textinput.Blink
	}
	return nil
}

func (m chooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if key.Type == tea.KeyCtrlC {
			m.cancelled = true
			return m, tea.Quit
		}
		if m.typing {
			return m.updateInput(key)
		}
		if m.list.FilterState() != list.Filtering {
			switch key.Type {
			case tea.KeyEsc:
				m.cancelled = true
				return m, tea.Quit
			case tea.KeyEnter:
				item, ok := m.list.SelectedItem().(accountItem)
				if !ok {
					return m, nil
				}
				if item.other {
					m.typing = true
					m.input.Focus()
					return m, textinput.Blink
				}
				m.chosen = item.name
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	if m.typing {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m chooserModel) updateInput(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		if len(m.list.Items()) > 1 {
			m.typing = false
			m.err = ""
			m.input.Blur()
			return m, nil
		}
		m.cancelled = true
		return m, tea.Quit
	case tea.KeyEnter:
		name := strings.TrimSpace(m.input.Value())
		if !strings.Contains(name, "@") {
			m.err = "Enter a full Google account address"
			return m, nil
		}
		m.chosen = name
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m chooserModel) View() string {
	if m.chosen != "" || m.cancelled {
		return ""
	}
	if !m.typing {
		return m.list.View() + "\n" + DimStyle.Render("enter to choose, esc to cancel") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Google account"))
	sb.WriteString("\n\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n")
	}
	sb.WriteString(DimStyle.Render("enter to confirm, esc to go back"))
	sb.WriteString("\n")
	return sb.String()
}

// ListChooser implements account.Chooser with a list of known accounts and
// a free-form entry.
type ListChooser struct {
	Accounts []string
	// Current is marked in the list.
	Current  string
	Terminal *Terminal
}

// Choose implements account.Chooser. Esc or Ctrl-C cancels. On a
// non-interactive terminal a single known account is chosen without asking.
func (c *ListChooser) Choose(ctx context.Context, accountType string) *account.Future[account.Choice] {
	if !c.Terminal.Interactive() {
		if len(c.Accounts) == 1 {
			return account.Resolved(account.Choice{Account: c.Accounts[0]}, nil)
		}
		return account.Resolved(account.Choice{}, account.ErrInteractionUnavailable)
	}

	return account.Async(func() (account.Choice, error) {
		var choice account.Choice
		err := c.Terminal.Suspend(func() error {
			final, err := c.Terminal.newProgram(newChooserModel(accountType, c.Accounts, c.Current)).Run()
			if err != nil {
				return fmt.Errorf("account chooser failed: %w", err)
			}
			m := final.(chooserModel)
			if m.cancelled || m.chosen == "" {
				return account.ErrCancelled
			}
			choice.Account = m.chosen
			return nil
		})
		if err == nil {
			err = ctx.Err()
		}
		return choice, err
	})
}
