package accounts

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempbox/internal/keys"
	"github.com/nhle/tempbox/internal/model"
	"github.com/nhle/tempbox/internal/theme"
)

// AccountsLoadedMsg carries the saved accounts from the store.
type AccountsLoadedMsg struct {
	Accounts []model.SavedAccount
	Err      error
}

// SelectedAccountMsg asks the parent to log into an account.
type SelectedAccountMsg struct {
	Account model.SavedAccount
}

// RemoveAccountMsg asks the parent to forget an account.
type RemoveAccountMsg struct {
	Email string
}

// item wraps a saved account for bubbles/list.
type item struct {
	acct model.SavedAccount
}

func (i item) FilterValue() string { return i.acct.Email }

// delegate renders one account per line, marking the active one.
type delegate struct {
	active *string
}

func (d delegate) Height() int { return 1 }

func (d delegate) Spacing() int { return 0 }

func (d delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d delegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}

	label := it.acct.Email
	if d.active != nil && *d.active == it.acct.Email {
		label = theme.ActiveAccountStyle.Render("● " + label)
	}

	if index == m.Index() {
		label = theme.SelectedItemStyle.Render(label)
	} else {
		label = theme.ListItemStyle.Render(label)
	}
	fmt.Fprint(w, label)
}

// Model is the saved-accounts pane.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	active *string
	width  int
	height int
}

// New creates the accounts pane.
func New(k *keys.KeyMap, width, height int) Model {
	active := new(string)
	l := list.New([]list.Item{}, delegate{active: active}, width, height)
	l.Title = "Accounts"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		active: active,
		width:  width,
		height: height,
	}
}

// Update handles messages for the accounts pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case AccountsLoadedMsg:
		items := make([]list.Item, len(msg.Accounts))
		for i, a := range msg.Accounts {
			items[i] = item{acct: a}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Select):
			if acct, ok := m.Selected(); ok {
				return m, func() tea.Msg { return SelectedAccountMsg{Account: acct} }
			}
			return m, nil

		case key.Matches(msg, m.keys.RemoveAccount):
			if acct, ok := m.Selected(); ok {
				return m, func() tea.Msg { return RemoveAccountMsg{Email: acct.Email} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Selected returns the highlighted account.
func (m Model) Selected() (model.SavedAccount, bool) {
	it, ok := m.list.SelectedItem().(item)
	if !ok {
		return model.SavedAccount{}, false
	}
	return it.acct, true
}

// Len returns the number of saved accounts.
func (m Model) Len() int {
	return len(m.list.Items())
}

// SetActive marks email as the logged-in account.
func (m *Model) SetActive(email string) {
	*m.active = email
}

// View renders the accounts pane.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Foreground(theme.ColorGray).
			Render("No saved accounts.\n\nPress n to create one.")
	}
	return m.list.View()
}

// SetSize updates the pane dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
