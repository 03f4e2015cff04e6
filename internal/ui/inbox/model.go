package inbox

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempbox/internal/keys"
	"github.com/nhle/tempbox/internal/mailtm"
	"github.com/nhle/tempbox/internal/theme"
)

// SelectedMessageMsg is sent when the user opens a message.
type SelectedMessageMsg struct {
	ID string
}

// DeleteMessageMsg asks the parent to delete a message.
type DeleteMessageMsg struct {
	ID string
}

// ExportMessageMsg asks the parent to save a message to a file.
type ExportMessageMsg struct {
	ID string
}

// Model is the message list pane.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	spinner     spinner.Model
	all         []mailtm.MessageSummary
	fresh       map[string]bool
	query       string
	searchMode  bool
	searchInput textinput.Model
	loading     bool
	address     string
	width       int
	height      int
}

// New creates the inbox pane.
func New(k *keys.KeyMap, width, height int) Model {
	fresh := make(map[string]bool)
	l := list.New([]list.Item{}, ItemDelegate{fresh: fresh}, width, height-2)
	l.Title = "Inbox"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search subject or sender..."
	si.Prompt = "/ "
	si.Width = width - 4

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		list:        l,
		keys:        k,
		spinner:     sp,
		fresh:       fresh,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Update handles messages for the inbox pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = m.searchInput.Value()
		return m, m.apply()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		return m, m.apply()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		return m, m.emit(func(id string) tea.Msg { return SelectedMessageMsg{ID: id} })

	case key.Matches(msg, m.keys.Delete):
		return m, m.emit(func(id string) tea.Msg { return DeleteMessageMsg{ID: id} })

	case key.Matches(msg, m.keys.Export):
		return m, m.emit(func(id string) tea.Msg { return ExportMessageMsg{ID: id} })

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// emit returns a command producing build(selected id), or nil when the
// list is empty.
func (m Model) emit(build func(id string) tea.Msg) tea.Cmd {
	id, ok := m.SelectedID()
	if !ok {
		return nil
	}
	return func() tea.Msg { return build(id) }
}

// SelectedID returns the canonical id of the highlighted message.
func (m Model) SelectedID() (string, bool) {
	it, ok := m.list.SelectedItem().(MessageItem)
	if !ok {
		return "", false
	}
	return it.Msg.ID, true
}

// SetMessages replaces the listing. fresh marks ids that just arrived.
func (m *Model) SetMessages(address string, msgs []mailtm.MessageSummary, fresh []mailtm.MessageSummary) tea.Cmd {
	if address != m.address {
		m.query = ""
		m.searchInput.Reset()
	}
	m.address = address
	m.all = msgs
	m.loading = false

	clear(m.fresh)
	for _, f := range fresh {
		m.fresh[f.ID] = true
	}
	return m.apply()
}

// Remove drops a message from the listing after a delete.
func (m *Model) Remove(id string) tea.Cmd {
	kept := make([]mailtm.MessageSummary, 0, len(m.all))
	for _, msg := range m.all {
		if msg.ID != id {
			kept = append(kept, msg)
		}
	}
	m.all = kept
	delete(m.fresh, id)
	return m.apply()
}

// MarkSeen flags a message as read in the listing.
func (m *Model) MarkSeen(id string) tea.Cmd {
	for i := range m.all {
		if m.all[i].ID == id {
			m.all[i].Seen = true
		}
	}
	return m.apply()
}

// Clear empties the pane, e.g. after the active account was removed.
func (m *Model) Clear() tea.Cmd {
	m.address = ""
	m.all = nil
	m.query = ""
	clear(m.fresh)
	return m.list.SetItems(nil)
}

// SetLoading shows the spinner until the next SetMessages.
func (m *Model) SetLoading(loading bool) tea.Cmd {
	m.loading = loading
	if loading {
		return m.spinner.Tick
	}
	return nil
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Query returns the active search filter.
func (m Model) Query() string {
	return m.query
}

// Len returns the number of visible messages.
func (m Model) Len() int {
	return len(m.list.Items())
}

// apply filters the listing with the current query and updates the list.
func (m *Model) apply() tea.Cmd {
	visible := m.all
	if m.query != "" {
		visible = mailtm.FilterMessages(m.all, m.query)
	}

	items := make([]list.Item, len(visible))
	for i, msg := range visible {
		items[i] = MessageItem{Msg: msg}
	}
	return m.list.SetItems(items)
}

// View renders the inbox pane.
func (m Model) View() string {
	body := m.list.View()
	if len(m.list.Items()) == 0 {
		body = m.renderEmptyState()
	}

	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, body)
	}

	return body
}

// renderEmptyState shows guidance text when nothing is listed.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return style.Render(m.spinner.View() + " Loading messages...")
	case m.address == "":
		return style.Render("No active account.\n\nPress n to create one or pick a saved account.")
	case m.query != "":
		return style.Render("No matching messages.\nPress / then esc to clear the search.")
	default:
		return style.Render("No messages yet.\n\nPress r to refresh or a for auto-refresh.")
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
