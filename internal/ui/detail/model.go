package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempbox/internal/keys"
	"github.com/nhle/tempbox/internal/mailtm"
	"github.com/nhle/tempbox/internal/theme"
)

// BackMsg signals the parent to navigate back to the inbox.
type BackMsg struct{}

// DetailLoadedMsg carries a fetched message. Headers come from the raw
// source and may be empty when it could not be fetched.
type DetailLoadedMsg struct {
	Detail  *mailtm.MessageDetail
	Headers []mailtm.Header
	Err     error
}

// Action names carried by ActionMsg.
const (
	ActionDelete = "delete"
	ActionExport = "export"
)

// ActionMsg asks the parent to act on the open message.
type ActionMsg struct {
	Action string
	ID     string
}

// shownHeaders are the raw headers listed above the body, in order.
var shownHeaders = []string{"Message-Id", "Reply-To", "Return-Path", "Content-Type"}

// Model is the message detail view component.
type Model struct {
	msg      *mailtm.MessageDetail
	headers  []mailtm.Header
	err      error
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DetailLoadedMsg:
		m.msg = msg.Detail
		m.headers = msg.Headers
		m.err = msg.Err
		m.loading = false
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.Delete):
			return m, m.action(ActionDelete)

		case key.Matches(msg, m.keys.Export):
			return m, m.action(ActionExport)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(name string) tea.Cmd {
	if m.msg == nil {
		return nil
	}
	id := m.msg.ID
	return func() tea.Msg {
		return ActionMsg{Action: name, ID: id}
	}
}

// View renders the detail view.
func (m Model) View() string {
	centered := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return centered.Render("Loading message...")
	case m.err != nil:
		return centered.Foreground(theme.ColorRed).Render("Failed to load message:\n" + m.err.Error())
	case m.msg == nil:
		return centered.Render("No message selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.msg == nil {
		return ""
	}

	d := m.msg
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(orNA(d.Subject)))
	sections = append(sections, "")

	sections = append(sections, meta("From:", formatAddress(d.From)))
	if len(d.To) > 0 {
		sections = append(sections, meta("To:", formatAddresses(d.To)))
	}
	if len(d.Cc) > 0 {
		sections = append(sections, meta("Cc:", formatAddresses(d.Cc)))
	}
	sections = append(sections, meta("Date:", orNA(d.CreatedAt)))
	sections = append(sections, meta("ID:", d.ID))

	for _, name := range shownHeaders {
		for _, h := range m.headers {
			if strings.EqualFold(h.Key, name) {
				sections = append(sections, meta(h.Key+":", h.Value))
				break
			}
		}
	}

	if len(d.Attachments) > 0 {
		sections = append(sections, "")
		sections = append(sections, theme.AttachmentBadgeStyle.Render("Attachments"))
		for _, a := range d.Attachments {
			sections = append(sections, fmt.Sprintf(
				"  %s  %s",
				a.Filename,
				theme.MetaLabelStyle.Render(fmt.Sprintf("%s, %d bytes", a.ContentType, a.Size)),
			))
		}
	}

	sections = append(sections, "")
	sections = append(sections, lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(m.width-2, 10))))
	sections = append(sections, "")

	body := lipgloss.NewStyle().Width(max(m.width-2, 10)).Render(mailtm.Body(d))
	sections = append(sections, body)

	return strings.Join(sections, "\n")
}

func meta(label, value string) string {
	return theme.MetaLabelStyle.Width(13).Render(label) + " " +
		theme.MetaValueStyle.Render(value)
}

func formatAddress(a mailtm.Address) string {
	if a.Address == "" {
		return "N/A"
	}
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}

func formatAddresses(as []mailtm.Address) string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = formatAddress(a)
	}
	return strings.Join(parts, ", ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// SetLoading toggles the loading placeholder.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
	if loading {
		m.err = nil
	}
}

// CurrentID returns the id of the open message.
func (m Model) CurrentID() string {
	if m.msg == nil {
		return ""
	}
	return m.msg.ID
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.msg != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
