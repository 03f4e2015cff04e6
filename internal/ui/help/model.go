package help

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempbox/internal/keys"
	"github.com/nhle/tempbox/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	footer string
	width  int
	height int
}

// New creates a new help view model. refreshSec is shown next to the
// auto-refresh binding.
func New(k *keys.KeyMap, refreshSec int, width, height int) Model {
	h := help.New()
	h.Width = width
	h.ShowAll = true
	return Model{
		keys: k,
		help: h,
		footer: fmt.Sprintf(
			"Auto-refresh polls every %ds. New messages are starred until the next refresh.",
			refreshSec,
		),
		width:  width,
		height: height,
	}
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("TempBox Keys")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.help.View(m.keys),
		"",
		theme.HelpStyle.Render(m.footer),
	)

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
