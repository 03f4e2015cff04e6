package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempbox/internal/theme"
)

// AccountPaneWidth is the width of the saved-accounts pane, borders included.
const AccountPaneWidth = 34

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// AccountPane returns the inner size of the accounts pane.
func (l Layout) AccountPane() (width, height int) {
	return AccountPaneWidth - 2, max(l.ContentHeight()-2, 0)
}

// InboxPane returns the inner size of the inbox pane next to the
// accounts pane.
func (l Layout) InboxPane() (width, height int) {
	return max(l.Width-AccountPaneWidth-2, 0), max(l.ContentHeight()-2, 0)
}

// RenderHeader renders the top header bar with a title and refresh status.
func (l Layout) RenderHeader(title string, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(status)

	gap := max(l.Width-
		lipgloss.Width(titleRendered)-
		lipgloss.Width(statusRendered), 0)

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderStatusBar renders the bottom status bar. A non-empty notice
// replaces the key hints; isErr renders it in the error style.
func (l Layout) RenderStatusBar(hints, notice string, isErr bool) string {
	style := theme.StatusBarStyle
	text := hints
	if notice != "" {
		text = notice
		if isErr {
			style = theme.StatusErrorStyle
		}
	}

	rendered := style.Render(text)
	gap := max(l.Width-lipgloss.Width(rendered), 0)

	filler := style.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(style.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderPanes places the accounts pane left of the inbox pane. focusLeft
// selects which pane gets the focused border.
func (l Layout) RenderPanes(accounts, inbox string, focusLeft bool) string {
	left, right := theme.PaneStyle, theme.FocusedPaneStyle
	if focusLeft {
		left, right = theme.FocusedPaneStyle, theme.PaneStyle
	}

	aw, ah := l.AccountPane()
	iw, ih := l.InboxPane()
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		left.Width(aw).Height(ah).Render(accounts),
		right.Width(iw).Height(ih).Render(inbox),
	)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
