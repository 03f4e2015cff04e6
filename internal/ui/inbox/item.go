package inbox

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempbox/internal/mailtm"
	"github.com/nhle/tempbox/internal/theme"
)

// MessageItem wraps a message summary so it can be used in a bubbles/list.
type MessageItem struct {
	Msg mailtm.MessageSummary
}

// FilterValue returns the string used for filtering.
func (i MessageItem) FilterValue() string { return i.Msg.Subject + " " + i.Msg.From.Address }

// ItemDelegate implements list.ItemDelegate for message rows.
type ItemDelegate struct {
	// fresh holds ids that arrived during the last refresh. Shared by
	// reference with the inbox Model.
	fresh map[string]bool
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single message line: unread marker, sender, subject,
// attachment badge and age.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(MessageItem)
	if !ok {
		return
	}
	msg := it.Msg

	marker := " "
	if !msg.Seen {
		marker = theme.UnreadBadgeStyle.Render("●")
	}
	if d.fresh[msg.ID] {
		marker = theme.UnreadBadgeStyle.Render("★")
	}

	from := lipgloss.NewStyle().
		Width(24).
		MaxWidth(24).
		Render(orNA(msg.From.Address))

	subject := orNA(msg.Subject)
	if msg.HasAttachments {
		subject += theme.AttachmentBadgeStyle.Render(" [att]")
	}

	age := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(msg.CreatedAt))

	line := fmt.Sprintf("%s %s %s  %s", marker, from, subject, age)
	if msg.Seen {
		line = theme.DimmedStyle.Render(line)
	}

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly age for an RFC 3339 timestamp.
// Unparsable values are shown as given.
func relativeTime(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
