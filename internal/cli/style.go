package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempbox/internal/theme"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorCyan).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(theme.ColorCyan).
			Padding(0, 12)

	numberStyle  = lipgloss.NewStyle().Foreground(theme.ColorGreen)
	infoStyle    = lipgloss.NewStyle().Foreground(theme.ColorBlue)
	successStyle = lipgloss.NewStyle().Foreground(theme.ColorGreen)
	errorStyle   = lipgloss.NewStyle().Foreground(theme.ColorRed)
	accountStyle = lipgloss.NewStyle().Foreground(theme.ColorYellow)
	headerCell   = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Padding(0, 1)
	bodyCell     = lipgloss.NewStyle().Padding(0, 1)
)
