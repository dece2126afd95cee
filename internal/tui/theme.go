package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/carmatch/flowadmin/internal/flowview"
)

// Adaptive colors stay readable on light and dark terminal backgrounds.
var (
	textColor    = lipgloss.AdaptiveColor{Light: "#1f2933", Dark: "#f5f7fa"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#616e7c", Dark: "#cbd2d9"}
	accentColor  = lipgloss.AdaptiveColor{Light: "#0b69a3", Dark: "#4098d7"}
	successColor = lipgloss.AdaptiveColor{Light: "#146c43", Dark: "#3ebd93"}
	dangerColor  = lipgloss.AdaptiveColor{Light: "#a32138", Dark: "#e12d39"}
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(textColor)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	noteStyle  = lipgloss.NewStyle().Foreground(accentColor)
)

func minimalTableStyles() table.Styles {
	s := table.DefaultStyles()
	// Plain header/cells with a little horizontal breathing room.
	s.Header = lipgloss.NewStyle().Foreground(mutedColor).Faint(true).Padding(0, 1)
	s.Cell = lipgloss.NewStyle().Padding(0, 1)
	// Selected row: typographic emphasis rather than color blocks.
	s.Selected = lipgloss.NewStyle().Bold(true).Underline(true)
	return s
}

func bannerStyle(kind flowview.StatusKind) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch kind {
	case flowview.StatusSuccess:
		return s.Foreground(successColor)
	case flowview.StatusDanger:
		return s.Foreground(dangerColor)
	default:
		return s.Bold(false).Foreground(mutedColor)
	}
}
