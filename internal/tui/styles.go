package tui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	ColorAccent = lipgloss.Color("#A8D8EA")
	ColorFrame  = lipgloss.Color("#596E79")
	ColorFail   = lipgloss.Color("#FF6B6B")
	ColorPass   = lipgloss.Color("#4ECDC4")
	ColorWarn   = lipgloss.Color("#FFE66D")
	ColorMuted  = lipgloss.Color("#6c757d")
)

var (
	StyleTitle    = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	StyleSubtitle = lipgloss.NewStyle().Foreground(ColorFrame).Italic(true)
	StyleMuted    = lipgloss.NewStyle().Foreground(ColorMuted).Faint(true)

	// Job and finding counts.
	StylePass = lipgloss.NewStyle().Foreground(ColorPass).Bold(true)
	StyleFail = lipgloss.NewStyle().Foreground(ColorFail).Bold(true)
	StyleWarn = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)

	// StyleCard frames the end-of-run summary.
	StyleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorFrame).
			Padding(0, 1).
			Margin(0, 1)

	StyleTableHeader = lipgloss.NewStyle().Foreground(ColorFrame).Bold(true)
	StyleTableRow    = lipgloss.NewStyle()
)
