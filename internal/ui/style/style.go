// Package style holds the colors, icons and text styles shared by stratum's terminal output.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Teal   = lipgloss.Color("#0EA5A4")
	Slate  = lipgloss.Color("#667085")
	Mist   = lipgloss.Color("#98A2B3")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Dot     = "·"
)

// Text styles.
var (
	Heading = lipgloss.NewStyle().Bold(true).Foreground(Teal)
	Label   = lipgloss.NewStyle().Foreground(Slate).Width(22)
	Value   = lipgloss.NewStyle().Bold(true)
	Good    = lipgloss.NewStyle().Foreground(Green)
	Bad     = lipgloss.NewStyle().Foreground(Red)
	Muted   = lipgloss.NewStyle().Foreground(Mist)
)
