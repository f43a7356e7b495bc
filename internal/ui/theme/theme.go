package theme

import (
	"charm.land/lipgloss/v2"
)

// Palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgDark    = lipgloss.Color("#0F172A") // Deep Navy
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
)

var Hint = lipgloss.NewStyle().
	Foreground(TextDim).
	Italic(true)

// States
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Background(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Background(Border)
)

// Grid cells, one per derived cell state.
var (
	CellMastered = lipgloss.NewStyle().
			Foreground(BgDark).
			Background(Success).
			Bold(true)

	CellRecentlyFailed = lipgloss.NewStyle().
				Foreground(Text).
				Background(Error)

	CellNotMastered = lipgloss.NewStyle().
			Foreground(Text).
			Background(BgCard)

	CellLocked = lipgloss.NewStyle().
			Foreground(Border)

	AxisLabel = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)
)

// Speed labels.
var (
	SpeedFast   = lipgloss.NewStyle().Foreground(Success)
	SpeedMedium = lipgloss.NewStyle().Foreground(Accent)
	SpeedSlow   = lipgloss.NewStyle().Foreground(Error)
)
