package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/timesgrid/internal/ui/theme"
)

// ProgressBar is a horizontal bar with an optional label and count.
type ProgressBar struct {
	Label string
	Done  int
	Total int
	Width int

	// ShowCount appends "done/total" instead of a percentage.
	ShowCount bool
}

// Fraction returns Done/Total clamped to [0, 1].
func (p ProgressBar) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Done) / float64(p.Total)
	return max(0, min(1, f))
}

func (p ProgressBar) View() string {
	var out string
	if p.Label != "" {
		out = lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	suffix := fmt.Sprintf("  %d%%", int(p.Fraction()*100))
	if p.ShowCount {
		suffix = fmt.Sprintf("  %d/%d", p.Done, p.Total)
	}

	barWidth := p.Width - lipgloss.Width(out) - len(suffix)
	if barWidth < 4 {
		barWidth = 4
	}
	filled := int(float64(barWidth) * p.Fraction())

	out += theme.ProgressFilled.Render(strings.Repeat(" ", filled))
	out += theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled))
	out += lipgloss.NewStyle().Foreground(theme.TextDim).Render(suffix)
	return out
}
