// Package grid renders a student's 12×12 mastery grid with a detail panel
// for the selected cell.
package grid

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/router"
	"github.com/abhisek/timesgrid/internal/screen"
	"github.com/abhisek/timesgrid/internal/ui/layout"
	"github.com/abhisek/timesgrid/internal/ui/theme"
)

const cellWidth = 5

// GridScreen shows every cell colored by its derived state.
type GridScreen struct {
	progress *mastery.Progress
	row, col int
}

var _ screen.Screen = (*GridScreen)(nil)
var _ screen.KeyHintProvider = (*GridScreen)(nil)

func New(progress *mastery.Progress) *GridScreen {
	if progress == nil {
		progress = &mastery.Progress{Grid: mastery.NewGrid()}
	}
	return &GridScreen{progress: progress}
}

func (g *GridScreen) Init() tea.Cmd { return nil }

func (g *GridScreen) Title() string { return "Mastery Grid" }

func (g *GridScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "←↑↓→", Description: "Move"},
		{Key: "Esc", Description: "Back"},
	}
}

// Selected returns the fact under the cursor.
func (g *GridScreen) Selected() facts.Fact {
	return facts.New(g.row+1, g.col+1)
}

func (g *GridScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return g, nil
	}
	switch kmsg.String() {
	case "up", "k":
		g.row = max(g.row-1, 0)
	case "down", "j":
		g.row = min(g.row+1, facts.MaxFactor-1)
	case "left", "h":
		g.col = max(g.col-1, 0)
	case "right", "l":
		g.col = min(g.col+1, facts.MaxFactor-1)
	case "q":
		return g, func() tea.Msg { return router.PopScreenMsg{} }
	}
	return g, nil
}

func (g *GridScreen) View(width, height int) string {
	table := g.renderTable()
	side := lipgloss.JoinVertical(lipgloss.Left,
		g.renderSummary(),
		"",
		renderLegend(),
		"",
		g.renderDetail())

	body := lipgloss.JoinHorizontal(lipgloss.Top, table, "    ", side)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, "\n"+body)
}

func (g *GridScreen) renderTable() string {
	var b strings.Builder

	b.WriteString(theme.AxisLabel.Width(cellWidth).Align(lipgloss.Center).Render("×"))
	for n := 1; n <= facts.MaxFactor; n++ {
		b.WriteString(theme.AxisLabel.Width(cellWidth).Align(lipgloss.Center).Render(fmt.Sprint(n)))
	}
	b.WriteString("\n")

	for m := 1; m <= facts.MaxFactor; m++ {
		b.WriteString(theme.AxisLabel.Width(cellWidth).Align(lipgloss.Center).Render(fmt.Sprint(m)))
		for n := 1; n <= facts.MaxFactor; n++ {
			c := g.progress.Grid.Cell(facts.New(m, n))
			style := cellStyle(c).Width(cellWidth).Align(lipgloss.Center)
			if m-1 == g.row && n-1 == g.col {
				style = style.Underline(true).Reverse(true)
			}
			b.WriteString(style.Render(fmt.Sprint(m * n)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func cellStyle(c mastery.Cell) lipgloss.Style {
	if c.IsLocked {
		return theme.CellLocked
	}
	switch mastery.DeriveState(c) {
	case mastery.StateMastered:
		return theme.CellMastered
	case mastery.StateRecentlyFailed:
		return theme.CellRecentlyFailed
	default:
		return theme.CellNotMastered
	}
}

func (g *GridScreen) renderSummary() string {
	p := g.progress
	counts := mastery.Count(p.Grid)
	label := lipgloss.NewStyle().Foreground(theme.TextDim)
	value := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)

	lines := []string{
		label.Render("Working range  ") + value.Render(string(p.Guardrail)),
		label.Render("Range mastery  ") + value.Render(fmt.Sprintf("%d%%", mastery.GuardrailMastery(p.Grid, p.Guardrail))),
		label.Render("Overall        ") + value.Render(fmt.Sprintf("%d%%", mastery.OverallMastery(p.Grid))),
		label.Render("Mastered       ") + value.Render(fmt.Sprint(counts.Mastered)),
		label.Render("Needs work     ") + value.Render(fmt.Sprint(counts.RecentlyFailed)),
		label.Render("Locked         ") + value.Render(fmt.Sprint(counts.Locked)),
	}
	return strings.Join(lines, "\n")
}

func renderLegend() string {
	swatch := func(st lipgloss.Style, text string) string {
		return st.Render("  ") + " " + lipgloss.NewStyle().Foreground(theme.TextDim).Render(text)
	}
	return strings.Join([]string{
		swatch(theme.CellMastered, "mastered"),
		swatch(theme.CellRecentlyFailed, "missed last time"),
		swatch(theme.CellNotMastered, "not mastered yet"),
		theme.CellLocked.Render("··") + " " + lipgloss.NewStyle().Foreground(theme.TextDim).Render("locked"),
	}, "\n")
}

func (g *GridScreen) renderDetail() string {
	f := g.Selected()
	c := g.progress.Grid.Cell(f)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).
		Render(fmt.Sprintf("%s = %d", f, f.Product())))
	b.WriteString("\n")

	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	switch {
	case c.IsLocked:
		b.WriteString(dim.Render("Outside the working range"))
		return b.String()
	case c.Attempts == 0:
		b.WriteString(dim.Render("Not tried yet"))
		return b.String()
	}

	b.WriteString(dim.Render(fmt.Sprintf("Streak   %d/%d", min(c.ConsecutiveCorrect, mastery.Threshold), mastery.Threshold)))
	b.WriteString("\n")
	b.WriteString(dim.Render(fmt.Sprintf("Attempts %d", c.Attempts)))
	b.WriteString("\n")
	b.WriteString(dim.Render(fmt.Sprintf("Average  %.1fs", c.AverageTimeSeconds)))
	if c.LastAttemptSpeed != "" {
		b.WriteString("\n")
		b.WriteString(dim.Render("Last     ") + string(c.LastAttemptSpeed))
	}
	if c.MasteryAchievedAt != nil {
		b.WriteString("\n")
		b.WriteString(dim.Render("Mastered " + c.MasteryAchievedAt.Format("Jan 2")))
	}
	return b.String()
}
