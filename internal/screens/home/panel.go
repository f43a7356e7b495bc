package home

import (
	"fmt"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/timesgrid/internal/ui/theme"
)

const titleFull = `▀█▀ █ █▀▄▀█ █▀▀ █▀   █▀▀ █▀█ █ █▀▄
 █  █ █ ▀ █ ██▄ ▄█   █▄█ █▀▄ █ █▄▀`

const titleCompact = "T I M E S · G R I D"

// contentWidth is the shared inner width of every home section.
func contentWidth(frameWidth int) int {
	return min(max(frameWidth-6, 20), 60)
}

func renderTitle(cw int, compact bool) string {
	text := titleFull
	if compact {
		text = titleCompact
	}
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Foreground(theme.Primary).
		Bold(true).
		Render(text)
}

// renderStatsBar shows mastered cells, working-range mastery and the
// journey stage.
func renderStatsBar(mastered, rangeMastery int, guardrail, stage string, cw int) string {
	masteredStyle := lipgloss.NewStyle().Foreground(theme.Success).Bold(true)
	rangeStyle := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)

	stats := fmt.Sprintf("%s  %s\n%s",
		masteredStyle.Render(fmt.Sprintf("★ %d MASTERED", mastered)),
		rangeStyle.Render(fmt.Sprintf("◆ %d%% OF %s", rangeMastery, guardrail)),
		dim.Render(stage))

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Secondary).
		Width(cw-2).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(stats)
}

func renderMascotBox(v MascotVariant, cw int) string {
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(RenderMascot(v))
}

// renderFrame wraps content in a double border centered in the area.
func renderFrame(content string, width, height int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Primary).
		Width(width-2).
		Height(height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}
