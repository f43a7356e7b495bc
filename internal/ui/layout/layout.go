// Package layout frames every screen between a header and a footer bar.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/timesgrid/internal/ui/theme"
)

// Terminal sizes below the minimum get a resize prompt instead of a screen.
// Below the compact thresholds screens drop decoration.
const (
	MinWidth  = 80
	MinHeight = 24

	CompactWidth  = 100
	CompactHeight = 30

	// HeaderHeight and FooterHeight are the rendered bar heights, borders
	// included.
	HeaderHeight = 3
	FooterHeight = 3
)

// KeyHint is one "key description" pair in the footer.
type KeyHint struct {
	Key         string
	Description string
}

func IsCompactWidth(width int) bool   { return width < CompactWidth }
func IsCompactHeight(height int) bool { return height < CompactHeight }

func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// RenderMinSizeMessage asks for a bigger terminal.
func RenderMinSizeMessage(width, height int) string {
	text := fmt.Sprintf("The grid needs at least %d x %d.\n\nThis terminal is %d x %d.\nMake the window bigger to keep going.",
		MinWidth, MinHeight, width, height)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.Text).Align(lipgloss.Center).Render(text))
}

func bar(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Background(theme.BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)
}

// RenderHeader shows the app name on the left, the screen title centered
// and the student with their working-range mastery on the right.
func RenderHeader(title, student string, mastery, width int) string {
	left := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("  Times Grid")
	mid := lipgloss.NewStyle().Foreground(theme.Text).Render(title)

	var right string
	if student != "" {
		right = lipgloss.NewStyle().Foreground(theme.TextDim).Render(student) + "   " +
			lipgloss.NewStyle().Foreground(theme.Accent).Render(fmt.Sprintf("%d%% mastered", mastery))
	}

	inner := max(width-4, 0)
	lw, mw, rw := lipgloss.Width(left), lipgloss.Width(mid), lipgloss.Width(right)
	gapL := max((inner-mw)/2-lw, 1)
	gapR := max(inner-lw-gapL-mw-rw, 1)

	return bar(width).Render(left + strings.Repeat(" ", gapL) + mid + strings.Repeat(" ", gapR) + right)
}

// RenderFooter lists the key hints of the active screen.
func RenderFooter(hints []KeyHint, width int) string {
	key := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	desc := lipgloss.NewStyle().Foreground(theme.TextDim)

	var b strings.Builder
	b.WriteString("  ")
	for i, h := range hints {
		if i > 0 {
			b.WriteString("   ")
		}
		b.WriteString(key.Render(h.Key) + " " + desc.Render(h.Description))
	}
	return bar(width).Render(b.String())
}

// RenderFrame stacks header, content and footer, padding the content to
// fill the space between the bars.
func RenderFrame(header, content, footer string, width, height int) string {
	h := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	body := lipgloss.NewStyle().Width(width).Height(h).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
