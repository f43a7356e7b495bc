package session

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/ui/components"
	"github.com/abhisek/timesgrid/internal/ui/theme"
)

func centered(width int) lipgloss.Style {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
}

// renderQuestion renders the current problem with the answer input.
func (s *SessionScreen) renderQuestion(width int) string {
	st := s.s.Status()
	if st.Current == nil {
		return renderLoading(width, "Wrapping up...")
	}

	var b strings.Builder

	bar := components.ProgressBar{
		Label:     fmt.Sprintf("  Problem %d of %d", st.Index+1, st.Total),
		Done:      st.Index,
		Total:     st.Total,
		Width:     min(width-4, 70),
		ShowCount: true,
	}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
	b.WriteString("\n")

	stats := fmt.Sprintf("%s %d correct   %s %ds",
		lipgloss.NewStyle().Foreground(theme.Success).Render("*"),
		st.Counters.ItemsCorrect,
		lipgloss.NewStyle().Foreground(theme.Accent).Render("T"),
		int(s.elapsed.Seconds()))
	b.WriteString(centered(width).Foreground(theme.TextDim).Render(stats))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n\n")

	b.WriteString(centered(width).Foreground(theme.Text).Bold(true).Render(st.Current.Text()))
	b.WriteString("\n\n")
	b.WriteString(centered(width).Render("Answer: " + s.input.View()))

	if s.hint != "" {
		b.WriteString("\n\n")
		b.WriteString(theme.Hint.Width(width).Align(lipgloss.Center).Render(s.hint))
	}
	return b.String()
}

// renderFeedback shows whether the answer was right, how fast it was, and
// the cell's new streak.
func (s *SessionScreen) renderFeedback(width int) string {
	res := s.last
	if res == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n")

	if res.Correct {
		b.WriteString(theme.Correct.Width(width).Align(lipgloss.Center).Render("Correct!"))
	} else {
		b.WriteString(theme.Incorrect.Width(width).Align(lipgloss.Center).Render("Not quite"))
		b.WriteString("\n")
		b.WriteString(centered(width).Foreground(theme.TextDim).Render(
			fmt.Sprintf("%s = %d", res.Cell.Fact, res.CorrectAnswer)))
	}
	b.WriteString("\n\n")

	if sp := res.Cell.LastAttemptSpeed; sp != "" {
		b.WriteString(centered(width).Render(speedStyle(sp).Render(string(sp))))
		b.WriteString("\n")
	}

	streak := fmt.Sprintf("Streak %d/%d", min(res.Cell.ConsecutiveCorrect, mastery.Threshold), mastery.Threshold)
	if res.Cell.Mastered() {
		streak = "Mastered!"
	}
	b.WriteString(centered(width).Foreground(theme.Secondary).Render(streak))
	b.WriteString("\n\n")

	b.WriteString(centered(width).Foreground(theme.TextDim).Render("Press any key to continue..."))
	return b.String()
}

func speedStyle(sp facts.Speed) lipgloss.Style {
	switch sp {
	case facts.SpeedFast:
		return theme.SpeedFast
	case facts.SpeedMedium:
		return theme.SpeedMedium
	default:
		return theme.SpeedSlow
	}
}

func renderQuitConfirm(width int) string {
	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(centered(width).Foreground(theme.Text).Bold(true).Render("Stop for now?"))
	b.WriteString("\n")
	b.WriteString(centered(width).Foreground(theme.TextDim).Render("You can pick up where you left off from the home screen."))
	b.WriteString("\n\n")
	b.WriteString(centered(width).Foreground(theme.Success).Render("[Y] Yes, stop"))
	b.WriteString("\n")
	b.WriteString(centered(width).Foreground(theme.Primary).Render("[N] No, keep going"))
	return b.String()
}

func renderLoading(width int, text string) string {
	return centered(width).Foreground(theme.TextDim).Render("\n\n\n  " + text)
}

func renderError(width int, errMsg string) string {
	return centered(width).Foreground(theme.Error).
		Render(fmt.Sprintf("\n\n\n  Error: %s\n\n  Press any key to go back.", errMsg))
}
