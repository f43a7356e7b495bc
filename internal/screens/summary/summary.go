package summary

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/timesgrid/internal/router"
	"github.com/abhisek/timesgrid/internal/screen"
	"github.com/abhisek/timesgrid/internal/session"
	"github.com/abhisek/timesgrid/internal/ui/layout"
	"github.com/abhisek/timesgrid/internal/ui/theme"
)

// SummaryScreen displays the outcome of a completed session.
type SummaryScreen struct {
	summary *session.Summary
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

func New(summary *session.Summary) *SummaryScreen {
	return &SummaryScreen{summary: summary}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Session Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Continue"},
		{Key: "Esc", Description: "Home"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	sum := s.summary
	if sum == nil {
		return ""
	}
	center := func() lipgloss.Style {
		return lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	}

	var b strings.Builder

	title := "Practice complete!"
	if sum.Type == session.TypePlacement {
		title = "Placement test complete!"
	}
	b.WriteString(center().Foreground(theme.Primary).Bold(true).Render(title))
	b.WriteString("\n\n")

	mins := int(sum.Duration.Minutes())
	secs := int(sum.Duration.Seconds()) % 60
	b.WriteString(center().Foreground(theme.TextDim).Render(fmt.Sprintf("Duration: %d:%02d", mins, secs)))
	b.WriteString("\n\n")

	c := sum.Counters
	b.WriteString(center().Foreground(theme.Text).Render(fmt.Sprintf(
		"Answered: %d of %d        Correct: %d        Accuracy: %d%%",
		c.ItemsAttempted, sum.TotalItems, c.ItemsCorrect, c.Accuracy)))
	b.WriteString("\n")

	speeds := fmt.Sprintf("%s %d   %s %d   %s %d   avg %.1fs",
		theme.SpeedFast.Render("fast"), c.FastAnswers,
		theme.SpeedMedium.Render("medium"), c.MediumAnswers,
		theme.SpeedSlow.Render("slow"), c.SlowAnswers,
		c.AverageTimePerQuestion)
	b.WriteString(center().Render(speeds))
	b.WriteString("\n\n")

	if len(sum.NewlyMastered) > 0 {
		divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", min(width-8, 60)))
		b.WriteString(center().Foreground(theme.TextDim).Render("Newly mastered"))
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
		b.WriteString("\n\n")

		names := make([]string, len(sum.NewlyMastered))
		for i, f := range sum.NewlyMastered {
			names[i] = f.String()
		}
		b.WriteString(center().Foreground(theme.Success).Render(strings.Join(names, "    ")))
		b.WriteString("\n\n")
	}

	if sum.Type == session.TypePlacement {
		b.WriteString(theme.Hint.Width(width).Align(lipgloss.Center).Render("Placement results do not change your grid. Practice is now open."))
		b.WriteString("\n")
	}

	if !sum.Persisted {
		b.WriteString("\n")
		b.WriteString(center().Foreground(theme.Error).Render("Some results could not be saved."))
	}

	return b.String()
}
