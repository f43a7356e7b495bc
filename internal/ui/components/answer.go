package components

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/timesgrid/internal/ui/theme"
)

// AnswerInput is the focused field a product is typed into. Keys that are
// not digits are dropped. After Mark it shows a check or a cross.
type AnswerInput struct {
	field  textinput.Model
	marked bool
	right  bool
}

// NewAnswerInput accepts at most maxDigits digits.
func NewAnswerInput(maxDigits int) AnswerInput {
	f := textinput.New()
	f.Placeholder = "?"
	f.CharLimit = maxDigits
	f.Focus()
	return AnswerInput{field: f}
}

func (a AnswerInput) Init() tea.Cmd {
	return a.field.Focus()
}

func (a AnswerInput) Update(msg tea.Msg) (AnswerInput, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if k := key.String(); len(k) == 1 && (k[0] < '0' || k[0] > '9') {
			return a, nil
		}
	}
	var cmd tea.Cmd
	a.field, cmd = a.field.Update(msg)
	return a, cmd
}

func (a AnswerInput) View() string {
	v := a.field.View()
	if !a.marked {
		return v
	}
	if a.right {
		return v + " " + lipgloss.NewStyle().Foreground(theme.Success).Render("✓")
	}
	return v + " " + lipgloss.NewStyle().Foreground(theme.Error).Render("✗")
}

// Value is the raw text typed so far.
func (a AnswerInput) Value() string {
	return a.field.Value()
}

// Mark records whether the submitted answer was right.
func (a *AnswerInput) Mark(right bool) {
	a.marked = true
	a.right = right
}

// Reset clears the field for the next problem.
func (a *AnswerInput) Reset() {
	a.field.Reset()
	a.marked = false
}
