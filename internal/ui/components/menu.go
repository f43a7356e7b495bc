package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/timesgrid/internal/ui/theme"
)

// MenuItem is one menu entry. Hint is shown dimmed after the label.
// Disabled items are drawn but never selected.
type MenuItem struct {
	Label    string
	Hint     string
	Action   func() tea.Cmd
	Disabled bool
}

// Menu is a vertical list navigated with the arrow keys or j/k.
type Menu struct {
	Items    []MenuItem
	Selected int
}

// NewMenu selects the first enabled item.
func NewMenu(items []MenuItem) Menu {
	m := Menu{Items: items, Selected: -1}
	m.move(1)
	if m.Selected < 0 {
		m.Selected = 0
	}
	return m
}

// move steps the selection in dir to the next enabled item. It stays put
// when there is none.
func (m *Menu) move(dir int) {
	for i := m.Selected + dir; i >= 0 && i < len(m.Items); i += dir {
		if !m.Items[i].Disabled {
			m.Selected = i
			return
		}
	}
}

func (m Menu) Update(msg tea.Msg) (Menu, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "enter":
		if m.Selected < 0 || m.Selected >= len(m.Items) {
			break
		}
		if it := m.Items[m.Selected]; !it.Disabled && it.Action != nil {
			return m, it.Action()
		}
	}
	return m, nil
}

func (m Menu) View() string {
	hint := lipgloss.NewStyle().Foreground(theme.TextDim)
	off := lipgloss.NewStyle().Foreground(theme.Border)

	lines := make([]string, len(m.Items))
	for i, it := range m.Items {
		switch {
		case it.Disabled:
			lines[i] = off.Render("    " + it.Label)
		case i == m.Selected:
			lines[i] = theme.Selected.Render("  ▸ " + it.Label)
		default:
			lines[i] = theme.Unselected.Render("    " + it.Label)
		}
		if it.Hint != "" {
			lines[i] += "  " + hint.Render(it.Hint)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
