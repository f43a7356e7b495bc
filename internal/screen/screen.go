package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/timesgrid/internal/ui/layout"
)

// Screen is one view on the router stack.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the content area, excluding header and footer.
	View(width, height int) string

	Title() string
}

// KeyHintProvider lets a screen replace the default footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// Revealer is implemented by screens that reload their data when they
// become active again after the screen above them is popped.
type Revealer interface {
	Reveal() tea.Cmd
}

// EscapeHandler is implemented by screens that handle Esc themselves
// instead of letting the app pop them.
type EscapeHandler interface {
	HandlesEscape() bool
}
