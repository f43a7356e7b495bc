package home

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/timesgrid/internal/ui/theme"
)

// MascotVariant selects which mascot art to display.
type MascotVariant int

const (
	MascotIdle        MascotVariant = iota
	MascotCelebrating               // most of the working range mastered
	MascotAlert                     // an unfinished session is waiting
)

const mascotIdle = `┌─────┐
│ ◉ ◉ │
│  ▽  │
│ 7×8 │
└─────┘`

const mascotCelebrating = `┌─────┐
│ ★ ★ │
│  ▿  │
│ 7×8 │
└─╥═╥─┘
  ╚═╝`

const mascotAlert = `┌─────┐
│ ◉ ◉ │ !
│  ▽  │
│ 7×8 │
└─────┘`

// celebrateAt is the working-range mastery that makes the mascot cheer.
const celebrateAt = 80

func mascotFor(rangeMastery, activeSessions int) MascotVariant {
	switch {
	case activeSessions > 0:
		return MascotAlert
	case rangeMastery >= celebrateAt:
		return MascotCelebrating
	default:
		return MascotIdle
	}
}

// RenderMascot returns the mascot art for v.
func RenderMascot(v MascotVariant) string {
	art, fg := mascotIdle, theme.Primary
	switch v {
	case MascotCelebrating:
		art, fg = mascotCelebrating, theme.Success
	case MascotAlert:
		art, fg = mascotAlert, theme.Accent
	}
	return lipgloss.NewStyle().Foreground(fg).Render(art)
}
