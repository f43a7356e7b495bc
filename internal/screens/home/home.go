package home

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/timesgrid/internal/journey"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/router"
	"github.com/abhisek/timesgrid/internal/screen"
	"github.com/abhisek/timesgrid/internal/screens/grid"
	sessionscreen "github.com/abhisek/timesgrid/internal/screens/session"
	sess "github.com/abhisek/timesgrid/internal/session"
	"github.com/abhisek/timesgrid/internal/store"
	"github.com/abhisek/timesgrid/internal/ui/components"
	"github.com/abhisek/timesgrid/internal/ui/layout"
	"github.com/abhisek/timesgrid/internal/ui/theme"
)

// Options wire the home screen to storage and the session engine.
type Options struct {
	Engine   *sess.Engine
	Journey  *journey.Resolver
	Progress store.ProgressRepo
	Student  sess.Student

	// ResumeID is resumed as soon as the first load finishes.
	ResumeID string
}

// LoadedMsg carries the student's state. The app also reads it to refresh
// the header.
type LoadedMsg struct {
	Progress *mastery.Progress
	State    journey.State
	Active   []store.ActiveSession
	Err      error
}

// HomeScreen is the main menu. Which sessions it offers follows the
// student's journey stage.
type HomeScreen struct {
	opts     Options
	loaded   bool
	progress *mastery.Progress
	state    journey.State
	active   []store.ActiveSession
	menu     components.Menu
	errMsg   string
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.Revealer = (*HomeScreen)(nil)

func New(opts Options) *HomeScreen {
	return &HomeScreen{opts: opts}
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.load()
}

// Reveal reloads after a session or the grid is closed.
func (h *HomeScreen) Reveal() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) Title() string {
	return "Home"
}

// load reads progress, journey stage and unfinished sessions.
func (h *HomeScreen) load() tea.Cmd {
	opts := h.opts
	return func() tea.Msg {
		if opts.Progress == nil || opts.Engine == nil || opts.Journey == nil {
			return LoadedMsg{Err: errors.New("home screen is not wired to storage")}
		}
		ctx := context.Background()

		data, err := opts.Progress.GetMathProgress(ctx, opts.Student.Email, opts.Student.GradeLevel)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		prog, err := mastery.FromProgressData(data)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		active, err := opts.Engine.ActiveSessions(ctx, prog.StudentID)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		return LoadedMsg{
			Progress: prog,
			State:    opts.Journey.Resolve(ctx, prog.StudentID),
			Active:   active,
		}
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if msg, ok := msg.(LoadedMsg); ok {
		return h.handleLoaded(msg)
	}
	if !h.loaded {
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) handleLoaded(msg LoadedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		h.errMsg = msg.Err.Error()
		return h, nil
	}
	h.errMsg = ""
	h.loaded = true
	h.progress = msg.Progress
	h.state = msg.State
	h.active = msg.Active
	h.menu = components.NewMenu(h.menuItems())

	if id := h.opts.ResumeID; id != "" {
		h.opts.ResumeID = ""
		return h, h.openSession(sessionscreen.Options{ResumeID: id})
	}
	return h, nil
}

// menuItems offers the placement test until it is done, practice after,
// and the newest unfinished session when there is one.
func (h *HomeScreen) menuItems() []components.MenuItem {
	var items []components.MenuItem

	if len(h.active) > 0 {
		a := h.active[0]
		items = append(items, components.MenuItem{
			Label: "Continue " + sessionLabel(a.SessionType),
			Hint:  fmt.Sprintf("%d of %d done", a.CompletedItems, a.TotalItems),
			Action: func() tea.Cmd {
				return h.openSession(sessionscreen.Options{ResumeID: a.ID})
			},
		})
	}

	if journey.ShouldShowPlacement(h.state) {
		items = append(items, components.MenuItem{
			Label: "Placement test",
			Hint:  "find out what you already know",
			Action: func() tea.Cmd {
				return h.openSession(sessionscreen.Options{Type: sess.TypePlacement})
			},
		})
	}

	items = append(items, components.MenuItem{
		Label:    "Practice",
		Hint:     practiceHint(h.state),
		Disabled: !journey.CanStartPractice(h.state),
		Action: func() tea.Cmd {
			return h.openSession(sessionscreen.Options{Type: sess.TypePractice})
		},
	})

	items = append(items,
		components.MenuItem{
			Label: "Mastery grid",
			Action: func() tea.Cmd {
				prog := h.progress
				return func() tea.Msg { return router.PushScreenMsg{Screen: grid.New(prog)} }
			},
		},
		components.MenuItem{
			Label:  "Quit",
			Action: func() tea.Cmd { return tea.Quit },
		},
	)
	return items
}

func (h *HomeScreen) openSession(o sessionscreen.Options) tea.Cmd {
	o.Engine = h.opts.Engine
	o.Student = h.opts.Student
	return func() tea.Msg {
		return router.PushScreenMsg{Screen: sessionscreen.New(o)}
	}
}

func sessionLabel(sessionType string) string {
	if sessionType == store.SessionPlacement {
		return "placement test"
	}
	return "practice"
}

func practiceHint(s journey.State) string {
	if journey.CanStartPractice(s) {
		return "work on the facts you haven't mastered"
	}
	return "finish the placement test first"
}

func (h *HomeScreen) View(width, height int) string {
	if h.errMsg != "" {
		return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render("\n\n\n  Could not load your progress: " + h.errMsg)
	}
	if !h.loaded {
		return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n\n  Loading...")
	}

	compact := layout.IsCompactHeight(height+layout.HeaderHeight+layout.FooterHeight) || layout.IsCompactWidth(width)
	cw := contentWidth(width)

	p := h.progress
	rangeMastery := mastery.GuardrailMastery(p.Grid, p.Guardrail)

	sections := []string{renderTitle(cw, compact)}
	if !compact {
		sections = append(sections, renderMascotBox(mascotFor(rangeMastery, len(h.active)), cw))
	}
	sections = append(sections,
		renderStatsBar(mastery.Count(p.Grid).Mastered, rangeMastery, string(p.Guardrail), h.state.Label(), cw),
		lipgloss.NewStyle().Width(cw).Align(lipgloss.Center).Render(
			lipgloss.NewStyle().Align(lipgloss.Left).Render(h.menu.View())),
	)

	return renderFrame(strings.Join(sections, "\n\n"), width, height)
}
