package app

import (
	"context"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/journey"
	"github.com/abhisek/timesgrid/internal/mastery"
	"github.com/abhisek/timesgrid/internal/router"
	"github.com/abhisek/timesgrid/internal/screen"
	"github.com/abhisek/timesgrid/internal/screens/home"
	"github.com/abhisek/timesgrid/internal/session"
	"github.com/abhisek/timesgrid/internal/store"
	"github.com/abhisek/timesgrid/internal/ui/layout"
)

// Options wire the terminal app. Logger must not write to the terminal.
type Options struct {
	Engine   *session.Engine
	Journey  *journey.Resolver
	Progress store.ProgressRepo
	Student  session.Student
	ResumeID string
	Logger   *zap.Logger
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router  *router.Router
	student string
	mastery int
	width   int
	height  int
}

func newAppModel(opts Options) AppModel {
	return AppModel{
		router: router.New(home.New(home.Options{
			Engine:   opts.Engine,
			Journey:  opts.Journey,
			Progress: opts.Progress,
			Student:  opts.Student,
			ResumeID: opts.ResumeID,
		})),
		student: opts.Student.Email,
	}
}

func (m AppModel) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case home.LoadedMsg:
		if msg.Progress != nil {
			m.mastery = mastery.GuardrailMastery(msg.Progress.Grid, msg.Progress.Guardrail)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if h, ok := m.router.Active().(screen.EscapeHandler); ok && h.HandlesEscape() {
				break
			}
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.student, m.mastery, m.width)

	var footerHints []layout.KeyHint
	if p, ok := active.(screen.KeyHintProvider); ok {
		footerHints = p.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the Bubble Tea program and blocks until it exits. Sessions
// left open are abandoned so they can be resumed.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := tea.NewProgram(newAppModel(opts), tea.WithContext(ctx))
	_, err := p.Run()
	if opts.Engine != nil {
		opts.Engine.Shutdown(context.WithoutCancel(ctx))
	}
	if err != nil {
		logger.Error("terminal app exited with error", zap.Error(err))
		return err
	}
	return nil
}
