package session

import (
	"context"
	"errors"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/router"
	"github.com/abhisek/timesgrid/internal/screen"
	"github.com/abhisek/timesgrid/internal/screens/summary"
	sess "github.com/abhisek/timesgrid/internal/session"
	"github.com/abhisek/timesgrid/internal/ui/components"
	"github.com/abhisek/timesgrid/internal/ui/layout"
)

// Options select the session the screen drives. ResumeID wins over Type.
type Options struct {
	Engine   *sess.Engine
	Student  sess.Student
	Type     sess.Type
	ResumeID string

	// Clock times answers. Defaults to time.Now.
	Clock func() time.Time
}

// SessionScreen drills one placement or practice session.
type SessionScreen struct {
	opts Options
	ctx  context.Context

	s            *sess.Session
	input        components.AnswerInput
	problemStart time.Time
	elapsed      time.Duration

	last               *sess.Result
	showingFeedback    bool
	showingQuitConfirm bool
	busy               bool
	hint               string
	errMsg             string
}

var _ screen.Screen = (*SessionScreen)(nil)
var _ screen.KeyHintProvider = (*SessionScreen)(nil)
var _ screen.EscapeHandler = (*SessionScreen)(nil)

// New returns a screen that starts (or resumes) its session on Init.
func New(opts Options) *SessionScreen {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &SessionScreen{
		opts:  opts,
		ctx:   context.Background(),
		input: newAnswerInput(),
	}
}

func newAnswerInput() components.AnswerInput {
	return components.NewAnswerInput(3)
}

func (s *SessionScreen) Init() tea.Cmd {
	return tea.Batch(s.initSession(), s.input.Init())
}

func (s *SessionScreen) Title() string {
	switch {
	case s.s != nil && s.s.Type() == sess.TypePlacement:
		return "Placement Test"
	case s.opts.ResumeID == "" && s.opts.Type == sess.TypePlacement:
		return "Placement Test"
	default:
		return "Practice"
	}
}

func (s *SessionScreen) HandlesEscape() bool {
	return s.errMsg == ""
}

func (s *SessionScreen) KeyHints() []layout.KeyHint {
	switch {
	case s.errMsg != "":
		return []layout.KeyHint{{Key: "any key", Description: "Back"}}
	case s.s == nil || s.busy:
		return nil
	case s.showingQuitConfirm:
		return []layout.KeyHint{
			{Key: "Y", Description: "Stop for now"},
			{Key: "N", Description: "Keep going"},
		}
	case s.showingFeedback:
		return []layout.KeyHint{{Key: "any key", Description: "Next"}}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Submit"},
		{Key: "Esc", Description: "Stop"},
	}
}

func (s *SessionScreen) View(width, height int) string {
	switch {
	case s.errMsg != "":
		return renderError(width, s.errMsg)
	case s.s == nil:
		return renderLoading(width, "Preparing your session...")
	case s.busy:
		return renderLoading(width, "Saving...")
	case s.showingQuitConfirm:
		return renderQuitConfirm(width)
	case s.showingFeedback:
		return s.renderFeedback(width)
	}
	return s.renderQuestion(width)
}

func (s *SessionScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionInitMsg:
		return s.handleInit(msg)

	case answerResultMsg:
		return s.handleResult(msg)

	case sessionCompleteMsg:
		return s.handleComplete(msg)

	case timerTickMsg:
		if s.s == nil || s.busy {
			return s, nil
		}
		if !s.showingFeedback {
			s.elapsed = time.Time(msg).Sub(s.problemStart)
		}
		return s, tickCmd()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.awaitingAnswer() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *SessionScreen) awaitingAnswer() bool {
	return s.s != nil && !s.busy && !s.showingFeedback && !s.showingQuitConfirm
}

// initSession starts or resumes the session off the UI goroutine.
func (s *SessionScreen) initSession() tea.Cmd {
	opts := s.opts
	return func() tea.Msg {
		if opts.Engine == nil {
			return sessionInitMsg{Err: errors.New("no session engine configured")}
		}
		ctx := context.Background()
		var (
			started *sess.Session
			err     error
		)
		if opts.ResumeID != "" {
			started, err = opts.Engine.Resume(ctx, opts.ResumeID, opts.Student)
		} else {
			started, err = opts.Engine.Start(ctx, opts.Type, opts.Student)
		}
		return sessionInitMsg{Session: started, Err: err}
	}
}

func (s *SessionScreen) handleInit(msg sessionInitMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	s.s = msg.Session
	s.ctx = sess.WithStudent(context.Background(), s.s.StudentID())

	// An empty queue completes on start.
	if s.s.Phase() == sess.PhaseCompleted {
		return s, showSummary(s.s.Summary())
	}

	// A resumed session may stop on a result that was never advanced.
	if s.s.Phase() == sess.PhaseShowingResult {
		return s, s.advance()
	}
	if s.s.CurrentProblem() == nil {
		return s, s.complete()
	}

	s.problemStart = s.opts.Clock()
	return s, tickCmd()
}

func (s *SessionScreen) handleResult(msg answerResultMsg) (screen.Screen, tea.Cmd) {
	s.busy = false
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	s.last = &msg.Result
	s.input.Mark(msg.Result.Correct)
	s.showingFeedback = true
	return s, nil
}

func (s *SessionScreen) handleComplete(msg sessionCompleteMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.busy = false
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	return s, showSummary(msg.Summary)
}

func (s *SessionScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.errMsg != "" {
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	if s.s == nil || s.busy {
		return s, nil
	}

	if s.showingQuitConfirm {
		switch key {
		case "y", "Y":
			s.busy = true
			return s, s.abandon()
		case "n", "N", "esc":
			s.showingQuitConfirm = false
		}
		return s, nil
	}

	if s.showingFeedback {
		return s, s.advance()
	}

	switch key {
	case "esc":
		s.showingQuitConfirm = true
		return s, nil
	case "enter":
		return s.submitAnswer()
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	s.hint = ""
	return s, cmd
}

// submitAnswer records the typed answer with the time since the problem
// was shown.
func (s *SessionScreen) submitAnswer() (screen.Screen, tea.Cmd) {
	answer, err := problemgen.ParseAnswer(s.input.Value())
	if err != nil {
		s.hint = "Type a whole number, then press Enter."
		return s, nil
	}

	elapsed := s.opts.Clock().Sub(s.problemStart).Seconds()
	s.busy = true
	ctx, live := s.ctx, s.s
	return s, func() tea.Msg {
		res, err := live.SubmitAnswer(ctx, answer, elapsed)
		return answerResultMsg{Result: res, Err: err}
	}
}

// advance moves past the shown result. An exhausted queue completes the
// session.
func (s *SessionScreen) advance() tea.Cmd {
	s.showingFeedback = false
	s.last = nil
	s.hint = ""

	err := s.s.Advance()
	if errors.Is(err, sess.ErrQueueExhausted) || (err == nil && s.s.CurrentProblem() == nil) {
		return s.complete()
	}
	if err != nil {
		s.errMsg = err.Error()
		return nil
	}

	s.input.Reset()
	s.problemStart = s.opts.Clock()
	s.elapsed = 0
	return s.input.Init()
}

func (s *SessionScreen) complete() tea.Cmd {
	s.busy = true
	ctx, live := s.ctx, s.s
	return func() tea.Msg {
		sum, err := live.Complete(ctx)
		return sessionCompleteMsg{Summary: sum, Err: err}
	}
}

// abandon saves the counters so the session can be resumed, then leaves.
func (s *SessionScreen) abandon() tea.Cmd {
	ctx, live := s.ctx, s.s
	return func() tea.Msg {
		live.Abandon(ctx)
		return router.PopScreenMsg{}
	}
}

func showSummary(sum *sess.Summary) tea.Cmd {
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: summary.New(sum)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg(t)
	})
}
