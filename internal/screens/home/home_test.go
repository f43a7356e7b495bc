package home

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/timesgrid/internal/journey"
	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/router"
	sessionscreen "github.com/abhisek/timesgrid/internal/screens/session"
	sess "github.com/abhisek/timesgrid/internal/session"
	"github.com/abhisek/timesgrid/internal/store"
)

var kid = sess.Student{Email: "kid@example.com", GradeLevel: "3"}

func newTestOptions(t *testing.T) Options {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	st, err := store.Open(context.Background(), store.DriverSQLite, dsn, store.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	genCfg := problemgen.DefaultConfig()
	genCfg.GradeCounts = map[string]int{"3": 2}
	cfg := sess.DefaultConfig()
	cfg.AutosaveInterval = 0
	engine := sess.NewEngine(sess.Deps{
		Sessions:  st.SessionRepo(),
		Attempts:  st.AttemptRepo(),
		Progress:  st.ProgressRepo(),
		Settings:  st.SettingsRepo(),
		Generator: problemgen.New(rand.New(rand.NewPCG(5, 6)), genCfg),
	}, cfg)
	t.Cleanup(engine.Close)

	return Options{
		Engine:   engine,
		Journey:  journey.NewResolver(st.JourneyRepo(), nil),
		Progress: st.ProgressRepo(),
		Student:  kid,
	}
}

func loaded(t *testing.T, opts Options) (*HomeScreen, tea.Cmd) {
	t.Helper()
	h := New(opts)
	_, cmd := h.Update(h.Init()())
	if h.errMsg != "" {
		t.Fatalf("load failed: %s", h.errMsg)
	}
	return h, cmd
}

func labels(h *HomeScreen) map[string]bool {
	out := make(map[string]bool)
	for _, it := range h.menu.Items {
		out[it.Label] = !it.Disabled
	}
	return out
}

func TestHome_NewStudentNeedsPlacement(t *testing.T) {
	h, _ := loaded(t, newTestOptions(t))

	if h.state != journey.NeedsPlacement {
		t.Errorf("state = %s, want %s", h.state, journey.NeedsPlacement)
	}
	items := labels(h)
	if !items["Placement test"] {
		t.Error("placement test should be offered")
	}
	if enabled, ok := items["Practice"]; !ok || enabled {
		t.Error("practice should be listed but disabled")
	}
	if h.menu.Items[h.menu.Selected].Label != "Placement test" {
		t.Errorf("selected %q first", h.menu.Items[h.menu.Selected].Label)
	}
}

func TestHome_PracticeOpensAfterPlacement(t *testing.T) {
	opts := newTestOptions(t)
	ctx := context.Background()

	s, err := opts.Engine.Start(ctx, sess.TypePlacement, kid)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Complete(sess.WithStudent(ctx, s.StudentID())); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	h, _ := loaded(t, opts)
	items := labels(h)
	if _, ok := items["Placement test"]; ok {
		t.Error("placement test offered after completion")
	}
	if !items["Practice"] {
		t.Error("practice should be enabled")
	}
}

func TestHome_OffersUnfinishedSession(t *testing.T) {
	opts := newTestOptions(t)
	s, err := opts.Engine.Start(context.Background(), sess.TypePlacement, kid)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Abandon(context.Background())

	h, _ := loaded(t, opts)
	first := h.menu.Items[0]
	if first.Label != "Continue placement test" {
		t.Fatalf("first item = %q", first.Label)
	}
	if first.Hint != "0 of 2 done" {
		t.Errorf("hint = %q", first.Hint)
	}

	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatal("expected PushScreenMsg")
	}
	if _, ok := push.Screen.(*sessionscreen.SessionScreen); !ok {
		t.Errorf("pushed %T", push.Screen)
	}
}

func TestHome_ResumeIDOpensSessionOnce(t *testing.T) {
	opts := newTestOptions(t)
	opts.ResumeID = "some-id"

	h, cmd := loaded(t, opts)
	if cmd == nil {
		t.Fatal("expected the resume command")
	}
	if _, ok := cmd().(router.PushScreenMsg); !ok {
		t.Error("expected PushScreenMsg")
	}

	_, cmd = h.Update(h.Reveal()())
	if cmd != nil {
		t.Error("resume should only happen once")
	}
}

func TestHome_LoadErrorShown(t *testing.T) {
	h := New(Options{Student: kid})
	h.Update(h.Init()())
	if h.errMsg == "" {
		t.Fatal("expected an error without storage")
	}
	if h.View(100, 30) == "" {
		t.Error("error view is empty")
	}
}

func TestMascotFor(t *testing.T) {
	if got := mascotFor(90, 1); got != MascotAlert {
		t.Errorf("active session: got %v", got)
	}
	if got := mascotFor(80, 0); got != MascotCelebrating {
		t.Errorf("80%%: got %v", got)
	}
	if got := mascotFor(10, 0); got != MascotIdle {
		t.Errorf("10%%: got %v", got)
	}
}
