package router

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/timesgrid/internal/screen"
)

// fakeScreen counts Init calls and records the keys it receives.
type fakeScreen struct {
	name  string
	inits int
	keys  []string
}

func (f *fakeScreen) Init() tea.Cmd        { f.inits++; return nil }
func (f *fakeScreen) Title() string        { return f.name }
func (f *fakeScreen) View(int, int) string { return f.name }
func (f *fakeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		f.keys = append(f.keys, k.String())
	}
	return f, nil
}

type revealingScreen struct {
	fakeScreen
	reveals int
}

func (r *revealingScreen) Reveal() tea.Cmd {
	r.reveals++
	return func() tea.Msg { return nil }
}

// stack lists the screen titles, active first.
func stack(r *Router) string {
	names := make([]string, 0, r.Depth())
	for i := len(r.stack) - 1; i >= 0; i-- {
		names = append(names, r.stack[i].Title())
	}
	return strings.Join(names, ",")
}

func TestNavigation(t *testing.T) {
	tests := []struct {
		name string
		msgs []tea.Msg
		want string
	}{
		{
			name: "push session",
			msgs: []tea.Msg{PushScreenMsg{Screen: &fakeScreen{name: "session"}}},
			want: "session,home",
		},
		{
			name: "pop back home",
			msgs: []tea.Msg{PushScreenMsg{Screen: &fakeScreen{name: "grid"}}, PopScreenMsg{}},
			want: "home",
		},
		{
			name: "home is never popped",
			msgs: []tea.Msg{PopScreenMsg{}, PopScreenMsg{}},
			want: "home",
		},
		{
			name: "session replaced by summary",
			msgs: []tea.Msg{
				PushScreenMsg{Screen: &fakeScreen{name: "session"}},
				ReplaceScreenMsg{Screen: &fakeScreen{name: "summary"}},
			},
			want: "summary,home",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := &revealingScreen{fakeScreen: fakeScreen{name: "home"}}
			r := New(home)
			for _, m := range tt.msgs {
				r.Update(m)
			}
			if got := stack(r); got != tt.want {
				t.Errorf("stack = %q, want %q", got, tt.want)
			}
			if r.View(80, 24) != r.Active().Title() {
				t.Errorf("View did not render the active screen")
			}
		})
	}
}

func TestPushAndReplaceRunInit(t *testing.T) {
	r := New(&fakeScreen{name: "home"})
	sess := &fakeScreen{name: "session"}
	sum := &fakeScreen{name: "summary"}

	r.Push(sess)
	r.Replace(sum)
	if sess.inits != 1 || sum.inits != 1 {
		t.Errorf("inits = %d/%d, want 1/1", sess.inits, sum.inits)
	}
}

func TestRevealOnlyAfterPop(t *testing.T) {
	home := &revealingScreen{fakeScreen: fakeScreen{name: "home"}}
	r := New(home)

	r.Push(&fakeScreen{name: "session"})
	r.Replace(&fakeScreen{name: "summary"})
	if home.reveals != 0 {
		t.Fatalf("replace revealed home %d times", home.reveals)
	}

	if cmd := r.Update(PopScreenMsg{}); cmd == nil {
		t.Error("pop returned no reload command")
	}
	if home.reveals != 1 {
		t.Errorf("reveals = %d, want 1", home.reveals)
	}
}

func TestKeysGoToActiveScreen(t *testing.T) {
	home := &fakeScreen{name: "home"}
	grid := &fakeScreen{name: "grid"}
	r := New(home)
	r.Push(grid)

	r.Update(tea.KeyPressMsg{Code: tea.KeyRight})
	if len(home.keys) != 0 || len(grid.keys) != 1 {
		t.Errorf("keys home=%v grid=%v", home.keys, grid.keys)
	}
}
