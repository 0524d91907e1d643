package board

import (
	"strings"
	"testing"
	"time"

	"checkin-app-go/internal/pollclient"
	tea "github.com/charmbracelet/bubbletea"
)

type chanWatcher[T any] struct {
	ch chan pollclient.Update[T]
}

func (w chanWatcher[T]) Updates() <-chan pollclient.Update[T] {
	return w.ch
}

func newTestModel() (Model, chanWatcher[pollclient.SessionEvent], chanWatcher[[]pollclient.RosterEntry]) {
	sessions := chanWatcher[pollclient.SessionEvent]{ch: make(chan pollclient.Update[pollclient.SessionEvent], 1)}
	roster := chanWatcher[[]pollclient.RosterEntry]{ch: make(chan pollclient.Update[[]pollclient.RosterEntry], 1)}
	return New("daycare", sessions, roster), sessions, roster
}

func TestBoardFollowsSessionTransitions(t *testing.T) {
	m, sessions, _ := newTestModel()
	if !strings.Contains(m.View(), "session unknown") {
		t.Fatalf("expected unknown session before first poll")
	}

	sessions.ch <- pollclient.Update[pollclient.SessionEvent]{Value: pollclient.SessionEvent{
		Kind:    pollclient.SessionPresent,
		Session: &pollclient.Session{ID: "s1", Code: "4821", Status: "active"},
	}, FetchedAt: time.Now()}
	msg := waitSession(sessions.ch)()
	model, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatalf("expected board to keep waiting for session updates")
	}
	view := model.View()
	if !strings.Contains(view, "OPEN") || !strings.Contains(view, "4821") {
		t.Fatalf("expected open session in view:\n%s", view)
	}

	model, _ = model.Update(sessionMsg{Value: pollclient.SessionEvent{Kind: pollclient.SessionAbsent}})
	if view := model.View(); !strings.Contains(view, "CLOSED") || !strings.Contains(view, "check-in is closed") {
		t.Fatalf("expected closed session in view:\n%s", view)
	}
}

func TestBoardRendersRoster(t *testing.T) {
	m, _, _ := newTestModel()
	allergy := "peanuts"
	picked := time.Now()
	entries := []pollclient.RosterEntry{
		{ID: "e1", Type: "child", DisplayName: "Ben Lovelace", Awaiting: true, Allergies: &allergy, CheckedInAt: time.Now()},
		{ID: "e2", Type: "child", DisplayName: "Ada Jr", PickedUpAt: &picked, CheckedInAt: time.Now()},
	}

	model, _ := m.Update(rosterMsg{Value: entries, FetchedAt: time.Now()})
	view := model.View()
	for _, want := range []string{"Ben Lovelace", awaitingMark, "peanuts", pickedUpMark, "2 checked in", "1 awaiting pickup"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestBoardReportsClosedWatcher(t *testing.T) {
	m, _, roster := newTestModel()
	close(roster.ch)

	model, cmd := m.Update(waitRoster(roster.ch)())
	if cmd != nil {
		t.Fatalf("expected no further waits after close")
	}
	if !strings.Contains(model.View(), "roster polling stopped") {
		t.Fatalf("expected stopped status:\n%s", model.View())
	}
}

func TestBoardQuits(t *testing.T) {
	m, _, _ := newTestModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}
