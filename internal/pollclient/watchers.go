package pollclient

import (
	"context"
	"sync"
	"time"

	"checkin-app-go/pkg/logger"
)

type SessionEventKind string

const (
	SessionPresent SessionEventKind = "present"
	SessionAbsent  SessionEventKind = "absent"
	SessionChanged SessionEventKind = "changed"
)

// SessionEvent is a transition of a program's active session. Session is nil
// for SessionAbsent.
type SessionEvent struct {
	Kind    SessionEventKind
	Session *Session
}

// SessionWatcher turns session presence polls into transitions. No session
// is a normal state, reported once as SessionAbsent.
type SessionWatcher struct {
	poller *Poller[*Session]
	events chan Update[SessionEvent]
	quit   chan struct{}
	once   sync.Once
}

func NewSessionWatcher(fetch FetchFunc[*Session], interval time.Duration, log logger.Logger) *SessionWatcher {
	if interval <= 0 {
		interval = DefaultSessionInterval
	}
	return &SessionWatcher{
		poller: NewPoller(fetch, interval, sameSession, log),
		events: make(chan Update[SessionEvent], 1),
		quit:   make(chan struct{}),
	}
}

// WatchProgramSession watches the active session of one program through c.
func (c *Client) WatchProgramSession(program string, interval time.Duration, log logger.Logger) *SessionWatcher {
	return NewSessionWatcher(func(ctx context.Context) (*Session, error) {
		return c.ProgramSession(ctx, program)
	}, interval, log)
}

func (w *SessionWatcher) Updates() <-chan Update[SessionEvent] {
	return w.events
}

// Run blocks until ctx is cancelled or Stop is called.
func (w *SessionWatcher) Run(ctx context.Context) error {
	defer close(w.events)

	done := make(chan error, 1)
	go func() {
		done <- w.poller.Run(ctx)
	}()

	var prev *Session
	for update := range w.poller.Updates() {
		current := update.Value
		event := SessionEvent{Session: current}
		switch {
		case current == nil:
			event.Kind = SessionAbsent
		case prev == nil:
			event.Kind = SessionPresent
		default:
			event.Kind = SessionChanged
		}
		prev = current

		select {
		case w.events <- Update[SessionEvent]{Value: event, FetchedAt: update.FetchedAt}:
		case <-ctx.Done():
		case <-w.quit:
		}
	}
	return <-done
}

func (w *SessionWatcher) Stop() {
	w.once.Do(func() { close(w.quit) })
	w.poller.Stop()
}

func sameSession(a, b *Session) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID && a.Status == b.Status
}

// RosterWatcher emits roster snapshots when entries are added or picked up.
type RosterWatcher struct {
	*Poller[[]RosterEntry]
}

func NewRosterWatcher(fetch FetchFunc[[]RosterEntry], interval time.Duration, log logger.Logger) *RosterWatcher {
	if interval <= 0 {
		interval = DefaultRosterInterval
	}
	return &RosterWatcher{Poller: NewPoller(fetch, interval, sameRoster, log)}
}

func (c *Client) WatchRoster(query RosterQuery, interval time.Duration, log logger.Logger) *RosterWatcher {
	return NewRosterWatcher(func(ctx context.Context) ([]RosterEntry, error) {
		return c.Roster(ctx, query)
	}, interval, log)
}

func sameRoster(a, b []RosterEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !sameTime(a[i].PickedUpAt, b[i].PickedUpAt) {
			return false
		}
	}
	return true
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

var (
	_ Watcher[SessionEvent]  = (*SessionWatcher)(nil)
	_ Watcher[[]RosterEntry] = (*RosterWatcher)(nil)
)
