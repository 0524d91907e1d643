package sessions

import "time"

// ActiveCache remembers the active session per program for a short TTL.
// A cached nil means "no active session".
type ActiveCache interface {
	Get(program string) (*Session, bool)
	Set(program string, session *Session, ttl time.Duration)
	Delete(program string)
	Clear()
}

type noopCache struct{}

func (noopCache) Get(string) (*Session, bool) {
	return nil, false
}

func (noopCache) Set(string, *Session, time.Duration) {}

func (noopCache) Delete(string) {}

func (noopCache) Clear() {}

type Metrics interface {
	SessionOpened(program string)
	SessionClosed(program string)
	OpenConflict(program string)
}

type noopMetrics struct{}

func (noopMetrics) SessionOpened(string) {}

func (noopMetrics) SessionClosed(string) {}

func (noopMetrics) OpenConflict(string) {}
