package pollclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"checkin-app-go/pkg/logger"
)

const (
	DefaultSessionInterval = 30 * time.Second
	DefaultRosterInterval  = 5 * time.Second
	maxFetchTimeout        = 10 * time.Second
)

var ErrPollerStarted = errors.New("poller already started")

type Update[T any] struct {
	Value     T
	FetchedAt time.Time
}

// Watcher delivers state changes. The channel is closed when watching stops.
type Watcher[T any] interface {
	Updates() <-chan Update[T]
}

type FetchFunc[T any] func(ctx context.Context) (T, error)

// Poller re-fetches a value on a fixed interval and emits it whenever it
// differs from the last emitted value. A failed fetch is logged and retried
// on the next tick only. A Poller runs once.
type Poller[T any] struct {
	fetch    FetchFunc[T]
	equal    func(a, b T) bool
	interval time.Duration
	timeout  time.Duration
	log      logger.Logger
	now      func() time.Time
	updates  chan Update[T]

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc

	last T
	seen bool
}

// NewPoller builds a poller. equal decides whether two fetched values are the
// same state; nil means every fetch is emitted.
func NewPoller[T any](fetch FetchFunc[T], interval time.Duration, equal func(a, b T) bool, log logger.Logger) *Poller[T] {
	if log == nil {
		log = logger.NewNop()
	}
	if interval <= 0 {
		interval = DefaultRosterInterval
	}
	timeout := interval
	if timeout > maxFetchTimeout {
		timeout = maxFetchTimeout
	}
	return &Poller[T]{
		fetch:    fetch,
		equal:    equal,
		interval: interval,
		timeout:  timeout,
		log:      log,
		now:      time.Now,
		updates:  make(chan Update[T], 1),
	}
}

func (p *Poller[T]) Updates() <-chan Update[T] {
	return p.updates
}

// Run polls immediately and then on every tick until ctx is cancelled or
// Stop is called. The updates channel is closed on return.
func (p *Poller[T]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrPollerStarted
	}
	p.started = true
	if p.stopped {
		p.mu.Unlock()
		close(p.updates)
		return nil
	}
	p.cancel = cancel
	p.mu.Unlock()

	defer close(p.updates)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Stop cancels a running poller, or prevents a later Run from polling.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Poller[T]) poll(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	value, err := p.fetch(fetchCtx)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("poll: fetch failed", "err", err, "retry_in", p.interval)
		}
		return
	}

	if p.seen && p.equal != nil && p.equal(p.last, value) {
		return
	}
	p.last = value
	p.seen = true

	select {
	case p.updates <- Update[T]{Value: value, FetchedAt: p.now()}:
	case <-ctx.Done():
	}
}
