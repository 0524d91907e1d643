package inmemory

import (
	"sync"
	"time"

	sessionsdomain "checkin-app-go/internal/domain/sessions"
)

// ActiveSessionCache keeps the active session per program, including the
// known absence of one, until its TTL passes.
type ActiveSessionCache struct {
	mu    sync.RWMutex
	items map[string]sessionItem
	now   func() time.Time
}

type sessionItem struct {
	value     *sessionsdomain.Session
	expiresAt time.Time
}

func NewActiveSessionCache() *ActiveSessionCache {
	return &ActiveSessionCache{
		items: make(map[string]sessionItem),
		now:   time.Now,
	}
}

func (c *ActiveSessionCache) Get(program string) (*sessionsdomain.Session, bool) {
	now := c.now()

	c.mu.RLock()
	item, ok := c.items[program]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !item.expiresAt.After(now) {
		c.mu.Lock()
		item, ok = c.items[program]
		if ok && !item.expiresAt.After(now) {
			delete(c.items, program)
		}
		c.mu.Unlock()
		return nil, false
	}

	if item.value == nil {
		return nil, true
	}
	value := *item.value
	return &value, true
}

func (c *ActiveSessionCache) Set(program string, session *sessionsdomain.Session, ttl time.Duration) {
	if ttl <= 0 {
		c.Delete(program)
		return
	}

	var stored *sessionsdomain.Session
	if session != nil {
		copied := *session
		stored = &copied
	}

	c.mu.Lock()
	c.items[program] = sessionItem{
		value:     stored,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
}

func (c *ActiveSessionCache) Delete(program string) {
	c.mu.Lock()
	delete(c.items, program)
	c.mu.Unlock()
}

func (c *ActiveSessionCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]sessionItem)
	c.mu.Unlock()
}
