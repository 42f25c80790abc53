// Package cache holds rendered read views between writes.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is a keyed store of view data. Implementations must be safe for
// concurrent use.
type Cache[T any] interface {
	// Get returns the cached value; a backend failure reads as a miss.
	Get(ctx context.Context, key string) (T, bool)

	Set(ctx context.Context, key string, data T)

	// Delete drops keys. An error means the keys may still be served.
	Delete(ctx context.Context, keys ...string) error

	// Purge drops every key owned by this cache.
	Purge(ctx context.Context) error
}

// Cleaner is implemented by caches that need periodic expiry sweeps.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs expiry sweeps for in-process caches.
type Manager struct {
	caches []Cleaner
	done   chan struct{}
}

func NewManager() *Manager {
	return &Manager{done: make(chan struct{})}
}

// Register adds a cache to the sweep. Caches that do not expire on their
// own (e.g. Redis) are ignored.
func (m *Manager) Register(c any) {
	if cl, ok := c.(Cleaner); ok {
		m.caches = append(m.caches, cl)
	}
}

// Run sweeps every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, c := range m.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				slog.Debug("Expired cache entries removed", "count", cleaned)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Wait blocks until Run has returned.
func (m *Manager) Wait() {
	<-m.done
}
