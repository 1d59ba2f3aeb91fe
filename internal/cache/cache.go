// Package cache provides a TTL-bounded LRU cache used to memoize report
// responses. Report queries aggregate over the whole ledger, so handlers
// cache rendered results and clear the cache on every write.
package cache

import (
	"log/slog"
	"time"
)

// Cache is the read/write surface handlers depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Clear()
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries out of registered caches.
type Manager struct {
	caches  []Cleaner
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
}

func NewManager() *Manager {
	return &Manager{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Register adds a cache to the cleanup rotation. Not safe to call after
// StartCleanup.
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches.
func (m *Manager) StartCleanup(interval time.Duration) {
	if m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, cache := range m.caches {
				cleaned += cache.CleanExpired()
			}
			if cleaned > 0 {
				slog.Debug("Cache cleanup removed expired entries", "count", cleaned)
			}
		case <-m.stopCh:
			return
		}
	}
}

// Stop halts the cleanup routine and waits for it to exit. A no-op when
// cleanup was never started.
func (m *Manager) Stop() {
	if m.stopped {
		return
	}
	m.stopped = true
	close(m.stopCh)
	if m.started {
		<-m.doneCh
	}
}
