package cache

import (
	"context"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// GetOrLoad returns the cached value or loads it once for all
	// concurrent callers
	GetOrLoad(ctx context.Context, key string, load LoaderFunc[T]) (T, error)

	// Refresh drops the key and loads it again
	Refresh(ctx context.Context, key string, load LoaderFunc[T]) (T, error)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// LoaderFunc produces a value on a cache miss.
type LoaderFunc[T any] func(ctx context.Context) (T, error)

// Managed is implemented by caches the Manager can clean and purge.
type Managed interface {
	CleanExpired() int
	Purge() int
}

// Manager handles cache lifecycle, periodic cleanup and invalidation after
// a data load.
type Manager struct {
	caches      []Managed
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	onClean     func(cleaned int)
	started     bool
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		caches:      make([]Managed, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager
func (m *Manager) Register(cache Managed) {
	m.caches = append(m.caches, cache)
}

// OnClean sets a callback invoked after each cleanup tick.
func (m *Manager) OnClean(fn func(cleaned int)) {
	m.onClean = fn
}

// InvalidateAll empties every registered cache and returns the number of
// dropped entries.
func (m *Manager) InvalidateAll() int {
	total := 0
	for _, c := range m.caches {
		total += c.Purge()
	}
	return total
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval, m.stopCleanup)
}

func (m *Manager) cleanup(interval time.Duration, stop <-chan struct{}) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			totalCleaned := 0
			for _, cache := range m.caches {
				totalCleaned += cache.CleanExpired()
			}
			if m.onClean != nil {
				m.onClean(totalCleaned)
			}
		case <-stop:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	if m.stopCleanup == nil {
		return
	}
	close(m.stopCleanup)
	m.stopCleanup = nil
	if m.started {
		<-m.cleanupDone
	}
}
