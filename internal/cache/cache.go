// Package cache keeps values for a sliding time-to-live. Every successful
// Get pushes the expiry back, so only idle entries are evicted.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value    T
	lastUsed time.Time
}

type Cache[T any] struct {
	ttl     time.Duration
	now     func() time.Time
	onEvict func(key string, value T)

	mu      sync.Mutex
	entries map[string]*entry[T]

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type Option[T any] func(*Cache[T])

// WithEvictHook registers a callback run for every expired entry, outside
// the cache lock.
func WithEvictHook[T any](fn func(key string, value T)) Option[T] {
	return func(c *Cache[T]) { c.onEvict = fn }
}

func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) { c.now = now }
}

// New starts a cache whose sweeper runs every interval. A non-positive
// interval disables the sweeper; expired entries are then only hidden.
func New[T any](ttl, interval time.Duration, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry[T]),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if interval > 0 {
		go c.sweep(interval)
	} else {
		close(c.done)
	}
	return c
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	now := c.now()
	if !ok || c.expired(e, now) {
		var zero T
		return zero, false
	}
	e.lastUsed = now
	return e.value, true
}

func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry[T]{value: value, lastUsed: c.now()}
}

// GetOrCreate returns the live value for key, storing create() first if
// there is none.
func (c *Cache[T]) GetOrCreate(key string, create func() T) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok && !c.expired(e, now) {
		e.lastUsed = now
		return e.value
	}
	v := create()
	c.entries[key] = &entry[T]{value: v, lastUsed: now}
	return v
}

func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len counts entries, expired ones not yet swept included.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep evicts every expired entry and returns how many were removed.
func (c *Cache[T]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	evicted := make(map[string]T)
	for key, e := range c.entries {
		if c.expired(e, now) {
			evicted[key] = e.value
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for key, v := range evicted {
			c.onEvict(key, v)
		}
	}
	return len(evicted)
}

// Close stops the sweeper and waits for it to exit.
func (c *Cache[T]) Close() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Cache[T]) expired(e *entry[T], now time.Time) bool {
	return now.Sub(e.lastUsed) > c.ttl
}

func (c *Cache[T]) sweep(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}
