// Package cache holds the in-memory snapshot of each Telldus collection.
//
// A Collection is either cold or holds a complete snapshot installed by
// Replace. Every method takes the collection's own lock for the duration of
// the in-memory work only; callers perform network and disk I/O without it.
package cache

import (
	"sync"
	"telldus-bridge/internal/domain/model"
	"time"
)

// Item is anything cached by id.
type Item interface {
	Key() model.ID
}

// cloner is implemented by items holding maps or slices. Items that do not
// implement it are copied by value.
type cloner[T any] interface {
	Clone() T
}

func clone[T Item](v T) T {
	if c, ok := any(v).(cloner[T]); ok {
		return c.Clone()
	}
	return v
}

func cloneAll[T Item](items []T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = clone(it)
	}
	return out
}

type Collection[T Item] struct {
	name string
	ttl  time.Duration

	mu          sync.RWMutex
	items       []T
	loaded      bool
	refreshedAt time.Time
}

func NewCollection[T Item](name string, ttl time.Duration) *Collection[T] {
	return &Collection[T]{name: name, ttl: ttl}
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) TTL() time.Duration { return c.ttl }

// NeedsRefresh reports whether the collection is cold or at least TTL old.
func (c *Collection[T]) NeedsRefresh(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return true
	}
	return now.Sub(c.refreshedAt) >= c.ttl
}

// All returns a deep copy of the current snapshot, empty when cold.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.items)
}

// Get looks up an item by canonical id.
func (c *Collection[T]) Get(id model.ID) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id.Canonical()); i >= 0 {
		return clone(c.items[i]), true
	}
	var zero T
	return zero, false
}

// Replace installs a new snapshot wholesale and stamps it with now.
func (c *Collection[T]) Replace(items []T, now time.Time) {
	snapshot := cloneAll(items)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = snapshot
	c.loaded = true
	c.refreshedAt = now
}

// Update applies fn to the item with the given id in place. The freshness
// timestamp is left untouched. It reports the updated item and false when
// no such item is cached.
func (c *Collection[T]) Update(id model.ID, fn func(*T)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id.Canonical())
	if i < 0 {
		var zero T
		return zero, false
	}
	fn(&c.items[i])
	return clone(c.items[i]), true
}

// RefreshedAt returns the time of the last Replace and whether one happened.
func (c *Collection[T]) RefreshedAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt, c.loaded
}

func (c *Collection[T]) indexOf(id model.ID) int {
	for i := range c.items {
		if c.items[i].Key() == id {
			return i
		}
	}
	return -1
}

// Find returns the first item in items whose id matches.
func Find[T Item](items []T, id model.ID) (T, bool) {
	id = id.Canonical()
	for _, it := range items {
		if it.Key() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}
