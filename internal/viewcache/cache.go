// Package viewcache holds the locally rendered view of remote collections.
//
// A Cache is an ordered keyed list. Every mutation runs under one lock, and Update hands the
// mutation function the current entry so writes that land after network calls never work on
// a stale copy.
package viewcache

import (
	"slices"
	"sync"
)

// Cache is an ordered collection of V keyed by K
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	key   func(V) K
	order []K
	items map[K]V
}

// New creates an empty Cache that derives keys with key
func New[K comparable, V any](key func(V) K) *Cache[K, V] {
	return &Cache[K, V]{key: key, items: map[K]V{}}
}

// Reset replaces the whole collection
func (c *Cache[K, V]) Reset(values []V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = make([]K, 0, len(values))
	c.items = make(map[K]V, len(values))
	for _, v := range values {
		k := c.key(v)
		if _, dup := c.items[k]; !dup {
			c.order = append(c.order, k)
		}
		c.items[k] = v
	}
}

// List returns a snapshot in order
func (c *Cache[K, V]) List() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]V, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.items[k])
	}
	return out
}

// Len returns the number of entries
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Get returns the entry for k
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[k]
	return v, ok
}

// Prepend inserts v first, replacing any entry with the same key
func (c *Cache[K, V]) Prepend(v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.key(v)
	c.drop(k)
	c.order = append([]K{k}, c.order...)
	c.items[k] = v
}

// Append inserts v last, replacing any entry with the same key
func (c *Cache[K, V]) Append(v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.key(v)
	c.drop(k)
	c.order = append(c.order, k)
	c.items[k] = v
}

// Replace swaps the entry with v's key in place. It reports false when no such entry exists.
func (c *Cache[K, V]) Replace(v V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.key(v)
	if _, ok := c.items[k]; !ok {
		return false
	}
	c.items[k] = v
	return true
}

// Upsert replaces the entry in place or appends v
func (c *Cache[K, V]) Upsert(v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.key(v)
	if _, ok := c.items[k]; !ok {
		c.order = append(c.order, k)
	}
	c.items[k] = v
}

// Remove deletes the entry for k and reports whether it existed
func (c *Cache[K, V]) Remove(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drop(k)
}

// Update applies fn to the current entry for k. fn returns the new value and whether to keep
// it; returning false removes the entry. Update reports whether the entry existed.
func (c *Cache[K, V]) Update(k K, fn func(V) (V, bool)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.items[k]
	if !ok {
		return false
	}
	next, keep := fn(cur)
	if !keep {
		c.drop(k)
		return true
	}
	c.items[k] = next
	return true
}

// drop removes k; callers hold the lock
func (c *Cache[K, V]) drop(k K) bool {
	if _, ok := c.items[k]; !ok {
		return false
	}
	delete(c.items, k)
	if i := slices.Index(c.order, k); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	return true
}

// Tx is an optimistic change to one entry that is either confirmed or rolled back
type Tx[K comparable, V any] struct {
	c       *Cache[K, V]
	key     K
	prior   V
	existed bool
	index   int
	done    bool
}

// Begin captures the entry for k, then applies apply to it. apply receives the zero value
// and false when the entry is absent; its result is stored unless it reports false.
func (c *Cache[K, V]) Begin(k K, apply func(V, bool) (V, bool)) *Tx[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	prior, existed := c.items[k]
	tx := &Tx[K, V]{c: c, key: k, prior: prior, existed: existed, index: slices.Index(c.order, k)}

	next, keep := apply(prior, existed)
	switch {
	case keep && existed:
		c.items[k] = next
	case keep:
		c.order = append(c.order, k)
		c.items[k] = next
	case existed:
		c.drop(k)
	}
	return tx
}

// Commit replaces the optimistic value with the confirmed one
func (tx *Tx[K, V]) Commit(confirmed V) {
	c := tx.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if tx.done {
		return
	}
	tx.done = true
	if _, ok := c.items[tx.key]; !ok {
		c.order = append(c.order, tx.key)
	}
	c.items[tx.key] = confirmed
}

// Rollback restores the entry captured by Begin, or its absence
func (tx *Tx[K, V]) Rollback() {
	c := tx.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if tx.done {
		return
	}
	tx.done = true
	if !tx.existed {
		c.drop(tx.key)
		return
	}
	if _, ok := c.items[tx.key]; !ok {
		i := min(max(tx.index, 0), len(c.order))
		c.order = slices.Insert(c.order, i, tx.key)
	}
	c.items[tx.key] = tx.prior
}
