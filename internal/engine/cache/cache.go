// Package cache provides the memoizing key/value store every other engine
// component builds on. Entries live until explicitly deleted.
package cache

import (
	"sort"
	"sync"

	"rds/internal/shared/observability"
)

// Cache memoizes loader results per key. Only completed values are stored;
// concurrent misses on the same key may run the loader more than once.
type Cache[K comparable, V any] struct {
	name   string
	mu     sync.RWMutex
	values map[K]V
}

func New[K comparable, V any](name string) *Cache[K, V] {
	return &Cache[K, V]{name: name, values: make(map[K]V)}
}

// Get returns the cached value for key, computing and storing it with load on
// a miss. Loader errors are returned and nothing is stored.
func (c *Cache[K, V]) Get(key K, load func() (V, error)) (V, error) {
	c.mu.RLock()
	v, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		observability.CacheLookups.WithLabelValues(c.name, "hit").Inc()
		return v, nil
	}
	observability.CacheLookups.WithLabelValues(c.name, "miss").Inc()

	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	c.values[key] = v
	c.mu.Unlock()
	return v, nil
}

func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *Cache[K, V]) Set(key K, v V) {
	c.mu.Lock()
	c.values[key] = v
	c.mu.Unlock()
}

func (c *Cache[K, V]) Has(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.values[key]
	return ok
}

// Delete drops key and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	delete(c.values, key)
	return ok
}

// DeleteFunc drops every entry for which match returns true.
func (c *Cache[K, V]) DeleteFunc(match func(K, V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, v := range c.values {
		if match(k, v) {
			delete(c.values, k)
			n++
		}
	}
	return n
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.values = make(map[K]V)
	c.mu.Unlock()
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Keys returns a snapshot of the current keys. less orders them when non-nil.
func (c *Cache[K, V]) Keys(less func(a, b K) bool) []K {
	c.mu.RLock()
	keys := make([]K, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	if less != nil {
		sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	}
	return keys
}
