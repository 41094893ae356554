package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/focusql/internal/logging"
)

// Stats is a snapshot of cache counters.
type Stats struct {
	Backend       string            `json:"backend"`
	Enabled       bool              `json:"enabled"`
	Entries       int               `json:"entries"`
	Hits          uint64            `json:"hits"`
	Misses        uint64            `json:"misses"`
	Stores        uint64            `json:"stores"`
	StaleSkips    uint64            `json:"staleSkips"`
	Invalidations uint64            `json:"invalidations"`
	Generations   map[string]uint64 `json:"generations,omitempty"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type collectionState struct {
	mu         sync.RWMutex
	generation uint64
}

// Cache is the collection-scoped result cache. Values are JSON encoded on
// write, so a cached record can never be mutated through a reference held
// by a caller.
type Cache struct {
	backend Backend
	ttls    map[string]time.Duration
	logger  *slog.Logger

	mu          sync.Mutex
	collections map[string]*collectionState

	hits          atomic.Uint64
	misses        atomic.Uint64
	stores        atomic.Uint64
	staleSkips    atomic.Uint64
	invalidations atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the lifetime of one collection.
func WithTTL(collection string, ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttls[collection] = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a Cache over backend. A nil backend disables caching.
func New(backend Backend, opts ...Option) *Cache {
	if backend == nil {
		backend = NopBackend{}
	}
	c := &Cache{
		backend:     backend,
		ttls:        make(map[string]time.Duration, len(DefaultTTLs)),
		collections: make(map[string]*collectionState),
	}
	for k, v := range DefaultTTLs {
		c.ttls[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.Default(c.logger).With("component", "cache")
	return c
}

// Enabled reports whether entries are actually retained.
func (c *Cache) Enabled() bool {
	_, nop := c.backend.(NopBackend)
	return !nop
}

// TTL returns the lifetime applied to a collection.
func (c *Cache) TTL(collection string) time.Duration {
	if ttl, ok := c.ttls[collection]; ok {
		return ttl
	}
	return fallbackTTL
}

func (c *Cache) state(collection string) *collectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.collections[collection]
	if !ok {
		st = &collectionState{}
		c.collections[collection] = st
	}
	return st
}

// Get decodes the entry at (collection, key) into dst. Backend failures
// count as misses.
func (c *Cache) Get(collection, key string, dst any) bool {
	st := c.state(collection)
	st.mu.RLock()
	data, ok, err := c.backend.Get(collection, key)
	st.mu.RUnlock()

	if err != nil {
		c.logger.Warn("cache read failed", "collection", collection, "error", err)
		ok = false
	}
	if ok {
		if err := json.Unmarshal(data, dst); err != nil {
			c.logger.Warn("cache entry undecodable", "collection", collection, "error", err)
			ok = false
		}
	}
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return ok
}

// Generation returns the current invalidation generation of a collection.
// Capture it before computing a value destined for SetIfCurrent.
func (c *Cache) Generation(collection string) uint64 {
	st := c.state(collection)
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.generation
}

// Set stores value unconditionally. ttl <= 0 uses the collection default.
func (c *Cache) Set(collection, key string, value any, ttl time.Duration) error {
	st := c.state(collection)
	st.mu.Lock()
	defer st.mu.Unlock()
	return c.store(collection, key, value, ttl)
}

// SetIfCurrent stores value only if the collection has not been
// invalidated since generation was captured. It reports whether the value
// was stored.
func (c *Cache) SetIfCurrent(collection, key string, value any, generation uint64) (bool, error) {
	st := c.state(collection)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.generation != generation {
		c.staleSkips.Add(1)
		return false, nil
	}
	if err := c.store(collection, key, value, 0); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) store(collection, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.TTL(collection)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.backend.Set(collection, key, data, ttl); err != nil {
		return fmt.Errorf("cache write %s: %w", collection, err)
	}
	c.stores.Add(1)
	return nil
}

// Invalidate drops every entry of the named collections. After it
// returns, no Get on those collections observes a value stored before
// the call.
func (c *Cache) Invalidate(collections ...string) error {
	var firstErr error
	for _, col := range collections {
		st := c.state(col)
		st.mu.Lock()
		st.generation++
		err := c.backend.DropCollection(col)
		st.mu.Unlock()

		c.invalidations.Add(1)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("invalidate %s: %w", col, err)
		}
	}
	if len(collections) > 0 {
		c.logger.Debug("invalidated", "collections", collections)
	}
	return firstErr
}

// InvalidateFor drops the collections a mutation of entity can affect.
func (c *Cache) InvalidateFor(entity string) ([]string, error) {
	cols := CollectionsFor(entity)
	return cols, c.Invalidate(cols...)
}

// InvalidateAll drops every collection.
func (c *Cache) InvalidateAll() error {
	c.mu.Lock()
	names := make([]string, 0, len(c.collections))
	for name := range c.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	states := make([]*collectionState, len(names))
	for i, name := range names {
		states[i] = c.collections[name]
	}
	c.mu.Unlock()

	// Fixed lock order keeps concurrent InvalidateAll calls deadlock free.

	for _, st := range states {
		st.mu.Lock()
	}
	for _, st := range states {
		st.generation++
	}
	err := c.backend.DropAll()
	for _, st := range states {
		st.mu.Unlock()
	}
	c.invalidations.Add(1)
	c.logger.Debug("invalidated all collections")
	return err
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	entries, err := c.backend.Len()
	if err != nil {
		c.logger.Warn("cache size unavailable", "error", err)
	}
	c.mu.Lock()
	gens := make(map[string]uint64, len(c.collections))
	for name, st := range c.collections {
		st.mu.RLock()
		gens[name] = st.generation
		st.mu.RUnlock()
	}
	c.mu.Unlock()

	return Stats{
		Backend:       c.backend.Name(),
		Enabled:       c.Enabled(),
		Entries:       entries,
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Stores:        c.stores.Load(),
		StaleSkips:    c.staleSkips.Load(),
		Invalidations: c.invalidations.Load(),
		Generations:   gens,
	}
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}
