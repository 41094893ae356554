package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a MemoryBackend.
const DefaultMaxEntries = 1000

type memEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is a bounded LRU map with per-entry expiry.
type MemoryBackend struct {
	mu         sync.Mutex
	maxEntries int
	list       *list.List
	items      map[string]*list.Element
	now        func() time.Time
}

// NewMemoryBackend creates a backend holding at most maxEntries entries
// (DefaultMaxEntries when <= 0). now may be nil.
func NewMemoryBackend(maxEntries int, now func() time.Time) *MemoryBackend {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryBackend{
		maxEntries: maxEntries,
		list:       list.New(),
		items:      make(map[string]*list.Element),
		now:        now,
	}
}

// Get returns a live entry and marks it recently used.
func (m *MemoryBackend) Get(collection, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[compositeKey(collection, key)]
	if !ok {
		return nil, false, nil
	}
	entry := elem.Value.(*memEntry)
	if !m.now().Before(entry.expiresAt) {
		m.remove(elem)
		return nil, false, nil
	}
	m.list.MoveToFront(elem)
	return entry.value, true, nil
}

// Set stores a value, evicting the least recently used entry when full.
func (m *MemoryBackend) Set(collection, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ck := compositeKey(collection, key)
	entry := &memEntry{key: ck, value: value, expiresAt: m.now().Add(ttl)}
	if elem, ok := m.items[ck]; ok {
		elem.Value = entry
		m.list.MoveToFront(elem)
		return nil
	}
	for m.list.Len() >= m.maxEntries {
		m.remove(m.list.Back())
	}
	m.items[ck] = m.list.PushFront(entry)
	return nil
}

// DropCollection removes every entry of a collection.
func (m *MemoryBackend) DropCollection(collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := collection + "\x00"
	for k, elem := range m.items {
		if strings.HasPrefix(k, prefix) {
			m.remove(elem)
		}
	}
	return nil
}

// DropAll empties the backend.
func (m *MemoryBackend) DropAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list.Init()
	m.items = make(map[string]*list.Element)
	return nil
}

// Sweep removes expired entries and returns how many it removed.
func (m *MemoryBackend) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for _, elem := range m.items {
		if !now.Before(elem.Value.(*memEntry).expiresAt) {
			m.remove(elem)
			removed++
		}
	}
	return removed
}

// Len counts stored entries, expired or not.
func (m *MemoryBackend) Len() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list.Len(), nil
}

// Name identifies the backend.
func (m *MemoryBackend) Name() string { return "memory" }

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }

func (m *MemoryBackend) remove(elem *list.Element) {
	m.list.Remove(elem)
	delete(m.items, elem.Value.(*memEntry).key)
}
