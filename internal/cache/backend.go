package cache

import (
	"time"
)

// Backend stores encoded values by (collection, key).
type Backend interface {
	Get(collection, key string) ([]byte, bool, error)
	Set(collection, key string, value []byte, ttl time.Duration) error
	DropCollection(collection string) error
	DropAll() error
	Len() (int, error)
	Name() string
	Close() error
}

// Sweepable backends need periodic removal of expired entries.
type Sweepable interface {
	Sweep() int
}

// NopBackend stores nothing; every lookup misses.
type NopBackend struct{}

func (NopBackend) Get(string, string) ([]byte, bool, error) { return nil, false, nil }
func (NopBackend) Set(string, string, []byte, time.Duration) error { return nil }
func (NopBackend) DropCollection(string) error { return nil }
func (NopBackend) DropAll() error { return nil }
func (NopBackend) Len() (int, error) { return 0, nil }
func (NopBackend) Name() string { return "off" }
func (NopBackend) Close() error { return nil }

func compositeKey(collection, key string) string {
	return collection + "\x00" + key
}
