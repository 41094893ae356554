package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend keeps cache entries in badger. Expiry uses badger's
// native entry TTL; a collection is dropped by deleting its key prefix
// through a write batch.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger cache at dir. An empty dir
// opens an in-memory store.
func OpenBadger(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithSyncWrites(false)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

// Get returns a live entry.
func (b *BadgerBackend) Get(collection, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(compositeKey(collection, key)))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	return value, true, nil
}

// Set stores a value with a TTL.
func (b *BadgerBackend) Set(collection, key string, value []byte, ttl time.Duration) error {
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(compositeKey(collection, key)), value).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// DropCollection removes every key of the collection.
func (b *BadgerBackend) DropCollection(collection string) error {
	return b.deletePrefix([]byte(collection + "\x00"))
}

// DropAll removes everything.
func (b *BadgerBackend) DropAll() error {
	return b.deletePrefix(nil)
}

func (b *BadgerBackend) deletePrefix(prefix []byte) error {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	wb := b.db.NewWriteBatch()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			wb.Cancel()
			return fmt.Errorf("badger delete: %w", err)
		}
	}
	return wb.Flush()
}

// Len counts live keys.
func (b *BadgerBackend) Len() (int, error) {
	n := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Name identifies the backend.
func (b *BadgerBackend) Name() string { return "badger" }

// Close closes the database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
