package cache

import (
	"context"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/modelfetch/modelfetch/internal/domain"
)

// BadgerCache is a persistent store implementation using BadgerDB
type BadgerCache struct {
	db *badger.DB
}

// Ensure BadgerCache implements domain.Cache
var _ domain.Cache = (*BadgerCache)(nil)

// Options contains cache configuration options
type Options struct {
	Directory string
	InMemory  bool
	Logger    bool
}

// NewBadgerCache creates a new BadgerDB cache
func NewBadgerCache(opts Options) (*BadgerCache, error) {
	var badgerOpts badger.Options

	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Directory == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			opts.Directory = homeDir + "/.modelfetch/cache"
		}

		if err := os.MkdirAll(opts.Directory, 0755); err != nil {
			return nil, err
		}

		badgerOpts = badger.DefaultOptions(opts.Directory)
	}

	if !opts.Logger {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	return &BadgerCache{db: db}, nil
}

// Get retrieves a value from the cache
func (c *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return domain.ErrCacheMiss
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set stores a value in the cache with an optional TTL
func (c *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes a key from the cache
func (c *BadgerCache) Delete(ctx context.Context, key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close closes the underlying database
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
