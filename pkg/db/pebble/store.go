package pebble

import (
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/eigerco/berrydb/pkg/db"
)

const (
	cacheSize    = 64 << 20 // 64MB
	memTableSize = 32 << 20 // 32MB
)

// Options configures a pebble backed KVStore.
type Options struct {
	ReadOnly bool
	// NoSync skips the fsync of the WAL on every write.
	NoSync bool
	// InMemory keeps the whole store in a memory filesystem. Path is ignored.
	InMemory bool
}

// KVStore is a db.KVStore on top of a pebble database.
type KVStore struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	readOnly  bool
	closed    bool
	mu        sync.RWMutex
}

// NewKVStore opens a fresh in-memory store.
func NewKVStore() (*KVStore, error) {
	return Open("", Options{InMemory: true})
}

// Open opens the pebble database at path. A read-write open creates the
// database when it is missing, a read-only open fails instead.
func Open(path string, o Options) (*KVStore, error) {
	if o.InMemory && o.ReadOnly {
		return nil, db.ErrInvalidArgument
	}

	cache := pebble.NewCache(cacheSize)
	defer cache.Unref()

	opts := &pebble.Options{
		Cache:            cache,
		MemTableSize:     memTableSize,
		ReadOnly:         o.ReadOnly,
		ErrorIfNotExists: o.ReadOnly,
		Levels:           make([]pebble.LevelOptions, 7),
	}
	for i := range opts.Levels {
		l := &opts.Levels[i]
		l.FilterPolicy = bloom.FilterPolicy(10)
		l.FilterType = pebble.TableFilter
		l.EnsureDefaults()
	}
	if o.InMemory {
		opts.FS = vfs.NewMem()
		path = ""
	}
	opts.EnsureDefaults()

	pdb, err := pebble.Open(path, opts)
	if err != nil {
		return nil, db.EngineError("open", err)
	}

	writeOpts := pebble.Sync
	if o.NoSync {
		writeOpts = pebble.NoSync
	}

	return &KVStore{db: pdb, writeOpts: writeOpts, readOnly: o.ReadOnly}, nil
}

func (p *KVStore) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, db.ErrClosed
	}
	return p.get(key)
}

func (p *KVStore) get(key []byte) ([]byte, error) {
	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, db.EngineError("get", err)
	}
	defer closer.Close() //nolint:errcheck // closing a get result never fails

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// MultiGet looks every key up under a single read lock.
func (p *KVStore) MultiGet(keys [][]byte) ([][]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, db.ErrClosed
	}

	values := make([][]byte, len(keys))
	for i, key := range keys {
		value, err := p.get(key)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

// Has is exact for pebble: it performs a point lookup.
func (p *KVStore) Has(key []byte) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false, db.ErrClosed
	}

	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, db.EngineError("has", err)
	}
	return true, closer.Close()
}

func (p *KVStore) Put(key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.writable(); err != nil {
		return err
	}
	return db.EngineError("put", p.db.Set(key, value, p.writeOpts))
}

func (p *KVStore) Delete(key []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.writable(); err != nil {
		return err
	}
	return db.EngineError("delete", p.db.Delete(key, p.writeOpts))
}

// Write translates b into a native pebble batch and commits it atomically.
func (p *KVStore) Write(b *db.Batch) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.writable(); err != nil {
		return err
	}

	batch := p.newBatch()
	defer batch.Close() //nolint:errcheck // close after commit is a no-op

	if err := b.Replay(batch); err != nil {
		return db.EngineError("batch", err)
	}
	return batch.Commit()
}

func (p *KVStore) writable() error {
	if p.closed {
		return db.ErrClosed
	}
	if p.readOnly {
		return db.ErrReadOnly
	}
	return nil
}

// Close closes the database. All iterators have to be closed before.
func (p *KVStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return db.EngineError("close", p.db.Close())
}
