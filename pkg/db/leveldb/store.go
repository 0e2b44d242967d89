// Package leveldb backs db.KVStore with the pure Go goleveldb engine.
package leveldb

import (
	"errors"
	"sync"

	"github.com/eigerco/berrydb/pkg/db"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

const (
	blockCacheCapacity = 64 * opt.MiB
	writeBuffer        = 32 * opt.MiB
)

// Options configures a goleveldb backed KVStore.
type Options struct {
	ReadOnly bool
	NoSync   bool
	// InMemory keeps the store in memory storage. Path is ignored.
	InMemory bool
}

type KVStore struct {
	db        *leveldb.DB
	writeOpts *opt.WriteOptions
	readOnly  bool
	closed    bool
	mu        sync.RWMutex
}

// NewKVStore opens a fresh in-memory store.
func NewKVStore() (*KVStore, error) {
	return Open("", Options{InMemory: true})
}

// Open opens the database at path. Read-only opens of a missing database fail.
func Open(path string, o Options) (*KVStore, error) {
	if o.InMemory && o.ReadOnly {
		return nil, db.ErrInvalidArgument
	}

	opts := &opt.Options{
		BlockCacheCapacity: blockCacheCapacity,
		WriteBuffer:        writeBuffer,
		ReadOnly:           o.ReadOnly,
		ErrorIfMissing:     o.ReadOnly,
	}

	var (
		ldb *leveldb.DB
		err error
	)
	if o.InMemory {
		ldb, err = leveldb.Open(storage.NewMemStorage(), opts)
	} else {
		ldb, err = leveldb.OpenFile(path, opts)
	}
	if err != nil {
		return nil, db.EngineError("open", err)
	}

	return &KVStore{
		db:        ldb,
		writeOpts: &opt.WriteOptions{Sync: !o.NoSync},
		readOnly:  o.ReadOnly,
	}, nil
}

func (l *KVStore) Get(key []byte) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, db.ErrClosed
	}
	return l.get(key)
}

func (l *KVStore) get(key []byte) ([]byte, error) {
	value, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, db.EngineError("get", err)
	}

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (l *KVStore) MultiGet(keys [][]byte) ([][]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, db.ErrClosed
	}

	// One snapshot so every slot is read at the same sequence number.
	snap, err := l.db.GetSnapshot()
	if err != nil {
		return nil, db.EngineError("snapshot", err)
	}
	defer snap.Release()

	values := make([][]byte, len(keys))
	for i, key := range keys {
		value, err := snap.Get(key, nil)
		if errors.Is(err, leveldb.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, db.EngineError("multi get", err)
		}
		values[i] = make([]byte, len(value))
		copy(values[i], value)
	}
	return values, nil
}

func (l *KVStore) Has(key []byte) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return false, db.ErrClosed
	}

	ok, err := l.db.Has(key, nil)
	if err != nil {
		return false, db.EngineError("has", err)
	}
	return ok, nil
}

func (l *KVStore) Put(key, value []byte) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.writable(); err != nil {
		return err
	}
	return db.EngineError("put", l.db.Put(key, value, l.writeOpts))
}

func (l *KVStore) Delete(key []byte) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.writable(); err != nil {
		return err
	}
	return db.EngineError("delete", l.db.Delete(key, l.writeOpts))
}

// batchWriter collects db.Batch operations into a native leveldb batch.
type batchWriter struct {
	batch *leveldb.Batch
}

func (w batchWriter) Put(key, value []byte) error {
	w.batch.Put(key, value)
	return nil
}

func (w batchWriter) Delete(key []byte) error {
	w.batch.Delete(key)
	return nil
}

func (l *KVStore) Write(b *db.Batch) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.writable(); err != nil {
		return err
	}

	w := batchWriter{batch: new(leveldb.Batch)}
	if err := b.Replay(w); err != nil {
		return db.EngineError("batch", err)
	}
	return db.EngineError("write batch", l.db.Write(w.batch, l.writeOpts))
}

func (l *KVStore) writable() error {
	if l.closed {
		return db.ErrClosed
	}
	if l.readOnly {
		return db.ErrReadOnly
	}
	return nil
}

func (l *KVStore) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return db.EngineError("close", l.db.Close())
}
