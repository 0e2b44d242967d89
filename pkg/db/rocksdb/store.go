//go:build darwin || linux

package rocksdb

import (
	"errors"
	"runtime"
	"sync"
	"unsafe"

	"github.com/eigerco/berrydb/pkg/db"
	"go.uber.org/multierr"
)

// KVStore owns one native rocksdb_t and the option objects it was opened
// with. Every native object is destroyed exactly once, in Close.
type KVStore struct {
	db        uintptr
	opts      uintptr
	readOpts  uintptr
	writeOpts uintptr
	readOnly  bool

	mu     sync.RWMutex
	closed bool
	iters  map[*Iterator]struct{}
}

// Open opens the database at path. Read-write opens create it when missing.
func Open(path string, o Options) (*KVStore, error) {
	if path == "" {
		return nil, db.ErrInvalidArgument
	}
	if err := Load(); err != nil {
		return nil, err
	}

	opts := rocksdbOptionsCreate()
	if !o.ReadOnly {
		rocksdbOptionsSetCreateIfMissing(opts, 1)
	}
	if o.Parallelism > 0 {
		rocksdbOptionsIncreaseParallelism(opts, int32(o.Parallelism))
	}

	name := cString(path)
	var (
		errptr uintptr
		handle uintptr
	)
	if o.ReadOnly {
		handle = rocksdbOpenForReadOnly(opts, unsafe.Pointer(&name[0]), 0, unsafe.Pointer(&errptr))
	} else {
		handle = rocksdbOpen(opts, unsafe.Pointer(&name[0]), unsafe.Pointer(&errptr))
	}
	runtime.KeepAlive(name)

	if err := takeError(errptr); err != nil {
		rocksdbOptionsDestroy(opts)
		return nil, db.EngineError("open", err)
	}

	writeOpts := rocksdbWriteoptionsCreate()
	if !o.NoSync {
		rocksdbWriteoptionsSetSync(writeOpts, 1)
	}

	return &KVStore{
		db:        handle,
		opts:      opts,
		readOpts:  rocksdbReadoptionsCreate(),
		writeOpts: writeOpts,
		readOnly:  o.ReadOnly,
		iters:     make(map[*Iterator]struct{}),
	}, nil
}

func (r *KVStore) Get(key []byte) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, db.ErrClosed
	}
	return r.get(key)
}

func (r *KVStore) get(key []byte) ([]byte, error) {
	var errptr uintptr
	slice := rocksdbGetPinned(r.db, r.readOpts, slicePtr(key), uintptr(len(key)), unsafe.Pointer(&errptr))
	runtime.KeepAlive(key)

	if err := takeError(errptr); err != nil {
		return nil, db.EngineError("get", err)
	}
	if slice == 0 {
		return nil, db.ErrNotFound
	}
	defer rocksdbPinnablesliceDestroy(slice)

	var n uintptr
	value := rocksdbPinnablesliceValue(slice, unsafe.Pointer(&n))
	return goBytes(value, n), nil
}

// MultiGet uses pinned point lookups so a miss and an empty value stay
// distinguishable.
func (r *KVStore) MultiGet(keys [][]byte) ([][]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, db.ErrClosed
	}

	values := make([][]byte, len(keys))
	for i, key := range keys {
		value, err := r.get(key)
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

// Has maps to rocksdb_key_may_exist, it may report false positives.
func (r *KVStore) Has(key []byte) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, db.ErrClosed
	}

	// The C shim writes through value and valLen unconditionally, and
	// hands back a malloc'ed copy when valueFound is set.
	var (
		value, valLen uintptr
		valueFound    uint8
	)
	ok := rocksdbKeyMayExist(r.db, r.readOpts, slicePtr(key), uintptr(len(key)),
		unsafe.Pointer(&value), unsafe.Pointer(&valLen), nil, 0, unsafe.Pointer(&valueFound))
	runtime.KeepAlive(key)
	if valueFound != 0 && value != 0 {
		rocksdbFree(value)
	}
	return ok != 0, nil
}

func (r *KVStore) Put(key, value []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.writable(); err != nil {
		return err
	}

	var errptr uintptr
	rocksdbPut(r.db, r.writeOpts, slicePtr(key), uintptr(len(key)), slicePtr(value), uintptr(len(value)), unsafe.Pointer(&errptr))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)

	return db.EngineError("put", takeError(errptr))
}

func (r *KVStore) Delete(key []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.writable(); err != nil {
		return err
	}

	var errptr uintptr
	rocksdbDelete(r.db, r.writeOpts, slicePtr(key), uintptr(len(key)), unsafe.Pointer(&errptr))
	runtime.KeepAlive(key)

	return db.EngineError("delete", takeError(errptr))
}

// writeBatch is a native rocksdb_writebatch_t filled through db.BatchHandler.
type writeBatch struct {
	batch uintptr
}

func (w writeBatch) Put(key, value []byte) error {
	rocksdbWritebatchPut(w.batch, slicePtr(key), uintptr(len(key)), slicePtr(value), uintptr(len(value)))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
	return nil
}

func (w writeBatch) Delete(key []byte) error {
	rocksdbWritebatchDelete(w.batch, slicePtr(key), uintptr(len(key)))
	runtime.KeepAlive(key)
	return nil
}

func (r *KVStore) Write(b *db.Batch) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.writable(); err != nil {
		return err
	}

	w := writeBatch{batch: rocksdbWritebatchCreate()}
	defer rocksdbWritebatchDestroy(w.batch)

	if err := b.Replay(w); err != nil {
		return db.EngineError("batch", err)
	}

	var errptr uintptr
	rocksdbWrite(r.db, r.writeOpts, w.batch, unsafe.Pointer(&errptr))
	return db.EngineError("write batch", takeError(errptr))
}

func (r *KVStore) writable() error {
	if r.closed {
		return db.ErrClosed
	}
	if r.readOnly {
		return db.ErrReadOnly
	}
	return nil
}

// Close destroys live iterators before the database, closing a rocksdb_t
// with open iterators is undefined behaviour in the C API.
func (r *KVStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	for it := range r.iters {
		err = multierr.Append(err, it.destroy())
	}
	r.iters = nil

	rocksdbClose(r.db)
	rocksdbReadoptionsDestroy(r.readOpts)
	rocksdbWriteoptionsDestroy(r.writeOpts)
	rocksdbOptionsDestroy(r.opts)
	r.db = 0

	return err
}
