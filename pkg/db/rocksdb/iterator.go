//go:build darwin || linux

package rocksdb

import (
	"unsafe"

	"github.com/eigerco/berrydb/pkg/db"
)

// Iterator wraps a native rocksdb_iterator_t. It is not safe for concurrent
// use.
type Iterator struct {
	store *KVStore
	iter  uintptr
}

func (r *KVStore) NewIterator() (db.Iterator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, db.ErrClosed
	}

	it := &Iterator{store: r, iter: rocksdbCreateIterator(r.db, r.readOpts)}
	r.iters[it] = struct{}{}
	return it, nil
}

func (it *Iterator) alive() bool {
	return it.iter != 0
}

func (it *Iterator) First() bool {
	if !it.alive() {
		return false
	}
	rocksdbIterSeekToFirst(it.iter)
	return it.Valid()
}

func (it *Iterator) Last() bool {
	if !it.alive() {
		return false
	}
	rocksdbIterSeekToLast(it.iter)
	return it.Valid()
}

func (it *Iterator) Next() bool {
	if !it.Valid() {
		return false
	}
	rocksdbIterNext(it.iter)
	return it.Valid()
}

func (it *Iterator) Prev() bool {
	if !it.Valid() {
		return false
	}
	rocksdbIterPrev(it.iter)
	return it.Valid()
}

func (it *Iterator) Valid() bool {
	return it.alive() && rocksdbIterValid(it.iter) != 0
}

func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	var n uintptr
	key := rocksdbIterKey(it.iter, unsafe.Pointer(&n))
	return goBytes(key, n)
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.Valid() {
		return nil, db.ErrIteratorInvalid
	}
	var n uintptr
	value := rocksdbIterValue(it.iter, unsafe.Pointer(&n))
	return goBytes(value, n), nil
}

func (it *Iterator) Error() error {
	if !it.alive() {
		return nil
	}
	var errptr uintptr
	rocksdbIterGetError(it.iter, unsafe.Pointer(&errptr))
	return db.EngineError("iterate", takeError(errptr))
}

// Close destroys the native iterator. It is idempotent and a no-op after
// the store was closed, since Close already destroyed it.
func (it *Iterator) Close() error {
	it.store.mu.Lock()
	defer it.store.mu.Unlock()

	if it.store.closed {
		return nil
	}
	delete(it.store.iters, it)
	return it.destroy()
}

// destroy must be called with the store lock held.
func (it *Iterator) destroy() error {
	if !it.alive() {
		return nil
	}
	err := it.Error()
	rocksdbIterDestroy(it.iter)
	it.iter = 0
	return err
}
