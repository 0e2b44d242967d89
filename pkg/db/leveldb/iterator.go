package leveldb

import (
	"fmt"
	"sync/atomic"

	"github.com/eigerco/berrydb/pkg/db"
	"github.com/syndtr/goleveldb/leveldb/iterator"
)

type Iterator struct {
	iter     iterator.Iterator
	released atomic.Bool
}

func (l *KVStore) NewIterator() (db.Iterator, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, db.ErrClosed
	}
	return &Iterator{iter: l.db.NewIterator(nil, nil)}, nil
}

func (it *Iterator) First() bool {
	return it.iter.First()
}

func (it *Iterator) Last() bool {
	return it.iter.Last()
}

func (it *Iterator) Next() bool {
	return it.iter.Next()
}

func (it *Iterator) Prev() bool {
	return it.iter.Prev()
}

func (it *Iterator) Valid() bool {
	return it.iter.Valid()
}

func (it *Iterator) Key() []byte {
	key := it.iter.Key()
	result := make([]byte, len(key))
	copy(result, key)
	return result
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.iter.Valid() {
		return nil, db.ErrIteratorInvalid
	}
	if err := it.iter.Error(); err != nil {
		return nil, fmt.Errorf(db.ErrIteratorValue, db.ErrEngine, err)
	}

	val := it.iter.Value()
	result := make([]byte, len(val))
	copy(result, val)
	return result, nil
}

func (it *Iterator) Error() error {
	return db.EngineError("iterate", it.iter.Error())
}

// Close releases the leveldb iterator. Release never fails in goleveldb.
func (it *Iterator) Close() error {
	if it.released.CompareAndSwap(false, true) {
		it.iter.Release()
	}
	return nil
}
