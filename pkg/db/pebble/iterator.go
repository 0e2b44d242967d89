package pebble

import (
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/eigerco/berrydb/pkg/db"
)

type Iterator struct {
	iter   *pebble.Iterator
	closed atomic.Bool
}

func (p *KVStore) NewIterator() (db.Iterator, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, db.ErrClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf(db.ErrInIteratorCreation, db.ErrEngine, err)
	}
	return &Iterator{iter: iter}, nil
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

	val, err := it.iter.ValueAndErr()
	if err != nil {
		return nil, fmt.Errorf(db.ErrIteratorValue, db.ErrEngine, err)
	}

	result := make([]byte, len(val))
	copy(result, val)
	return result, nil
}

func (it *Iterator) Valid() bool {
	return it.iter.Valid()
}

func (it *Iterator) Error() error {
	return db.EngineError("iterate", it.iter.Error())
}

func (it *Iterator) Close() error {
	if !it.closed.CompareAndSwap(false, true) {
		return nil
	}
	return db.EngineError("close iterator", it.iter.Close())
}
