package pebble

import (
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/eigerco/berrydb/pkg/db"
)

// Batch is a native pebble batch. It receives the operations of a db.Batch
// through db.BatchHandler and can be committed once.
type Batch struct {
	batch     *pebble.Batch
	writeOpts *pebble.WriteOptions
	done      atomic.Bool
}

func (p *KVStore) newBatch() *Batch {
	return &Batch{
		batch:     p.db.NewBatch(),
		writeOpts: p.writeOpts,
	}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	return b.batch.Set(key, value, nil)
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	return b.batch.Delete(key, nil)
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	if err := b.batch.Commit(b.writeOpts); err != nil {
		return fmt.Errorf(db.ErrFailedBatchCommit, db.ErrEngine, err)
	}
	b.done.Store(true)
	return b.batch.Close()
}

func (b *Batch) Close() error {
	if !b.done.CompareAndSwap(false, true) {
		return nil
	}
	return b.batch.Close()
}
