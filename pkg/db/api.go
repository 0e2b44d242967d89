package db

// KVStore is the contract an embedded ordered key-value engine has to
// satisfy to sit behind a store.Handle. Implementations own exactly one
// engine connection and must be safe for concurrent use.
type KVStore interface {
	Writer
	// Get returns the value for key or ErrNotFound.
	Get(key []byte) ([]byte, error)
	// MultiGet returns one slot per key, in input order. A miss is a nil slot.
	MultiGet(keys [][]byte) ([][]byte, error)
	// Has reports whether key may exist. False positives are allowed,
	// false negatives are not.
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	// Write applies every operation of b as one atomic unit.
	Write(b *Batch) error
	NewIterator() (Iterator, error)
	Close() error
}

type Writer interface {
	Put(key []byte, value []byte) error
}

// Iterator is a raw engine cursor over the whole keyspace.
// Key and Value return copies owned by the caller. Iterators must be closed
// after use and before the store they were created from.
type Iterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Valid() bool
	Key() []byte
	Value() ([]byte, error)
	// Error returns the accumulated error, exhaustion is not an error.
	Error() error
	Close() error
}
