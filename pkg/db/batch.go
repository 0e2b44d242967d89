package db

// OpKind is the kind of a pending batch operation.
type OpKind uint8

const (
	OpPut OpKind = iota + 1
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Op is one pending write. Value is nil for deletes.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

// BatchHandler receives the operations of a batch in insertion order.
// Engines implement it to translate a Batch into their native batch type.
type BatchHandler interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Batch is an ordered, in-memory sequence of writes that is applied
// atomically when handed to KVStore.Write. A Batch is not bound to any
// store and may be committed more than once. It is not safe for
// concurrent mutation.
type Batch struct {
	ops  []Op
	size int
}

func NewBatch() *Batch {
	return &Batch{}
}

// Put appends a put operation. Key and value are copied.
func (b *Batch) Put(key, value []byte) error {
	b.ops = append(b.ops, Op{Kind: OpPut, Key: clone(key), Value: cloneValue(value)})
	b.size += len(key) + len(value)
	return nil
}

// Delete appends a delete operation. The key is copied.
func (b *Batch) Delete(key []byte) error {
	b.ops = append(b.ops, Op{Kind: OpDelete, Key: clone(key)})
	b.size += len(key)
	return nil
}

// Len returns the number of pending operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Size returns the number of key and value bytes held by the batch.
func (b *Batch) Size() int {
	return b.size
}

// Reset drops every pending operation so the batch can be refilled.
func (b *Batch) Reset() {
	b.ops = b.ops[:0]
	b.size = 0
}

// Replay feeds every operation to h in insertion order and stops at the
// first error.
func (b *Batch) Replay(h BatchHandler) error {
	for _, op := range b.ops {
		var err error
		switch op.Kind {
		case OpPut:
			err = h.Put(op.Key, op.Value)
		case OpDelete:
			err = h.Delete(op.Key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Ops returns a copy of the pending operations, keys and values included.
func (b *Batch) Ops() []Op {
	ops := make([]Op, len(b.ops))
	for i, op := range b.ops {
		ops[i] = Op{Kind: op.Kind, Key: clone(op.Key)}
		if op.Value != nil {
			ops[i].Value = clone(op.Value)
		}
	}
	return ops
}

func clone(b []byte) []byte {
	result := make([]byte, len(b))
	copy(result, b)
	return result
}

// cloneValue keeps an empty value distinct from a missing one.
func cloneValue(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return clone(b)
}
