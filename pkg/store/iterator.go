package store

import (
	"github.com/eigerco/berrydb/pkg/db"
)

type position uint8

const (
	beforeFirst position = iota
	onEntry
	afterLast
)

// Iterator is a cursor over the keyspace of a Handle, in ascending key
// order. A new Iterator is positioned before the first entry: Next moves to
// the first entry, Last to the last one. Moving past either end leaves the
// iterator in a terminal state from which only the opposite direction, or
// First/Last, leads back onto an entry.
//
// An Iterator must be released with Release and is not safe for concurrent
// use. A live Iterator keeps its Handle from being garbage collected.
// Closing the Handle releases it; afterwards every operation fails with
// ErrClosed.
type Iterator struct {
	*cursor
	owner *Handle // keeps the Handle reachable
}

// cursor is the state the handle tracks. It points at the inner handle
// only, so the handle's iterator set never reaches back to the Handle.
type cursor struct {
	h   *handle
	it  db.Iterator // nil once released or orphaned
	pos position
	err error

	released bool
	orphaned bool
}

// NewIterator returns an iterator positioned before the first entry.
func (h *Handle) NewIterator() (*Iterator, error) {
	c, err := h.newCursor()
	if err != nil {
		return nil, err
	}
	return &Iterator{cursor: c, owner: h}, nil
}

func (h *handle) newCursor() (*cursor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		return nil, ErrClosed
	}

	it, err := h.conn.NewIterator()
	if err != nil {
		return nil, err
	}

	c := &cursor{h: h, it: it}
	h.iters[c] = struct{}{}
	h.metrics.IteratorOpened()
	return c, nil
}

// check must be called with the handle lock held.
func (i *Iterator) check() error {
	if i.released {
		return ErrIteratorReleased
	}
	if i.orphaned || i.h.conn == nil {
		return ErrClosed
	}
	return nil
}

// move runs fn against the engine cursor and updates the position. When fn
// reports no entry the iterator is left at terminal.
func (i *Iterator) move(terminal position, fn func(it db.Iterator) bool) bool {
	i.h.mu.RLock()
	defer i.h.mu.RUnlock()

	if err := i.check(); err != nil {
		i.err = err
		return false
	}

	i.err = nil
	if fn(i.it) {
		i.pos = onEntry
		return true
	}
	i.pos = terminal
	if err := i.it.Error(); err != nil {
		i.err = err
	}
	return false
}

// First moves to the smallest key. It returns false if the keyspace is empty.
func (i *Iterator) First() bool {
	return i.move(afterLast, func(it db.Iterator) bool {
		return it.First()
	})
}

// Last moves to the largest key. It returns false if the keyspace is empty.
func (i *Iterator) Last() bool {
	return i.move(beforeFirst, func(it db.Iterator) bool {
		return it.Last()
	})
}

// Next moves to the following key.
func (i *Iterator) Next() bool {
	return i.move(afterLast, func(it db.Iterator) bool {
		switch i.pos {
		case beforeFirst:
			return it.First()
		case afterLast:
			return false
		default:
			return it.Next()
		}
	})
}

// Prev moves to the preceding key.
func (i *Iterator) Prev() bool {
	return i.move(beforeFirst, func(it db.Iterator) bool {
		switch i.pos {
		case afterLast:
			return it.Last()
		case beforeFirst:
			return false
		default:
			return it.Prev()
		}
	})
}

// Valid reports whether the iterator is positioned on an entry.
func (i *Iterator) Valid() bool {
	i.h.mu.RLock()
	defer i.h.mu.RUnlock()

	return i.check() == nil && i.pos == onEntry && i.it.Valid()
}

// current must be called with the handle lock held.
func (i *Iterator) current() error {
	if err := i.check(); err != nil {
		return err
	}
	if i.pos != onEntry || !i.it.Valid() {
		return ErrIteratorInvalid
	}
	return nil
}

// Key returns a copy of the current key.
func (i *Iterator) Key() ([]byte, error) {
	i.h.mu.RLock()
	defer i.h.mu.RUnlock()

	if err := i.current(); err != nil {
		return nil, err
	}
	return i.it.Key(), nil
}

// Value returns a copy of the current value.
func (i *Iterator) Value() ([]byte, error) {
	i.h.mu.RLock()
	defer i.h.mu.RUnlock()

	if err := i.current(); err != nil {
		return nil, err
	}
	return i.it.Value()
}

// Error returns the error that ended the last move, if any. Running off
// either end of the keyspace is not an error.
func (i *Iterator) Error() error {
	i.h.mu.RLock()
	defer i.h.mu.RUnlock()

	if err := i.check(); err != nil {
		return err
	}
	return i.err
}

// Release frees the engine cursor. It is idempotent and safe to call after
// the Handle was closed.
func (i *Iterator) Release() error {
	i.h.mu.Lock()
	defer i.h.mu.Unlock()

	if i.released {
		return nil
	}
	i.released = true

	if i.orphaned {
		return nil
	}
	delete(i.h.iters, i.cursor)
	i.h.metrics.IteratorReleased()

	err := i.it.Close()
	i.it = nil
	return err
}

// orphan closes the engine cursor on behalf of a closing handle. It must be
// called with the handle write lock held.
func (c *cursor) orphan() error {
	c.orphaned = true
	err := c.it.Close()
	c.it = nil
	return err
}
