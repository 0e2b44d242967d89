package store

import (
	"errors"
	"runtime"

	"go.uber.org/multierr"
)

// ForEach visits every entry in ascending key order. The internal iterator
// is released on every exit path. Returning ErrStopIteration from visit
// ends the traversal without error; any other error is returned as is.
func (h *Handle) ForEach(visit func(key, value []byte) error) error {
	return h.traverse(false, visit)
}

// ForEachReverse is ForEach in descending key order.
func (h *Handle) ForEachReverse(visit func(key, value []byte) error) error {
	return h.traverse(true, visit)
}

// ForEachValue visits every value in ascending key order.
func (h *Handle) ForEachValue(visit func(value []byte) error) error {
	if visit == nil {
		return ErrInvalidArgument
	}
	return h.traverse(false, func(_, value []byte) error {
		return visit(value)
	})
}

// ForEachValueReverse visits every value in descending key order.
func (h *Handle) ForEachValueReverse(visit func(value []byte) error) error {
	if visit == nil {
		return ErrInvalidArgument
	}
	return h.traverse(true, func(_, value []byte) error {
		return visit(value)
	})
}

// Each returns a fresh iterator when visit is nil, otherwise it drives
// ForEachValue and returns a nil iterator.
func (h *Handle) Each(visit func(value []byte) error) (*Iterator, error) {
	if visit == nil {
		return h.NewIterator()
	}
	return nil, h.ForEachValue(visit)
}

func (h *Handle) traverse(reverse bool, visit func(key, value []byte) error) (err error) {
	if visit == nil {
		return ErrInvalidArgument
	}
	defer runtime.KeepAlive(h)

	it, err := h.NewIterator()
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, it.Release())
	}()

	seek, step := it.First, it.Next
	if reverse {
		seek, step = it.Last, it.Prev
	}

	for ok := seek(); ok; ok = step() {
		key, err := it.Key()
		if err != nil {
			return err
		}
		value, err := it.Value()
		if err != nil {
			return err
		}
		if err := visit(key, value); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return it.Error()
}

// Stats summarises the live keyspace.
type Stats struct {
	Keys       uint64
	KeyBytes   uint64
	ValueBytes uint64
}

// Stats scans the whole keyspace, its cost is linear in the database size.
func (h *Handle) Stats() (Stats, error) {
	var s Stats
	err := h.ForEach(func(key, value []byte) error {
		s.Keys++
		s.KeyBytes += uint64(len(key))
		s.ValueBytes += uint64(len(value))
		return nil
	})
	return s, err
}
