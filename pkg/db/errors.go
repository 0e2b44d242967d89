package db

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a valid lookup with no entry. It is never a failure.
	ErrNotFound = errors.New("kv-store: key not found")

	ErrClosed           = errors.New("kv-store: database is closed")
	ErrReadOnly         = errors.New("kv-store: database is read-only")
	ErrIteratorReleased = errors.New("kv-store: iterator is released")
	ErrIteratorInvalid  = errors.New("kv-store: iterator is not positioned on an entry")
	ErrBatchDone        = errors.New("kv-store: batch already committed or closed")

	// ErrEngine wraps every error reported by the underlying engine.
	ErrEngine = errors.New("kv-store: engine failure")

	ErrInvalidArgument = errors.New("kv-store: invalid argument")
)

const (
	ErrInIteratorCreation = "%w: create iterator: %w"
	ErrIteratorValue      = "%w: iterator value: %w"
	ErrFailedBatchCommit  = "%w: commit batch: %w"
)

// EngineError marks err as an engine failure while keeping it inspectable.
func EngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrEngine, op, err)
}
