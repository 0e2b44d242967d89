package store

import (
	"errors"

	"github.com/eigerco/berrydb/pkg/db"
)

// Re-exported so callers only need this package to classify failures.
var (
	ErrNotFound         = db.ErrNotFound
	ErrClosed           = db.ErrClosed
	ErrReadOnly         = db.ErrReadOnly
	ErrIteratorReleased = db.ErrIteratorReleased
	ErrIteratorInvalid  = db.ErrIteratorInvalid
	ErrEngine           = db.ErrEngine
	ErrInvalidArgument  = db.ErrInvalidArgument
)

var (
	ErrDatabaseNotFound = errors.New("store: database not found")
	ErrEngineMismatch   = errors.New("store: database engine does not match")
	ErrUnknownEngine    = errors.New("store: unknown database engine")

	// ErrStopIteration ends a traversal early without reporting an error.
	ErrStopIteration = errors.New("store: stop iteration")
)
