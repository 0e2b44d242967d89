// Package store is the caller facing side of berrydb: a Handle owns one
// engine connection, translates engine status into ErrNotFound and the
// other sentinels, and hands out iterators that never outlive it.
package store

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/eigerco/berrydb/pkg/db"
	"github.com/eigerco/berrydb/pkg/metrics"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Mode is the access mode a Handle was opened with.
type Mode uint8

const (
	ModeReadWrite Mode = iota
	ModeReadOnly
)

func (m Mode) String() string {
	if m == ModeReadOnly {
		return "read-only"
	}
	return "read-write"
}

// Handle is an open database. It is safe for concurrent use by multiple
// goroutines. A Handle must be closed with Close; an abandoned Handle is
// closed by the garbage collector as a last resort.
type Handle struct {
	*handle
}

// handle is the actual state. The finalizer sits on Handle, and nothing
// reachable from handle points back at Handle, so an abandoned Handle is
// always collectable.
type handle struct {
	mu     sync.RWMutex
	conn   db.KVStore // nil once closed
	iters  map[*cursor]struct{}
	mode   Mode
	path   string
	engine Engine

	log     zerolog.Logger
	metrics *metrics.Store
}

// Open opens the database at path. A read-write open creates the database
// when it is missing, a read-only open fails with ErrDatabaseNotFound.
// On error no Handle is returned.
func Open(path string, opts ...Option) (*Handle, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.inMemory && o.readOnly {
		return nil, fmt.Errorf("%w: in-memory database cannot be read-only", ErrInvalidArgument)
	}
	if !o.inMemory && path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}
	if o.engineSet {
		if _, err := ParseEngine(string(o.engine)); err != nil {
			return nil, err
		}
	}

	engine, writeInfo := o.engine, false
	if !o.inMemory {
		var (
			infoMissing bool
			err         error
		)
		engine, infoMissing, err = checkDatabaseEngine(path, o)
		if err != nil {
			return nil, err
		}
		writeInfo = infoMissing && !o.readOnly
	}

	conn, err := openEngine(engine, path, o)
	if err != nil {
		o.logger.Error().Err(err).Str("path", path).Str("engine", string(engine)).Msg("open failed")
		return nil, err
	}

	if writeInfo {
		if err := storeDatabaseInfoToFile(path, engine); err != nil {
			return nil, multierr.Append(err, conn.Close())
		}
	}

	mode := ModeReadWrite
	if o.readOnly {
		mode = ModeReadOnly
	}

	h := &Handle{&handle{
		conn:    conn,
		iters:   make(map[*cursor]struct{}),
		mode:    mode,
		path:    path,
		engine:  engine,
		log:     o.logger.With().Str("path", path).Str("engine", string(engine)).Logger(),
		metrics: o.metrics,
	}}
	runtime.SetFinalizer(h, (*Handle).finalize)

	h.metrics.HandleOpened()
	h.log.Info().Stringer("mode", mode).Msg("database opened")
	return h, nil
}

// Close releases every live iterator and then the engine connection.
// Calling Close more than once is a no-op.
func (h *Handle) Close() error {
	runtime.SetFinalizer(h, nil)
	return h.close()
}

func (h *Handle) finalize() {
	h.mu.RLock()
	open := h.conn != nil
	h.mu.RUnlock()
	if !open {
		return
	}

	h.log.Warn().Msg("handle garbage collected without Close, closing it")
	if err := h.close(); err != nil {
		h.log.Error().Err(err).Msg("close from finalizer failed")
	}
}

func (h *handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		return nil
	}

	var err error
	for it := range h.iters {
		err = multierr.Append(err, it.orphan())
		h.metrics.IteratorReleased()
	}
	h.iters = nil

	err = multierr.Append(err, h.conn.Close())
	h.conn = nil
	h.metrics.HandleClosed()

	if err != nil {
		h.log.Error().Err(err).Msg("database closed with errors")
		return err
	}
	h.log.Info().Msg("database closed")
	return nil
}

// Mode returns the access mode the Handle was opened with.
func (h *Handle) Mode() Mode {
	return h.mode
}

func (h *Handle) Path() string {
	return h.path
}

func (h *Handle) Engine() Engine {
	return h.engine
}

// Closed reports whether Close was called.
func (h *Handle) Closed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn == nil
}

// acquire read locks the handle and returns the open connection. The
// returned release func must be called when the operation is done.
func (h *handle) acquire(write bool) (db.KVStore, func(), error) {
	h.mu.RLock()
	if h.conn == nil {
		h.mu.RUnlock()
		return nil, nil, ErrClosed
	}
	if write && h.mode == ModeReadOnly {
		h.mu.RUnlock()
		return nil, nil, ErrReadOnly
	}
	return h.conn, h.mu.RUnlock, nil
}

// observe records the outcome of op and logs engine failures.
func (h *handle) observe(op string, start time.Time, err error) {
	h.metrics.Observe(op, start, err)
	if errors.Is(err, ErrEngine) {
		h.log.Error().Err(err).Str("op", op).Msg("engine failure")
	}
}

// Put stores value under key. Any byte sequence, the empty one included,
// is a valid key.
func (h *Handle) Put(key, value []byte) (err error) {
	start := time.Now()
	defer func() { h.observe("put", start, err) }()

	conn, release, err := h.acquire(true)
	if err != nil {
		return err
	}
	defer release()

	return conn.Put(key, value)
}

// Delete removes key. Deleting a missing key succeeds.
func (h *Handle) Delete(key []byte) (err error) {
	start := time.Now()
	defer func() { h.observe("delete", start, err) }()

	conn, release, err := h.acquire(true)
	if err != nil {
		return err
	}
	defer release()

	return conn.Delete(key)
}

// Get returns the value stored under key, or ErrNotFound. A stored empty
// value is returned as a non-nil empty slice.
func (h *Handle) Get(key []byte) (value []byte, err error) {
	start := time.Now()
	defer func() { h.observe("get", start, err) }()

	conn, release, err := h.acquire(false)
	if err != nil {
		return nil, err
	}
	defer release()

	return conn.Get(key)
}

// MultiGet looks up every key and returns the values in input order.
// Duplicated keys are allowed. A missing key yields a nil slot, a stored
// empty value a non-nil empty slot.
func (h *Handle) MultiGet(keys [][]byte) (values [][]byte, err error) {
	start := time.Now()
	defer func() { h.observe("multi_get", start, err) }()

	conn, release, err := h.acquire(false)
	if err != nil {
		return nil, err
	}
	defer release()

	values, err = conn.MultiGet(keys)
	if err != nil {
		return nil, err
	}
	if len(values) != len(keys) {
		return nil, fmt.Errorf("%w: multi get returned %d values for %d keys", ErrEngine, len(values), len(keys))
	}
	return values, nil
}

// Exists reports whether key may exist. It never reports false for a key
// that is present, but may report true for one that is not; use Get when
// certainty is required.
func (h *Handle) Exists(key []byte) (ok bool, err error) {
	start := time.Now()
	defer func() { h.observe("exists", start, err) }()

	conn, release, err := h.acquire(false)
	if err != nil {
		return false, err
	}
	defer release()

	return conn.Has(key)
}

// Write applies every operation of b atomically: either all of them become
// visible or none does. b is left untouched and can be committed again.
func (h *Handle) Write(b *db.Batch) (err error) {
	start := time.Now()
	defer func() { h.observe("write", start, err) }()

	if b == nil {
		return ErrInvalidArgument
	}
	conn, release, err := h.acquire(true)
	if err != nil {
		return err
	}
	defer release()

	if b.Len() == 0 {
		return nil
	}
	h.metrics.ObserveBatch(b.Len())
	return conn.Write(b)
}
