package store

import (
	"github.com/eigerco/berrydb/pkg/log"
	"github.com/eigerco/berrydb/pkg/metrics"
	"github.com/rs/zerolog"
)

type options struct {
	readOnly    bool
	engine      Engine
	engineSet   bool
	inMemory    bool
	noSync      bool
	parallelism int
	logger      zerolog.Logger
	metrics     *metrics.Store
}

func defaultOptions() *options {
	return &options{
		engine: EnginePebble,
		logger: log.Store,
	}
}

// Option configures Open.
type Option func(*options)

// WithReadOnly opens the database in read-only mode. Writes fail with
// ErrReadOnly and a missing database is an error instead of being created.
func WithReadOnly(readOnly bool) Option {
	return func(o *options) {
		o.readOnly = readOnly
	}
}

// WithEngine selects the storage engine. Without it an existing database
// is opened with the engine recorded in its info file, a new one with pebble.
func WithEngine(engine Engine) Option {
	return func(o *options) {
		o.engine = engine
		o.engineSet = true
	}
}

// WithInMemory keeps the whole database in memory; path is ignored.
func WithInMemory() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// WithSync controls whether every write is synced to disk before it
// returns. Enabled by default.
func WithSync(sync bool) Option {
	return func(o *options) {
		o.noSync = !sync
	}
}

// WithParallelism sets the background thread count for engines that take one.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Store) Option {
	return func(o *options) {
		o.metrics = m
	}
}
