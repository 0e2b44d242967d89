// Package rocksdb binds the RocksDB C API at runtime. The shared library is
// located and loaded once per process the first time a store is opened, so
// binaries that never select this engine do not need librocksdb installed.
package rocksdb

import "errors"

// LibraryEnv overrides the shared library location.
const LibraryEnv = "BERRYDB_ROCKSDB_LIB"

// ErrLibraryUnavailable is returned when librocksdb cannot be loaded.
var ErrLibraryUnavailable = errors.New("rocksdb: shared library unavailable")

// Options configures a RocksDB backed KVStore.
type Options struct {
	ReadOnly bool
	NoSync   bool
	// Parallelism sets the number of background threads, zero keeps the
	// library default.
	Parallelism int
}
