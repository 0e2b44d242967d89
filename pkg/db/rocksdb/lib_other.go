//go:build !darwin && !linux

package rocksdb

import (
	"fmt"

	"github.com/eigerco/berrydb/pkg/db"
)

// Load always fails on platforms purego cannot dlopen on.
func Load() error {
	return fmt.Errorf("%w: unsupported platform", ErrLibraryUnavailable)
}

// Open always fails on platforms purego cannot dlopen on.
func Open(path string, o Options) (db.KVStore, error) {
	return nil, Load()
}
