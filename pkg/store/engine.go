package store

import (
	"fmt"
	"strings"

	"github.com/eigerco/berrydb/pkg/db"
	"github.com/eigerco/berrydb/pkg/db/leveldb"
	"github.com/eigerco/berrydb/pkg/db/pebble"
	"github.com/eigerco/berrydb/pkg/db/rocksdb"
)

// Engine names a storage engine a Handle can sit on.
type Engine string

const (
	EngineUnknown Engine = "unknown"
	EnginePebble  Engine = "pebble"
	EngineLevelDB Engine = "leveldb"
	EngineRocksDB Engine = "rocksdb"
)

// Engines lists the supported engines, the default first.
var Engines = []Engine{EnginePebble, EngineLevelDB, EngineRocksDB}

// ParseEngine parses a string and returns an engine.
// Returns an error if the engine is unknown.
func ParseEngine(engineStr string) (Engine, error) {
	engine := Engine(strings.ToLower(strings.TrimSpace(engineStr)))
	for _, e := range Engines {
		if engine == e {
			return engine, nil
		}
	}
	return EngineUnknown, fmt.Errorf("%w: %q, supported engines: pebble/leveldb/rocksdb", ErrUnknownEngine, engineStr)
}

func openEngine(engine Engine, path string, o *options) (db.KVStore, error) {
	switch engine {
	case EnginePebble:
		s, err := pebble.Open(path, pebble.Options{ReadOnly: o.readOnly, NoSync: o.noSync, InMemory: o.inMemory})
		if err != nil {
			return nil, err
		}
		return s, nil

	case EngineLevelDB:
		s, err := leveldb.Open(path, leveldb.Options{ReadOnly: o.readOnly, NoSync: o.noSync, InMemory: o.inMemory})
		if err != nil {
			return nil, err
		}
		return s, nil

	case EngineRocksDB:
		if o.inMemory {
			return nil, fmt.Errorf("%w: rocksdb has no in-memory mode", db.ErrInvalidArgument)
		}
		s, err := rocksdb.Open(path, rocksdb.Options{ReadOnly: o.readOnly, NoSync: o.noSync, Parallelism: o.parallelism})
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}
