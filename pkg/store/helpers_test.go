package store

import (
	"path/filepath"
	"testing"

	"github.com/eigerco/berrydb/pkg/db/rocksdb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testEngine struct {
	name     string
	engine   Engine
	inMemory bool
}

var testEngines = []testEngine{
	{name: "pebble", engine: EnginePebble},
	{name: "pebble_memory", engine: EnginePebble, inMemory: true},
	{name: "leveldb", engine: EngineLevelDB},
	{name: "leveldb_memory", engine: EngineLevelDB, inMemory: true},
	{name: "rocksdb", engine: EngineRocksDB},
}

func (e testEngine) skipIfUnavailable(t *testing.T) {
	t.Helper()
	if e.engine != EngineRocksDB {
		return
	}
	if err := rocksdb.Load(); err != nil {
		t.Skipf("librocksdb not available: %v", err)
	}
}

func (e testEngine) open(path string, opts ...Option) (*Handle, error) {
	base := []Option{WithEngine(e.engine), WithSync(false), WithLogger(zerolog.Nop())}
	if e.inMemory {
		base = append(base, WithInMemory())
	}
	return Open(path, append(base, opts...)...)
}

// runEngines runs fn against a fresh, empty handle of every test engine.
func runEngines(t *testing.T, fn func(t *testing.T, h *Handle)) {
	for _, e := range testEngines {
		t.Run(e.name, func(t *testing.T) {
			e.skipIfUnavailable(t)

			h, err := e.open(filepath.Join(t.TempDir(), "db"))
			require.NoError(t, err)
			t.Cleanup(func() {
				_ = h.Close()
			})

			fn(t, h)
		})
	}
}

// runDiskEngines runs fn with the on-disk test engines and a fresh path.
func runDiskEngines(t *testing.T, fn func(t *testing.T, e testEngine, path string)) {
	for _, e := range testEngines {
		if e.inMemory {
			continue
		}
		t.Run(e.name, func(t *testing.T) {
			e.skipIfUnavailable(t)
			fn(t, e, filepath.Join(t.TempDir(), "db"))
		})
	}
}

func put(t *testing.T, h *Handle, kv ...string) {
	t.Helper()
	require.Zero(t, len(kv)%2)
	for i := 0; i < len(kv); i += 2 {
		require.NoError(t, h.Put([]byte(kv[i]), []byte(kv[i+1])))
	}
}

func liveIterators(h *Handle) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.iters)
}
