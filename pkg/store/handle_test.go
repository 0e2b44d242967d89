package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/eigerco/berrydb/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_PutGetRoundTrip(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		tests := []struct {
			name  string
			key   []byte
			value []byte
		}{
			{name: "text", key: []byte("key"), value: []byte("value")},
			{name: "binary", key: []byte{0x00, 0x01, 0xff}, value: []byte{0xff, 0x00, 0x7f}},
			{name: "utf8", key: []byte("ключ"), value: []byte("значение")},
			{name: "large_value", key: []byte("large"), value: make([]byte, 1<<20)},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				require.NoError(t, h.Put(tc.key, tc.value))

				got, err := h.Get(tc.key)
				require.NoError(t, err)
				assert.Equal(t, tc.value, got)
			})
		}
	})
}

func TestHandle_GetDistinguishesEmptyFromMissing(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		require.NoError(t, h.Put([]byte("empty"), nil))

		value, err := h.Get([]byte("empty"))
		require.NoError(t, err)
		assert.NotNil(t, value)
		assert.Empty(t, value)

		value, err = h.Get([]byte("missing"))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, value)
	})
}

func TestHandle_Overwrite(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		put(t, h, "k", "v1", "k", "v2")

		value, err := h.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), value)
	})
}

func TestHandle_Delete(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		put(t, h, "k", "v")

		require.NoError(t, h.Delete([]byte("k")))
		_, err := h.Get([]byte("k"))
		assert.ErrorIs(t, err, ErrNotFound)

		// Deleting an absent key is a successful no-op.
		assert.NoError(t, h.Delete([]byte("k")))
		assert.NoError(t, h.Delete([]byte("never-existed")))
	})
}

func TestHandle_MultiGet(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		put(t, h, "k1", "v1", "k3", "v3", "empty", "")

		values, err := h.MultiGet([][]byte{
			[]byte("k1"),
			[]byte("k2"),
			[]byte("k3"),
			[]byte("k1"),
			[]byte("empty"),
		})
		require.NoError(t, err)
		require.Len(t, values, 5)

		assert.Equal(t, []byte("v1"), values[0])
		assert.Nil(t, values[1])
		assert.Equal(t, []byte("v3"), values[2])
		assert.Equal(t, []byte("v1"), values[3])
		assert.NotNil(t, values[4])
		assert.Empty(t, values[4])
	})
}

func TestHandle_MultiGetEmptyInput(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		values, err := h.MultiGet(nil)
		require.NoError(t, err)
		assert.Empty(t, values)
	})
}

func TestHandle_Exists(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		ok, err := h.Exists([]byte("k"))
		require.NoError(t, err)
		assert.False(t, ok)

		put(t, h, "k", "v")
		ok, err = h.Exists([]byte("k"))
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, h.Delete([]byte("k")))
		ok, err = h.Exists([]byte("k"))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestHandle_BatchAtomic(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		put(t, h, "b", "old")

		batch := db.NewBatch()
		require.NoError(t, batch.Put([]byte("a"), []byte("1")))
		require.NoError(t, batch.Delete([]byte("b")))
		require.NoError(t, batch.Put([]byte("c"), []byte("2")))

		before := map[string]string{"b": "old"}
		after := map[string]string{"a": "1", "c": "2"}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			observed []map[string]string
		)
		done := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				snapshot := map[string]string{}
				err := h.ForEach(func(key, value []byte) error {
					snapshot[string(key)] = string(value)
					return nil
				})
				if err != nil {
					return
				}
				mu.Lock()
				observed = append(observed, snapshot)
				mu.Unlock()

				select {
				case <-done:
					return
				default:
				}
			}
		}()

		require.NoError(t, h.Write(batch))
		close(done)
		wg.Wait()

		for _, snapshot := range observed {
			if len(snapshot) == 1 {
				assert.Equal(t, before, snapshot)
			} else {
				assert.Equal(t, after, snapshot)
			}
		}

		values, err := h.MultiGet([][]byte{[]byte("a"), []byte("b"), []byte("c")})
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("1"), nil, []byte("2")}, values)
	})
}

func TestHandle_BatchReuse(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		batch := db.NewBatch()
		require.NoError(t, batch.Put([]byte("k"), []byte("v")))
		require.NoError(t, h.Write(batch))

		require.NoError(t, h.Delete([]byte("k")))
		// Committing the same batch again re-applies it.
		require.NoError(t, h.Write(batch))

		value, err := h.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), value)

		batch.Reset()
		require.NoError(t, h.Write(batch))
	})
}

func TestHandle_InvalidArguments(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		assert.ErrorIs(t, h.Write(nil), ErrInvalidArgument)
	})
}

func TestHandle_EmptyKey(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		require.NoError(t, h.Put([]byte{}, []byte("root")))
		put(t, h, "a", "1")

		value, err := h.Get(nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("root"), value)

		ok, err := h.Exists([]byte{})
		require.NoError(t, err)
		assert.True(t, ok)

		values, err := h.MultiGet([][]byte{{}, []byte("a")})
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("root"), []byte("1")}, values)

		// The empty key sorts before every other key.
		var keys []string
		require.NoError(t, h.ForEach(func(key, _ []byte) error {
			keys = append(keys, string(key))
			return nil
		}))
		assert.Equal(t, []string{"", "a"}, keys)

		batch := db.NewBatch()
		require.NoError(t, batch.Delete([]byte{}))
		require.NoError(t, h.Write(batch))

		_, err = h.Get([]byte{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestHandle_UseAfterClose(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		put(t, h, "k", "v")
		require.NoError(t, h.Close())
		assert.True(t, h.Closed())

		_, err := h.Get([]byte("k"))
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, h.Put([]byte("k"), []byte("v")), ErrClosed)
		assert.ErrorIs(t, h.Delete([]byte("k")), ErrClosed)
		_, err = h.Exists([]byte("k"))
		assert.ErrorIs(t, err, ErrClosed)
		_, err = h.MultiGet([][]byte{[]byte("k")})
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, h.Write(db.NewBatch()), ErrClosed)
		_, err = h.NewIterator()
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, h.ForEachValue(func([]byte) error { return nil }), ErrClosed)

		// Close is idempotent.
		assert.NoError(t, h.Close())
	})
}

func TestHandle_ConcurrentAccess(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					key := []byte{byte(g), byte(i)}
					assert.NoError(t, h.Put(key, key))
					value, err := h.Get(key)
					assert.NoError(t, err)
					assert.Equal(t, key, value)
				}
			}(g)
		}
		wg.Wait()

		stats, err := h.Stats()
		require.NoError(t, err)
		assert.Equal(t, uint64(8*50), stats.Keys)
	})
}

func TestHandle_CloseRacesOperations(t *testing.T) {
	runEngines(t, func(t *testing.T, h *Handle) {
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					err := h.Put([]byte("k"), []byte("v"))
					if err != nil {
						assert.ErrorIs(t, err, ErrClosed)
						return
					}
				}
			}()
		}
		assert.NoError(t, h.Close())
		wg.Wait()
	})
}

func TestHandle_ReadOnly(t *testing.T) {
	runDiskEngines(t, func(t *testing.T, e testEngine, path string) {
		h, err := e.open(path)
		require.NoError(t, err)
		put(t, h, "k", "v")
		require.NoError(t, h.Close())

		ro, err := e.open(path, WithReadOnly(true))
		require.NoError(t, err)
		defer ro.Close() //nolint:errcheck // double close is a no-op

		assert.Equal(t, ModeReadOnly, ro.Mode())

		value, err := ro.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), value)

		assert.ErrorIs(t, ro.Put([]byte("k"), []byte("other")), ErrReadOnly)
		assert.ErrorIs(t, ro.Delete([]byte("k")), ErrReadOnly)

		batch := db.NewBatch()
		require.NoError(t, batch.Put([]byte("x"), []byte("y")))
		assert.ErrorIs(t, ro.Write(batch), ErrReadOnly)

		var values []string
		require.NoError(t, ro.ForEachValue(func(v []byte) error {
			values = append(values, string(v))
			return nil
		}))
		assert.Equal(t, []string{"v"}, values)
	})
}

func TestHandle_ReadOnlyMissingDatabase(t *testing.T) {
	runDiskEngines(t, func(t *testing.T, e testEngine, path string) {
		h, err := e.open(path, WithReadOnly(true))
		assert.ErrorIs(t, err, ErrDatabaseNotFound)
		assert.Nil(t, h)

		// A read-only open must not create anything.
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestHandle_Persistence(t *testing.T) {
	runDiskEngines(t, func(t *testing.T, e testEngine, path string) {
		h, err := e.open(path)
		require.NoError(t, err)
		put(t, h, "a", "1", "b", "2")
		require.NoError(t, h.Delete([]byte("a")))
		require.NoError(t, h.Close())

		h, err = e.open(path)
		require.NoError(t, err)
		defer h.Close() //nolint:errcheck // double close is a no-op

		_, err = h.Get([]byte("a"))
		assert.ErrorIs(t, err, ErrNotFound)
		value, err := h.Get([]byte("b"))
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), value)
	})
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Open("", WithInMemory(), WithReadOnly(true))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Open(filepath.Join(t.TempDir(), "db"), WithEngine("bolt"))
	assert.ErrorIs(t, err, ErrUnknownEngine)

	_, err = Open("", WithInMemory(), WithEngine(EngineRocksDB))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOpen_Defaults(t *testing.T) {
	h, err := Open(filepath.Join(t.TempDir(), "db"), WithSync(false))
	require.NoError(t, err)
	defer h.Close() //nolint:errcheck // double close is a no-op

	assert.Equal(t, EnginePebble, h.Engine())
	assert.Equal(t, ModeReadWrite, h.Mode())
	assert.False(t, h.Closed())
}

func TestHandle_Finalize(t *testing.T) {
	h, err := Open("", WithInMemory())
	require.NoError(t, err)
	put(t, h, "k", "v")

	it, err := h.NewIterator()
	require.NoError(t, err)

	h.finalize()
	assert.True(t, h.Closed())
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Error(), ErrClosed)

	// Finalizing or closing again is harmless.
	h.finalize()
	assert.NoError(t, h.Close())
	assert.NoError(t, it.Release())
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "read-write", ModeReadWrite.String())
	assert.Equal(t, "read-only", ModeReadOnly.String())
}
