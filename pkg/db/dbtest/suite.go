// Package dbtest holds the behaviour every db.KVStore engine has to share.
package dbtest

import (
	"testing"

	"github.com/eigerco/berrydb/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewStoreFunc opens a fresh, empty, writable store.
type NewStoreFunc func() (db.KVStore, error)

// TestKVStore runs the engine conformance cases against stores made by newStore.
func TestKVStore(t *testing.T, newStore NewStoreFunc) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{name: "basic_put_get", fn: testBasicPutGet},
		{name: "empty_value", fn: testEmptyValue},
		{name: "binary_keys", fn: testBinaryKeys},
		{name: "empty_key", fn: testEmptyKey},
		{name: "delete_operations", fn: testDelete},
		{name: "multi_get", fn: testMultiGet},
		{name: "has", fn: testHas},
		{name: "batch_write", fn: testBatchWrite},
		{name: "batch_reuse", fn: testBatchReuse},
		{name: "forward_iteration", fn: testForwardIteration},
		{name: "reverse_iteration", fn: testReverseIteration},
		{name: "iterator_direction_change", fn: testIteratorDirectionChange},
		{name: "empty_iteration", fn: testEmptyIteration},
		{name: "store_closure", fn: testStoreClosure},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := newStore()
			require.NoError(t, err)
			defer store.Close() //nolint:errcheck // double close is a no-op

			tc.fn(t, store)
		})
	}
}

func testEmptyKey(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte{}, []byte("root")))
	require.NoError(t, store.Put([]byte("a"), []byte("1")))

	value, err := store.Get(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("root"), value)

	iter, err := store.NewIterator()
	require.NoError(t, err)
	require.True(t, iter.First())
	assert.Empty(t, iter.Key())
	require.NoError(t, iter.Close())

	require.NoError(t, store.Delete([]byte{}))
	_, err = store.Get([]byte{})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testBasicPutGet(t *testing.T, store db.KVStore) {
	key := []byte("test-key")
	value := []byte("test-value")

	err := store.Put(key, value)
	require.NoError(t, err)

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	// Test non-existent key
	_, err = store.Get([]byte("non-existent"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testEmptyValue(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte("empty"), []byte{}))

	value, err := store.Get([]byte("empty"))
	require.NoError(t, err)
	assert.NotNil(t, value)
	assert.Empty(t, value)
}

func testBinaryKeys(t *testing.T, store db.KVStore) {
	key := []byte{0x00, 0xff, 0x00, 0x10}
	value := []byte{0xde, 0xad, 0x00, 0xbe, 0xef}

	require.NoError(t, store.Put(key, value))

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	// A prefix of a binary key is a different key.
	_, err = store.Get(key[:1])
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testDelete(t *testing.T, store db.KVStore) {
	key := []byte("delete-test")
	value := []byte("to-be-deleted")

	err := store.Put(key, value)
	require.NoError(t, err)

	err = store.Delete(key)
	require.NoError(t, err)

	_, err = store.Get(key)
	assert.ErrorIs(t, err, db.ErrNotFound)

	// Delete non-existent key should not error
	err = store.Delete([]byte("non-existent"))
	assert.NoError(t, err)
}

func testMultiGet(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, store.Put([]byte("k3"), []byte{}))

	values, err := store.MultiGet([][]byte{
		[]byte("k1"),
		[]byte("k2"),
		[]byte("k3"),
		[]byte("k1"),
	})
	require.NoError(t, err)
	require.Len(t, values, 4)

	assert.Equal(t, []byte("v1"), values[0])
	assert.Nil(t, values[1])
	assert.NotNil(t, values[2])
	assert.Empty(t, values[2])
	assert.Equal(t, []byte("v1"), values[3])

	values, err = store.MultiGet(nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func testHas(t *testing.T, store db.KVStore) {
	key := []byte("has-key")
	require.NoError(t, store.Put(key, []byte("v")))

	ok, err := store.Has(key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(key))

	// Engines may report false positives, but a deleted key in a tiny store
	// that was never flushed is expected to be gone for all of them.
	ok, err = store.Has(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testBatchWrite(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte("b"), []byte("old")))

	batch := db.NewBatch()
	require.NoError(t, batch.Put([]byte("a"), []byte("1")))
	require.NoError(t, batch.Delete([]byte("b")))
	require.NoError(t, batch.Put([]byte("c"), []byte("2")))

	require.NoError(t, store.Write(batch))

	val, err := store.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)

	_, err = store.Get([]byte("b"))
	assert.ErrorIs(t, err, db.ErrNotFound)

	val, err = store.Get([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), val)

	// Empty batches are a no-op.
	require.NoError(t, store.Write(db.NewBatch()))
}

func testBatchReuse(t *testing.T, store db.KVStore) {
	batch := db.NewBatch()
	require.NoError(t, batch.Put([]byte("counter"), []byte("1")))
	require.NoError(t, store.Write(batch))

	// The same batch can be committed again after more writes were added.
	require.NoError(t, batch.Put([]byte("counter"), []byte("2")))
	require.NoError(t, store.Write(batch))

	val, err := store.Get([]byte("counter"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), val)
}

func fill(t *testing.T, store db.KVStore, keys ...string) {
	for _, k := range keys {
		require.NoError(t, store.Put([]byte(k), []byte("value-"+k)))
	}
}

func testForwardIteration(t *testing.T, store db.KVStore) {
	fill(t, store, "c", "a", "d", "b")
	require.NoError(t, store.Delete([]byte("d")))

	iter, err := store.NewIterator()
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck // double close is a no-op

	var keys []string
	for ok := iter.First(); ok; ok = iter.Next() {
		keys = append(keys, string(iter.Key()))

		value, err := iter.Value()
		require.NoError(t, err)
		assert.Equal(t, "value-"+string(iter.Key()), string(value))
	}
	require.NoError(t, iter.Error())
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.False(t, iter.Valid())

	// Value() should error when invalid
	_, err = iter.Value()
	assert.ErrorIs(t, err, db.ErrIteratorInvalid)
}

func testReverseIteration(t *testing.T, store db.KVStore) {
	fill(t, store, "b", "c", "a")

	iter, err := store.NewIterator()
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck // double close is a no-op

	var keys []string
	for ok := iter.Last(); ok; ok = iter.Prev() {
		keys = append(keys, string(iter.Key()))
	}
	require.NoError(t, iter.Error())
	assert.Equal(t, []string{"c", "b", "a"}, keys)
}

func testIteratorDirectionChange(t *testing.T, store db.KVStore) {
	fill(t, store, "a", "b", "c")

	iter, err := store.NewIterator()
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck // double close is a no-op

	require.True(t, iter.First())
	require.True(t, iter.Next())
	assert.Equal(t, []byte("b"), iter.Key())

	require.True(t, iter.Prev())
	assert.Equal(t, []byte("a"), iter.Key())

	assert.False(t, iter.Prev())
	assert.False(t, iter.Valid())

	require.True(t, iter.Last())
	assert.Equal(t, []byte("c"), iter.Key())
}

func testEmptyIteration(t *testing.T, store db.KVStore) {
	iter, err := store.NewIterator()
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck // double close is a no-op

	assert.False(t, iter.First())
	assert.False(t, iter.Valid())
	assert.False(t, iter.Last())
	assert.False(t, iter.Valid())

	require.NoError(t, iter.Close())
	// Double close should not error
	require.NoError(t, iter.Close())
}

func testStoreClosure(t *testing.T, store db.KVStore) {
	err := store.Close()
	require.NoError(t, err)

	// Test operations after close
	_, err = store.Get([]byte("key"))
	assert.ErrorIs(t, err, db.ErrClosed)

	err = store.Put([]byte("key"), []byte("value"))
	assert.ErrorIs(t, err, db.ErrClosed)

	err = store.Delete([]byte("key"))
	assert.ErrorIs(t, err, db.ErrClosed)

	_, err = store.MultiGet([][]byte{[]byte("key")})
	assert.ErrorIs(t, err, db.ErrClosed)

	_, err = store.Has([]byte("key"))
	assert.ErrorIs(t, err, db.ErrClosed)

	err = store.Write(db.NewBatch())
	assert.ErrorIs(t, err, db.ErrClosed)

	_, err = store.NewIterator()
	assert.ErrorIs(t, err, db.ErrClosed)

	// Double close should not error
	err = store.Close()
	assert.NoError(t, err)
}
