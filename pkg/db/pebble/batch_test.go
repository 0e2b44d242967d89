package pebble

import (
	"testing"

	"github.com/eigerco/berrydb/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store *KVStore)
	}{
		{
			name: "basic_batch_operations",
			fn:   testBasicBatchOperations,
		},
		{
			name: "batch_commit_closure",
			fn:   testBatchCommitAndClose,
		},
		{
			name: "uncommitted_batch_is_discarded",
			fn:   testUncommittedBatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewKVStore()
			require.NoError(t, err)
			defer store.Close() //nolint:errcheck // double close is a no-op

			tc.fn(t, store)
		})
	}
}

func testBasicBatchOperations(t *testing.T, store *KVStore) {
	batch := store.newBatch()
	defer batch.Close() //nolint:errcheck // close after commit is a no-op

	keys := [][]byte{[]byte("key1"), []byte("key2"), []byte("key3")}
	values := [][]byte{[]byte("value1"), []byte("value2"), []byte("value3")}

	for i := range keys {
		err := batch.Put(keys[i], values[i])
		require.NoError(t, err)
	}

	// Delete one key in the same batch
	err := batch.Delete(keys[1])
	require.NoError(t, err)

	err = batch.Commit()
	require.NoError(t, err)

	val1, err := store.Get(keys[0])
	require.NoError(t, err)
	assert.Equal(t, values[0], val1)

	_, err = store.Get(keys[1])
	assert.ErrorIs(t, err, db.ErrNotFound)

	val3, err := store.Get(keys[2])
	require.NoError(t, err)
	assert.Equal(t, values[2], val3)
}

func testBatchCommitAndClose(t *testing.T, store *KVStore) {
	batch := store.newBatch()

	err := batch.Put([]byte("key"), []byte("value"))
	require.NoError(t, err)

	err = batch.Commit()
	require.NoError(t, err)

	// Operations after commit should fail
	err = batch.Put([]byte("key2"), []byte("value2"))
	assert.ErrorIs(t, err, db.ErrBatchDone)

	err = batch.Delete([]byte("key2"))
	assert.ErrorIs(t, err, db.ErrBatchDone)

	// Second commit should fail
	err = batch.Commit()
	assert.ErrorIs(t, err, db.ErrBatchDone)

	// Close should not error
	err = batch.Close()
	assert.NoError(t, err)

	// Double close should not error
	err = batch.Close()
	assert.NoError(t, err)
}

func testUncommittedBatch(t *testing.T, store *KVStore) {
	batch := store.newBatch()
	require.NoError(t, batch.Put([]byte("key"), []byte("value")))
	require.NoError(t, batch.Close())

	_, err := store.Get([]byte("key"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}
