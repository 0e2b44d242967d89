package leveldb

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/eigerco/berrydb/pkg/db"
	"github.com/eigerco/berrydb/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStore(t *testing.T) {
	dbtest.TestKVStore(t, func() (db.KVStore, error) {
		return NewKVStore()
	})
}

func TestKVStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	n := 0
	dbtest.TestKVStore(t, func() (db.KVStore, error) {
		n++
		return Open(filepath.Join(dir, strconv.Itoa(n)), Options{NoSync: true})
	})
}

func TestKVStore_ReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")

	store, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, store.Put([]byte("key"), []byte("value")))
	require.NoError(t, store.Close())

	ro, err := Open(path, Options{ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close() //nolint:errcheck // double close is a no-op

	value, err := ro.Get([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	assert.ErrorIs(t, ro.Put([]byte("key"), []byte("other")), db.ErrReadOnly)
	assert.ErrorIs(t, ro.Delete([]byte("key")), db.ErrReadOnly)
}

func TestKVStore_ReadOnlyMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{ReadOnly: true})
	assert.ErrorIs(t, err, db.ErrEngine)
}
