//go:build darwin || linux

package rocksdb

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Note: every Go memory argument is passed as unsafe.Pointer and every
// native object as uintptr. size_t is uintptr on all supported platforms.
var (
	rocksdbOptionsCreate              func() uintptr
	rocksdbOptionsDestroy             func(opts uintptr)
	rocksdbOptionsSetCreateIfMissing  func(opts uintptr, v uint8)
	rocksdbOptionsIncreaseParallelism func(opts uintptr, threads int32)

	rocksdbOpen            func(opts uintptr, name unsafe.Pointer, errptr unsafe.Pointer) uintptr
	rocksdbOpenForReadOnly func(opts uintptr, name unsafe.Pointer, errorIfWALExists uint8, errptr unsafe.Pointer) uintptr
	rocksdbClose           func(db uintptr)

	rocksdbWriteoptionsCreate  func() uintptr
	rocksdbWriteoptionsDestroy func(wo uintptr)
	rocksdbWriteoptionsSetSync func(wo uintptr, v uint8)
	rocksdbReadoptionsCreate   func() uintptr
	rocksdbReadoptionsDestroy  func(ro uintptr)

	rocksdbPut       func(db, wo uintptr, key unsafe.Pointer, keyLen uintptr, val unsafe.Pointer, valLen uintptr, errptr unsafe.Pointer)
	rocksdbDelete    func(db, wo uintptr, key unsafe.Pointer, keyLen uintptr, errptr unsafe.Pointer)
	rocksdbGetPinned func(db, ro uintptr, key unsafe.Pointer, keyLen uintptr, errptr unsafe.Pointer) uintptr
	rocksdbKeyMayExist func(db, ro uintptr, key unsafe.Pointer, keyLen uintptr,
		value unsafe.Pointer, valLen unsafe.Pointer, ts unsafe.Pointer, tsLen uintptr, valueFound unsafe.Pointer) uint8

	rocksdbPinnablesliceValue   func(slice uintptr, valLen unsafe.Pointer) uintptr
	rocksdbPinnablesliceDestroy func(slice uintptr)

	rocksdbWritebatchCreate  func() uintptr
	rocksdbWritebatchDestroy func(batch uintptr)
	rocksdbWritebatchPut     func(batch uintptr, key unsafe.Pointer, keyLen uintptr, val unsafe.Pointer, valLen uintptr)
	rocksdbWritebatchDelete  func(batch uintptr, key unsafe.Pointer, keyLen uintptr)
	rocksdbWrite             func(db, wo, batch uintptr, errptr unsafe.Pointer)

	rocksdbCreateIterator   func(db, ro uintptr) uintptr
	rocksdbIterDestroy      func(iter uintptr)
	rocksdbIterValid        func(iter uintptr) uint8
	rocksdbIterSeekToFirst  func(iter uintptr)
	rocksdbIterSeekToLast   func(iter uintptr)
	rocksdbIterNext         func(iter uintptr)
	rocksdbIterPrev         func(iter uintptr)
	rocksdbIterKey          func(iter uintptr, keyLen unsafe.Pointer) uintptr
	rocksdbIterValue        func(iter uintptr, valLen unsafe.Pointer) uintptr
	rocksdbIterGetError     func(iter uintptr, errptr unsafe.Pointer)

	rocksdbFree func(ptr uintptr)
)

var (
	loadOnce sync.Once
	loadErr  error
)

// Load locates librocksdb and registers the C functions. It is safe to call
// concurrently; only the first call does any work.
func Load() error {
	loadOnce.Do(func() {
		loadErr = load()
	})
	return loadErr
}

func load() error {
	var lastErr error
	for _, path := range libraryCandidates() {
		lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lastErr = err
			continue
		}
		return register(lib)
	}
	return fmt.Errorf("%w: %w", ErrLibraryUnavailable, lastErr)
}

func libraryCandidates() []string {
	if path := os.Getenv(LibraryEnv); path != "" {
		return []string{path}
	}
	if runtime.GOOS == "darwin" {
		return []string{
			"librocksdb.dylib",
			"/opt/homebrew/lib/librocksdb.dylib",
			"/usr/local/lib/librocksdb.dylib",
		}
	}
	return []string{
		"librocksdb.so",
		"librocksdb.so.9",
		"librocksdb.so.8",
		"librocksdb.so.7",
		"librocksdb.so.6",
	}
}

func register(lib uintptr) error {
	funcs := []struct {
		fptr any
		name string
	}{
		{&rocksdbOptionsCreate, "rocksdb_options_create"},
		{&rocksdbOptionsDestroy, "rocksdb_options_destroy"},
		{&rocksdbOptionsSetCreateIfMissing, "rocksdb_options_set_create_if_missing"},
		{&rocksdbOptionsIncreaseParallelism, "rocksdb_options_increase_parallelism"},
		{&rocksdbOpen, "rocksdb_open"},
		{&rocksdbOpenForReadOnly, "rocksdb_open_for_read_only"},
		{&rocksdbClose, "rocksdb_close"},
		{&rocksdbWriteoptionsCreate, "rocksdb_writeoptions_create"},
		{&rocksdbWriteoptionsDestroy, "rocksdb_writeoptions_destroy"},
		{&rocksdbWriteoptionsSetSync, "rocksdb_writeoptions_set_sync"},
		{&rocksdbReadoptionsCreate, "rocksdb_readoptions_create"},
		{&rocksdbReadoptionsDestroy, "rocksdb_readoptions_destroy"},
		{&rocksdbPut, "rocksdb_put"},
		{&rocksdbDelete, "rocksdb_delete"},
		{&rocksdbGetPinned, "rocksdb_get_pinned"},
		{&rocksdbKeyMayExist, "rocksdb_key_may_exist"},
		{&rocksdbPinnablesliceValue, "rocksdb_pinnableslice_value"},
		{&rocksdbPinnablesliceDestroy, "rocksdb_pinnableslice_destroy"},
		{&rocksdbWritebatchCreate, "rocksdb_writebatch_create"},
		{&rocksdbWritebatchDestroy, "rocksdb_writebatch_destroy"},
		{&rocksdbWritebatchPut, "rocksdb_writebatch_put"},
		{&rocksdbWritebatchDelete, "rocksdb_writebatch_delete"},
		{&rocksdbWrite, "rocksdb_write"},
		{&rocksdbCreateIterator, "rocksdb_create_iterator"},
		{&rocksdbIterDestroy, "rocksdb_iter_destroy"},
		{&rocksdbIterValid, "rocksdb_iter_valid"},
		{&rocksdbIterSeekToFirst, "rocksdb_iter_seek_to_first"},
		{&rocksdbIterSeekToLast, "rocksdb_iter_seek_to_last"},
		{&rocksdbIterNext, "rocksdb_iter_next"},
		{&rocksdbIterPrev, "rocksdb_iter_prev"},
		{&rocksdbIterKey, "rocksdb_iter_key"},
		{&rocksdbIterValue, "rocksdb_iter_value"},
		{&rocksdbIterGetError, "rocksdb_iter_get_error"},
		{&rocksdbFree, "rocksdb_free"},
	}

	for _, f := range funcs {
		sym, err := purego.Dlsym(lib, f.name)
		if err != nil {
			return fmt.Errorf("%w: missing symbol %s: %w", ErrLibraryUnavailable, f.name, err)
		}
		purego.RegisterFunc(f.fptr, sym)
	}
	return nil
}

// slicePtr returns a pointer to the first element of a byte slice.
// For empty slices, returns a dummy non-null pointer, the C API dereferences
// the pointer even for zero lengths in some code paths.
func slicePtr(s []byte) unsafe.Pointer {
	if len(s) == 0 {
		return unsafe.Pointer(&struct{}{})
	}
	return unsafe.Pointer(&s[0])
}

// cString returns a NUL terminated copy of s.
func cString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// goBytes copies n bytes of native memory starting at p.
func goBytes(p uintptr, n uintptr) []byte {
	result := make([]byte, n)
	if n > 0 {
		copy(result, unsafe.Slice((*byte)(unsafe.Pointer(p)), n)) //nolint:govet // p is native memory
	}
	return result
}

// takeError converts an errptr filled by the C API into a Go error and
// frees the native string.
func takeError(errptr uintptr) error {
	if errptr == 0 {
		return nil
	}
	defer rocksdbFree(errptr)

	var n uintptr
	for *(*byte)(unsafe.Pointer(errptr + n)) != 0 { //nolint:govet // errptr is native memory
		n++
	}
	return fmt.Errorf("rocksdb: %s", goBytes(errptr, n))
}
