package mocks

import (
	"github.com/eigerco/berrydb/pkg/db"
	"github.com/stretchr/testify/mock"
)

// MockKVStore implements the db.KVStore interface for testing
type MockKVStore struct {
	mock.Mock
}

func NewMockKVStore() *MockKVStore {
	return &MockKVStore{}
}

func (m *MockKVStore) Put(key, value []byte) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *MockKVStore) Get(key []byte) ([]byte, error) {
	args := m.Called(key)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockKVStore) MultiGet(keys [][]byte) ([][]byte, error) {
	args := m.Called(keys)
	if v := args.Get(0); v != nil {
		return v.([][]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockKVStore) Has(key []byte) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *MockKVStore) Delete(key []byte) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockKVStore) Write(b *db.Batch) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockKVStore) NewIterator() (db.Iterator, error) {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.(db.Iterator), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockKVStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockIterator implements the db.Iterator interface for testing
type MockIterator struct {
	mock.Mock
}

func NewMockIterator() *MockIterator {
	return &MockIterator{}
}

func (m *MockIterator) First() bool {
	return m.Called().Bool(0)
}

func (m *MockIterator) Last() bool {
	return m.Called().Bool(0)
}

func (m *MockIterator) Next() bool {
	return m.Called().Bool(0)
}

func (m *MockIterator) Prev() bool {
	return m.Called().Bool(0)
}

func (m *MockIterator) Valid() bool {
	return m.Called().Bool(0)
}

func (m *MockIterator) Key() []byte {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.([]byte)
	}
	return nil
}

func (m *MockIterator) Value() ([]byte, error) {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIterator) Error() error {
	return m.Called().Error(0)
}

func (m *MockIterator) Close() error {
	return m.Called().Error(0)
}
