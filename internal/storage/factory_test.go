package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lights-api/internal/config"
)

func TestNewStore_Memory(t *testing.T) {
	cfg := &config.Config{StorageType: "memory"}

	store, err := NewStore(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}

func TestNewStore_MemoryCaseInsensitive(t *testing.T) {
	cfg := &config.Config{StorageType: "MEMORY"}

	store, err := NewStore(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}

func TestNewStore_UnsupportedType(t *testing.T) {
	cfg := &config.Config{StorageType: "cassandra"}

	store, err := NewStore(cfg, nil)
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "unsupported storage type")
}

func TestSupportedTypes(t *testing.T) {
	types := SupportedTypes()
	assert.Contains(t, types, MemoryStoreType)
	assert.Contains(t, types, RedisStoreType)
}
