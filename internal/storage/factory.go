package storage

import (
	"fmt"
	"strings"

	"lights-api/internal/config"
	"lights-api/internal/domain"
)

// StoreType selects a rate limit store backend.
type StoreType string

const (
	MemoryStoreType StoreType = "memory"
	RedisStoreType  StoreType = "redis"
)

// NewStore builds the rate limit store named by cfg.StorageType.
func NewStore(cfg *config.Config, logger domain.Logger) (domain.RateLimitStore, error) {
	switch StoreType(strings.ToLower(cfg.StorageType)) {
	case MemoryStoreType:
		return NewMemoryStore(logger), nil
	case RedisStoreType:
		store, err := NewRedisStore(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}

// SupportedTypes lists the selectable backends.
func SupportedTypes() []StoreType {
	return []StoreType{MemoryStoreType, RedisStoreType}
}
