package memory_repository

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/floatchat/models"
	"github.com/patrickmn/go-cache"
)

// KVStore keeps string values in process memory.
type KVStore struct {
	cache *cache.Cache
}

// NewMemoryKVStore creates a store whose entries expire after ttl; zero keeps
// them for the life of the process.
func NewMemoryKVStore(ttl time.Duration) *KVStore {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl / 2
	}
	return &KVStore{cache: cache.New(expiration, cleanup)}
}

func (m *KVStore) Get(_ context.Context, key string) (string, error) {
	if x, found := m.cache.Get(key); found {
		return x.(string), nil
	}
	return "", models.ErrKeyNotFound
}

func (m *KVStore) Set(_ context.Context, key, value string) error {
	m.cache.Set(key, value, cache.DefaultExpiration)
	return nil
}
