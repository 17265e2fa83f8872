package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/floatchat/config"
	"github.com/mohammad-safakhou/floatchat/models"
	"github.com/mohammad-safakhou/floatchat/repository/memory_repository"
	"github.com/mohammad-safakhou/floatchat/repository/redis_repository"
)

// KVStore is a scoped string key-value store.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = models.ErrKeyNotFound

type RepoType string

const (
	RepoTypeRedis  RepoType = "redis"
	RepoTypeMemory RepoType = "memory"
	RepoTypeNone   RepoType = "none"
)

// NewKVStore builds the store selected by cfg.Type. RepoTypeNone yields a nil
// store, which callers treat as storage being unavailable.
func NewKVStore(ctx context.Context, cfg config.StorageConfig) (KVStore, error) {
	switch RepoType(strings.ToLower(strings.TrimSpace(cfg.Type))) {
	case RepoTypeRedis:
		c, err := redis_repository.Conn(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Timeout)
		if err != nil {
			return nil, fmt.Errorf("redis storage: %w", err)
		}
		return redis_repository.NewRedisKVStore(c, cfg.Redis.TTL), nil
	case RepoTypeMemory:
		return memory_repository.NewMemoryKVStore(cfg.Memory.TTL), nil
	case RepoTypeNone:
		return nil, nil
	}
	return nil, fmt.Errorf("invalid repository type: %s", cfg.Type)
}
