package redis_repository

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/floatchat/models"
	"github.com/redis/go-redis/v9"
)

// KVStore keeps string values in Redis.
type KVStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKVStore wraps client. A zero ttl keeps values until overwritten.
func NewRedisKVStore(client *redis.Client, ttl time.Duration) *KVStore {
	return &KVStore{client: client, ttl: ttl}
}

func (r *KVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", models.ErrKeyNotFound
		}
		return "", err
	}
	return val, nil
}

func (r *KVStore) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

// Close releases the underlying client.
func (r *KVStore) Close() error {
	return r.client.Close()
}
