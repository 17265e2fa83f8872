package redis_repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammad-safakhou/floatchat/models"
	"github.com/mohammad-safakhou/floatchat/repository/redis_repository"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisKVStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}

	client, err := redis_repository.Conn(ctx, host, port.Port(), "", 0, 5*time.Second)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	st := redis_repository.NewRedisKVStore(client, time.Minute)
	defer st.Close()

	if _, err := st.Get(ctx, "floatchat:snapshot:v1"); !errors.Is(err, models.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := st.Set(ctx, "floatchat:snapshot:v1", `{"query":"q"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := st.Get(ctx, "floatchat:snapshot:v1")
	if err != nil || got != `{"query":"q"}` {
		t.Fatalf("get = %q, %v", got, err)
	}
	ttl, err := client.TTL(ctx, "floatchat:snapshot:v1").Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v, %v", ttl, err)
	}
}
