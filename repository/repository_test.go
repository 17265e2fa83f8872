package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/mohammad-safakhou/floatchat/config"
	"github.com/mohammad-safakhou/floatchat/models"
)

func TestNewKVStoreMemory(t *testing.T) {
	ctx := context.Background()
	st, err := NewKVStore(ctx, config.StorageConfig{Type: "Memory"})
	if err != nil {
		t.Fatalf("NewKVStore: %v", err)
	}
	if _, err := st.Get(ctx, "missing"); !errors.Is(err, models.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := st.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := st.Get(ctx, "k"); err != nil || v != "v" {
		t.Fatalf("get = %q, %v", v, err)
	}
}

func TestNewKVStoreNone(t *testing.T) {
	st, err := NewKVStore(context.Background(), config.StorageConfig{Type: "none"})
	if err != nil || st != nil {
		t.Fatalf("expected nil store, got %v, %v", st, err)
	}
}

func TestNewKVStoreUnknown(t *testing.T) {
	if _, err := NewKVStore(context.Background(), config.StorageConfig{Type: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
