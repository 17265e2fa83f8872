// Package snapshot keeps the last good dataset in a single versioned slot so
// acquisition can fall back to it when the backend is unreachable.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/floatchat/models"
)

// DefaultKey is the slot used when none is configured. Bump the version
// suffix when the stored format changes so old entries are ignored.
const DefaultKey = "floatchat:snapshot:v1"

// Storage is the scoped key-value collaborator. It may be nil.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Cache reads and writes the snapshot. None of its methods return errors:
// unavailable or failing storage degrades to no-op writes and empty reads.
type Cache struct {
	store  Storage
	key    string
	logger *log.Logger
}

// New builds a cache over store.
func New(store Storage, key string, logger *log.Logger) *Cache {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[SNAPSHOT] ", log.LstdFlags)
	}
	return &Cache{store: store, key: key, logger: logger}
}

// Key returns the storage key in use.
func (c *Cache) Key() string { return c.key }

// Persist overwrites the slot with snap.
func (c *Cache) Persist(ctx context.Context, snap models.Snapshot) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.persist(ctx, snap); err != nil {
		c.logger.Printf("persist %s: %v", c.key, err)
	}
}

func (c *Cache) persist(ctx context.Context, snap models.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("storage panic: %v", r)
		}
	}()
	if snap.Records == nil {
		snap.Records = []models.Record{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return c.store.Set(ctx, c.key, string(data))
}

// Load returns the cached snapshot, or nil when there is none or it cannot be read.
func (c *Cache) Load(ctx context.Context) *models.Snapshot {
	if c == nil || c.store == nil {
		return nil
	}
	snap, err := c.load(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrKeyNotFound) {
			c.logger.Printf("load %s: %v", c.key, err)
		}
		return nil
	}
	return snap
}

func (c *Cache) load(ctx context.Context) (snap *models.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap, err = nil, fmt.Errorf("storage panic: %v", r)
		}
	}()
	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, models.ErrKeyNotFound
	}
	var out models.Snapshot
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
