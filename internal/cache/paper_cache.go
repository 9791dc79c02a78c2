// Package cache holds the Redis-backed collaborators of the attempt engine:
// the student paper cache, the result queue and the live monitor bus.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-engine/internal/config"
	"github.com/stemsi/exstem-engine/internal/model"
)

// PaperCache stores the answer-free item views of materialized papers.
type PaperCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPaperCache creates a PaperCache whose entries expire after ttl.
func NewPaperCache(rdb *redis.Client, ttl time.Duration) *PaperCache {
	return &PaperCache{rdb: rdb, ttl: ttl}
}

// GetItems returns the cached views of a paper. A miss returns ok=false and no error.
func (c *PaperCache) GetItems(ctx context.Context, paperID uuid.UUID) ([]model.PaperItemView, bool, error) {
	data, err := c.rdb.Get(ctx, config.CacheKey.PaperItemsKey(paperID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var items []model.PaperItemView
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("decode cached paper: %w", err)
	}
	return items, true, nil
}

// SetItems caches the views of a paper.
func (c *PaperCache) SetItems(ctx context.Context, paperID uuid.UUID, items []model.PaperItemView) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, config.CacheKey.PaperItemsKey(paperID.String()), data, c.ttl).Err()
}

// Invalidate drops the cached views of a paper after regeneration.
func (c *PaperCache) Invalidate(ctx context.Context, paperID uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.PaperItemsKey(paperID.String())).Err()
}
