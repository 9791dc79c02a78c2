package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-engine/internal/config"
	"github.com/stemsi/exstem-engine/internal/model"
)

// ResultQueue pushes finalized results onto the Redis list drained by the
// result worker.
type ResultQueue struct {
	rdb *redis.Client
}

func NewResultQueue(rdb *redis.Client) *ResultQueue {
	return &ResultQueue{rdb: rdb}
}

// PublishResult enqueues ev.
func (q *ResultQueue) PublishResult(ctx context.Context, ev model.ResultEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PublishResultsQueue, raw).Err()
}
