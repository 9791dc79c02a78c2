package cache

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-engine/internal/config"
	"github.com/stemsi/exstem-engine/internal/model"
)

// MonitorBus fans attempt lifecycle events out over Redis Pub/Sub, one
// channel per exam.
type MonitorBus struct {
	rdb *redis.Client
}

func NewMonitorBus(rdb *redis.Client) *MonitorBus {
	return &MonitorBus{rdb: rdb}
}

// PublishEvent broadcasts ev on the channel of its exam.
func (b *MonitorBus) PublishEvent(ctx context.Context, ev model.MonitorEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(ev.ExamID.String()), payload).Err()
}

// Subscribe opens a subscription to the monitor channel of examID. The
// caller closes it.
func (b *MonitorBus) Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub {
	return b.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))
}
