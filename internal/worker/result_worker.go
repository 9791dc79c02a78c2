package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/config"
	"github.com/stemsi/exstem-engine/internal/model"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker drains the published results queue into the per-exam
// leaderboard sorted sets read by the ranking collaborator.
type ResultWorker struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewResultWorker(rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		rdb: rdb,
		log: log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs until ctx is cancelled. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.ResultEvent, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PublishResultsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var ev model.ResultEvent
			if err := json.Unmarshal([]byte(item[1]), &ev); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			batch = append(batch, &ev)
		}
	}
}

// ----------------------------------------------------------------
// Batch write with per-item fallback
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.ResultEvent) {
	if len(batch) == 0 {
		return
	}

	pipe := w.rdb.Pipeline()
	for _, ev := range batch {
		pipe.ZAddArgs(ctx, config.CacheKey.ExamLeaderboardKey(ev.ExamID.String()), leaderboardArgs(ev))
	}
	_, err := pipe.Exec(ctx)
	if err == nil {
		w.log.Debug().Int("results", len(batch)).Msg("Leaderboards updated")
		return
	}
	w.log.Warn().Err(err).Msg("Bulk leaderboard update failed, using fallback")

	for _, ev := range batch {
		key := config.CacheKey.ExamLeaderboardKey(ev.ExamID.String())
		if err := w.rdb.ZAddArgs(ctx, key, leaderboardArgs(ev)).Err(); err != nil {
			w.log.Error().Err(err).Str("attempt_id", ev.AttemptID.String()).Msg("Leaderboard update failed, requeueing")
			raw, _ := json.Marshal(ev)
			w.rdb.RPush(ctx, config.WorkerKey.PublishResultsQueue, raw)
		}
	}
}

// leaderboardArgs keeps the best final score of each user per exam.
func leaderboardArgs(ev *model.ResultEvent) redis.ZAddArgs {
	return redis.ZAddArgs{
		GT: true,
		Members: []redis.Z{{
			Score:  ev.FinalScore,
			Member: strconv.Itoa(ev.UserID),
		}},
	}
}
