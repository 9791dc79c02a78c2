package worker

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-engine/internal/config"
	"github.com/stemsi/exstem-engine/internal/model"
)

func TestResultWorker_KeepsBestScore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse REDIS_TEST_URL: %v", err)
	}
	opt.DB = 14
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	rdb.FlushDB(ctx)

	examID := uuid.New()
	for _, ev := range []model.ResultEvent{
		{AttemptID: uuid.New(), ExamID: examID, UserID: 1, FinalScore: 12},
		{AttemptID: uuid.New(), ExamID: examID, UserID: 1, FinalScore: 8},
		{AttemptID: uuid.New(), ExamID: examID, UserID: 2, FinalScore: 15.5},
	} {
		raw, _ := json.Marshal(ev)
		rdb.RPush(ctx, config.WorkerKey.PublishResultsQueue, raw)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		NewResultWorker(rdb, zerolog.Nop()).Start(workerCtx)
		close(done)
	}()

	key := config.CacheKey.ExamLeaderboardKey(examID.String())
	deadline := time.Now().Add(10 * time.Second)
	for rdb.ZCard(ctx, key).Val() < 2 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	cancel()
	<-done

	if got := rdb.ZScore(ctx, key, "1").Val(); got != 12 {
		t.Fatalf("user 1 score = %v, want best score 12", got)
	}
	if got := rdb.ZScore(ctx, key, "2").Val(); got != 15.5 {
		t.Fatalf("user 2 score = %v, want 15.5", got)
	}
	if n := rdb.LLen(ctx, config.WorkerKey.PublishResultsQueue).Val(); n != 0 {
		t.Fatalf("queue length = %d, want drained", n)
	}
}
