package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-engine/internal/config"
	"github.com/stemsi/exstem-engine/internal/model"
)

// testRedis connects to REDIS_TEST_URL on a database reserved for this
// package and flushes it. Tests skip when the variable is unset.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse REDIS_TEST_URL: %v", err)
	}
	opt.DB = 13
	rdb := redis.NewClient(opt)
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestPaperCache(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	c := NewPaperCache(rdb, time.Minute)
	paperID := uuid.New()

	if _, ok, err := c.GetItems(ctx, paperID); ok || err != nil {
		t.Fatalf("GetItems() on empty cache = %v, %v", ok, err)
	}

	items := []model.PaperItemView{
		{ItemID: uuid.New(), QuestionNumber: 1, Text: "q1", Options: model.Options{A: "1", B: "2", C: "3", D: "4"}, Marks: 2},
		{ItemID: uuid.New(), QuestionNumber: 2, Text: "q2", Marks: 1},
	}
	if err := c.SetItems(ctx, paperID, items); err != nil {
		t.Fatalf("SetItems() error = %v", err)
	}
	if ttl := rdb.TTL(ctx, config.CacheKey.PaperItemsKey(paperID.String())).Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	got, ok, err := c.GetItems(ctx, paperID)
	if err != nil || !ok || len(got) != 2 || got[0].ItemID != items[0].ItemID || got[0].Options.C != "3" {
		t.Fatalf("GetItems() = %+v, %v, %v", got, ok, err)
	}

	if err := c.Invalidate(ctx, paperID); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, ok, _ := c.GetItems(ctx, paperID); ok {
		t.Fatal("entry still cached after Invalidate")
	}
}

func TestPaperCache_CorruptEntry(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	paperID := uuid.New()
	rdb.Set(ctx, config.CacheKey.PaperItemsKey(paperID.String()), "{not json", time.Minute)

	if _, ok, err := NewPaperCache(rdb, time.Minute).GetItems(ctx, paperID); ok || err == nil {
		t.Fatalf("GetItems() = ok %v err %v, want decode error", ok, err)
	}
}

func TestResultQueue(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	ev := model.ResultEvent{
		AttemptID:   uuid.New(),
		ExamID:      uuid.New(),
		UserID:      42,
		Status:      model.AttemptSubmitted,
		FinalScore:  17.5,
		SubmittedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := NewResultQueue(rdb).PublishResult(ctx, ev); err != nil {
		t.Fatalf("PublishResult() error = %v", err)
	}

	raw, err := rdb.LPop(ctx, config.WorkerKey.PublishResultsQueue).Bytes()
	if err != nil {
		t.Fatalf("LPop() error = %v", err)
	}
	var got model.ResultEvent
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.AttemptID != ev.AttemptID || got.FinalScore != ev.FinalScore || !got.SubmittedAt.Equal(ev.SubmittedAt) {
		t.Fatalf("queued = %+v, want %+v", got, ev)
	}
}

func TestMonitorBus(t *testing.T) {
	rdb := testRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	bus := NewMonitorBus(rdb)
	examID := uuid.New()

	sub := bus.Subscribe(ctx, examID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	other := model.MonitorEvent{Type: model.MonitorAnswerSaved, ExamID: uuid.New(), UserID: 1}
	mine := model.MonitorEvent{Type: model.MonitorAttemptStarted, ExamID: examID, AttemptID: uuid.New(), UserID: 2, Status: model.AttemptInProgress}
	if err := bus.PublishEvent(ctx, other); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}
	if err := bus.PublishEvent(ctx, mine); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage() error = %v", err)
	}
	var got model.MonitorEvent
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.AttemptID != mine.AttemptID || got.Type != model.MonitorAttemptStarted {
		t.Fatalf("received %+v, want the event of the subscribed exam", got)
	}
}
