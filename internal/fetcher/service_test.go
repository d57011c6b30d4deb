package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"fliplister/internal/pkg/redisqueue"
	"fliplister/internal/pricing"
)

type stubSource struct {
	records []pricing.SaleRecord
	err     error
}

func (s *stubSource) SearchSold(ctx context.Context, keywords, condition string, maxResults int) ([]pricing.SaleRecord, error) {
	return s.records, s.err
}

func newTestQueue(t *testing.T) *redisqueue.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client, err := redisqueue.NewClientWithRedis(rdb)
	if err != nil {
		t.Fatalf("create queue client: %v", err)
	}
	return client
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestService_ProcessesTask(t *testing.T) {
	q := newTestQueue(t)
	src := &stubSource{records: []pricing.SaleRecord{
		{
			Title:      "Dyson V8 Vacuum",
			ItemID:     "v1|101|0",
			TotalPrice: decimal.RequireFromString("120.00"),
			SoldAt:     time.Now(),
		},
	}}
	svc := NewService(q, src, testLogger(), 2, 100*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	task := redisqueue.NewFetchRequest("lst-1", "dyson v8", "good", 50)
	if err := q.PushTask(ctx, task); err != nil {
		t.Fatalf("push task: %v", err)
	}

	res, err := q.PopResult(ctx, 3*time.Second)
	if err != nil {
		t.Fatalf("pop result: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.ErrorMessage)
	}
	if res.ListingID != "lst-1" || len(res.Records) != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	// 任务应已被 ack，pending set 为空
	deadline := time.Now().Add(2 * time.Second)
	for {
		size, err := q.PendingSetSize(ctx)
		if err != nil {
			t.Fatalf("pending set size: %v", err)
		}
		if size == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task not acked, pending set size %d", size)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestService_ReportsSourceError(t *testing.T) {
	q := newTestQueue(t)
	src := &stubSource{err: errors.New("finding api unavailable")}
	svc := NewService(q, src, testLogger(), 1, 100*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	task := redisqueue.NewFetchRequest("lst-2", "broken query", "new", 20)
	if err := q.PushTask(ctx, task); err != nil {
		t.Fatalf("push task: %v", err)
	}

	res, err := q.PopResult(ctx, 3*time.Second)
	if err != nil {
		t.Fatalf("pop result: %v", err)
	}
	if res.Success {
		t.Fatal("expected failed result")
	}
	if res.ErrorMessage == "" {
		t.Error("error message should be carried back")
	}
	if len(res.Records) != 0 {
		t.Errorf("failed result must not carry records, got %d", len(res.Records))
	}
}
