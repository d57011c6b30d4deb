package redisqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"fliplister/internal/pricing"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client, err := NewClientWithRedis(rdb)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, mr
}

func TestClient_TaskFlow(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	req := NewFetchRequest("lst-1001", "nintendo switch oled", "good", 50)
	if err := client.PushTask(ctx, req); err != nil {
		t.Errorf("PushTask failed: %v", err)
	}

	tasks, results, err := client.QueueDepth(ctx)
	if err != nil {
		t.Errorf("QueueDepth failed: %v", err)
	}
	if tasks != 1 || results != 0 {
		t.Errorf("expected 1 task, 0 results, got %d tasks, %d results", tasks, results)
	}

	// 同一 TaskID 重复推送应被拦下
	if err := client.PushTask(ctx, req); !errors.Is(err, ErrTaskExists) {
		t.Errorf("expected ErrTaskExists on duplicate push, got %v", err)
	}

	popped, err := client.PopTask(ctx, 1*time.Second)
	if err != nil {
		t.Fatalf("PopTask failed: %v", err)
	}
	if popped.TaskID != req.TaskID || popped.Keywords != req.Keywords {
		t.Errorf("PopTask data mismatch. expected %+v, got %+v", req, popped)
	}

	// ack 之后 pending set 应清空，允许重新入队
	if err := client.AckTask(ctx, popped); err != nil {
		t.Fatalf("AckTask failed: %v", err)
	}
	size, err := client.PendingSetSize(ctx)
	if err != nil {
		t.Fatalf("PendingSetSize failed: %v", err)
	}
	if size != 0 {
		t.Errorf("expected empty pending set after ack, got %d", size)
	}
	if err := client.PushTask(ctx, req); err != nil {
		t.Errorf("re-push after ack should succeed: %v", err)
	}
}

func TestClient_ResultFlow(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	res := &FetchResult{
		TaskID:    "t-1001",
		ListingID: "lst-1001",
		Keywords:  "nintendo switch oled",
		Success:   true,
		Records: []pricing.SaleRecord{
			{
				Title:      "Nintendo Switch OLED White",
				ItemID:     "v1|2551|0",
				Price:      decimal.RequireFromString("185.00"),
				TotalPrice: decimal.RequireFromString("192.50"),
				Currency:   "USD",
			},
		},
		FetchedAt: time.Now().Unix(),
	}

	if err := client.PushResult(ctx, res); err != nil {
		t.Errorf("PushResult failed: %v", err)
	}

	popped, err := client.PopResult(ctx, 1*time.Second)
	if err != nil {
		t.Fatalf("PopResult failed: %v", err)
	}
	if len(popped.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(popped.Records))
	}
	if popped.Records[0].ItemID != "v1|2551|0" {
		t.Errorf("record data mismatch")
	}
	if !popped.Records[0].TotalPrice.Equal(decimal.RequireFromString("192.50")) {
		t.Errorf("total price mismatch: %s", popped.Records[0].TotalPrice)
	}
}

func TestClient_RescueStuckTasks(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	req := NewFetchRequest("lst-2001", "herman miller aeron", "fair", 30)
	if err := client.PushTask(ctx, req); err != nil {
		t.Fatalf("PushTask failed: %v", err)
	}
	if _, err := client.PopTask(ctx, 1*time.Second); err != nil {
		t.Fatalf("PopTask failed: %v", err)
	}

	// 把开始时间拨回到超时线之外
	mr.HSet(KeyTaskStartedHash, req.TaskID, "1000000000")

	rescued, err := client.RescueStuckTasks(ctx, time.Minute)
	if err != nil {
		t.Fatalf("RescueStuckTasks failed: %v", err)
	}
	if rescued != 1 {
		t.Fatalf("expected 1 rescued task, got %d", rescued)
	}

	tasks, _, err := client.QueueDepth(ctx)
	if err != nil {
		t.Fatalf("QueueDepth failed: %v", err)
	}
	if tasks != 1 {
		t.Errorf("rescued task should be back on the task queue, depth %d", tasks)
	}
}
