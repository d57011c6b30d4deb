package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fliplister/internal/pkg/metrics"
)

const (
	KeyTaskQueue           = "fliplister:queue:tasks"
	KeyTaskProcessingQueue = "fliplister:queue:tasks:processing"
	KeyResultQueue         = "fliplister:queue:results"
	KeyTaskPendingSet      = "fliplister:queue:tasks:pending" // 去重集合
	KeyTaskStartedHash     = "fliplister:queue:tasks:started" // 任务开始处理时间 (task_id -> unix timestamp)
)

var (
	ErrNoTask     = errors.New("no task available")
	ErrNoResult   = errors.New("no result available")
	ErrTaskExists = errors.New("task already in queue")
)

// Client wraps Redis List operations for fetch task/result queues.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a redisqueue client with address/password.
func NewClient(addr, password string) *Client {
	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       0,
		}),
	}
}

// NewClientWithRedis creates a redisqueue client from an existing redis.Client.
func NewClientWithRedis(rdb *redis.Client) (*Client, error) {
	if rdb == nil {
		return nil, errors.New("redis client is nil")
	}
	return &Client{rdb: rdb}, nil
}

// pushTaskScript 原子性地执行 SADD + LPUSH，避免中间状态不一致。
// KEYS[1] = pending set, KEYS[2] = task queue
// ARGV[1] = task_id, ARGV[2] = task JSON
// 返回: 1 = 成功推送, 0 = 任务已存在
var pushTaskScript = redis.NewScript(`
	local added = redis.call('SADD', KEYS[1], ARGV[1])
	if added == 0 then
		return 0
	end
	redis.call('LPUSH', KEYS[2], ARGV[2])
	return 1
`)

// PushTask serializes a FetchRequest and pushes it into the task queue.
// 如果同一 TaskID 已在队列中，返回 ErrTaskExists。
func (c *Client) PushTask(ctx context.Context, task *FetchRequest) error {
	if task == nil {
		return errors.New("task is nil")
	}
	if c == nil || c.rdb == nil {
		return errors.New("redis client is not initialized")
	}
	if task.TaskID == "" {
		return errors.New("task id is empty")
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	result, err := pushTaskScript.Run(ctx, c.rdb,
		[]string{KeyTaskPendingSet, KeyTaskQueue},
		task.TaskID, string(data),
	).Int()
	if err != nil {
		return fmt.Errorf("push task script: %w", err)
	}

	if result == 0 {
		metrics.FetchTaskThroughput.WithLabelValues("in", "skipped").Inc()
		return ErrTaskExists
	}

	metrics.FetchTaskThroughput.WithLabelValues("in", "pushed").Inc()
	return nil
}

// PopTask blocks until a task is available or timeout is reached.
// 弹出的同时搬到 processing queue，并记录开始时间供 Janitor 判断超时。
func (c *Client) PopTask(ctx context.Context, timeout time.Duration) (*FetchRequest, error) {
	if c == nil || c.rdb == nil {
		return nil, errors.New("redis client is not initialized")
	}
	result, err := c.rdb.BRPopLPush(ctx, KeyTaskQueue, KeyTaskProcessingQueue, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoTask
	}
	if err != nil {
		return nil, fmt.Errorf("brpoplpush task: %w", err)
	}

	var req FetchRequest
	if err := json.Unmarshal([]byte(result), &req); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}

	if req.TaskID != "" {
		c.rdb.HSet(ctx, KeyTaskStartedHash, req.TaskID, time.Now().Unix())
	}

	metrics.FetchTaskThroughput.WithLabelValues("out", "popped").Inc()
	return &req, nil
}

// PushResult serializes a FetchResult and pushes it into the result queue.
func (c *Client) PushResult(ctx context.Context, res *FetchResult) error {
	if res == nil {
		return errors.New("result is nil")
	}
	if c == nil || c.rdb == nil {
		return errors.New("redis client is not initialized")
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := c.rdb.LPush(ctx, KeyResultQueue, string(data)).Err(); err != nil {
		return fmt.Errorf("lpush result: %w", err)
	}
	return nil
}

// PopResult blocks until a result is available or timeout is reached.
func (c *Client) PopResult(ctx context.Context, timeout time.Duration) (*FetchResult, error) {
	if c == nil || c.rdb == nil {
		return nil, errors.New("redis client is not initialized")
	}
	result, err := c.rdb.BRPop(ctx, timeout, KeyResultQueue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoResult
	}
	if err != nil {
		return nil, fmt.Errorf("brpop result: %w", err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("invalid brpop response: %v", result)
	}

	var res FetchResult
	if err := json.Unmarshal([]byte(result[1]), &res); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &res, nil
}

// ackTaskScript 原子性地从 processing queue 中找到并删除匹配 task_id 的任务。
// KEYS[1] = processing queue, KEYS[2] = pending set, KEYS[3] = started hash
// ARGV[1] = task_id
// 返回: 删除的任务数量
var ackTaskScript = redis.NewScript(`
	local queue = KEYS[1]
	local pending = KEYS[2]
	local started = KEYS[3]
	local taskId = ARGV[1]

	local tasks = redis.call('LRANGE', queue, 0, -1)
	local removed = 0
	for _, task in ipairs(tasks) do
		if string.find(task, '"task_id":"' .. taskId .. '"', 1, true) then
			redis.call('LREM', queue, 1, task)
			removed = removed + 1
			break
		end
	end

	redis.call('SREM', pending, taskId)
	redis.call('HDEL', started, taskId)

	return removed
`)

// AckTask removes a processed task from the processing queue, pending set, and started hash.
// 按 task_id 匹配而非完整 JSON，避免序列化差异导致匹配失败。
// ack 之后同一 listing 的新任务可以再次入队。
func (c *Client) AckTask(ctx context.Context, task *FetchRequest) error {
	if task == nil {
		return errors.New("task is nil")
	}
	if c == nil || c.rdb == nil {
		return errors.New("redis client is not initialized")
	}
	if task.TaskID == "" {
		return errors.New("task id is empty")
	}

	_, err := ackTaskScript.Run(ctx, c.rdb,
		[]string{KeyTaskProcessingQueue, KeyTaskPendingSet, KeyTaskStartedHash},
		task.TaskID,
	).Int()
	if err != nil {
		return fmt.Errorf("ack task script: %w", err)
	}

	return nil
}

// QueueDepth returns the current length of task and result queues.
func (c *Client) QueueDepth(ctx context.Context) (int64, int64, error) {
	if c == nil || c.rdb == nil {
		return 0, 0, errors.New("redis client is not initialized")
	}
	tasks, err := c.rdb.LLen(ctx, KeyTaskQueue).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("llen tasks: %w", err)
	}
	results, err := c.rdb.LLen(ctx, KeyResultQueue).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("llen results: %w", err)
	}
	return tasks, results, nil
}

// PendingSetSize returns the number of unique tasks currently pending.
func (c *Client) PendingSetSize(ctx context.Context) (int64, error) {
	if c == nil || c.rdb == nil {
		return 0, errors.New("redis client is not initialized")
	}
	size, err := c.rdb.SCard(ctx, KeyTaskPendingSet).Result()
	if err != nil {
		return 0, fmt.Errorf("scard pending set: %w", err)
	}
	return size, nil
}

// rescueScript 原子性地把卡住的任务搬回任务队列。
// 只有 LREM 成功移除时才 LPUSH，防止多个 Janitor 重复入队。
// KEYS[1] = processing queue, KEYS[2] = task queue, KEYS[3] = started hash
// ARGV[1] = task JSON, ARGV[2] = task_id
// 返回: 1 = 成功 rescue, 0 = 任务不存在
var rescueScript = redis.NewScript(`
	local removed = redis.call('LREM', KEYS[1], 1, ARGV[1])
	if removed > 0 then
		redis.call('LPUSH', KEYS[2], ARGV[1])
		redis.call('HDEL', KEYS[3], ARGV[2])
		return 1
	end
	return 0
`)

// RescueStuckTasks scans the processing queue and requeues tasks that exceed timeout.
// 以 started hash 里记录的开始时间为准，没有记录时退回 CreatedAt。
func (c *Client) RescueStuckTasks(ctx context.Context, timeout time.Duration) (int, error) {
	if c == nil || c.rdb == nil {
		return 0, errors.New("redis client is not initialized")
	}

	startedTimes, err := c.rdb.HGetAll(ctx, KeyTaskStartedHash).Result()
	if err != nil {
		return 0, fmt.Errorf("hgetall started: %w", err)
	}
	if len(startedTimes) == 0 {
		return 0, nil
	}

	tasksRaw, err := c.rdb.LRange(ctx, KeyTaskProcessingQueue, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("lrange processing: %w", err)
	}
	if len(tasksRaw) == 0 {
		// processing queue 为空，但 started hash 有记录，清理孤立记录
		for taskID := range startedTimes {
			c.rdb.HDel(ctx, KeyTaskStartedHash, taskID)
		}
		return 0, nil
	}

	now := time.Now().Unix()
	threshold := int64(timeout.Seconds())
	rescued := 0

	for _, raw := range tasksRaw {
		var task FetchRequest
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			continue
		}
		if task.TaskID == "" {
			continue
		}

		startedStr, ok := startedTimes[task.TaskID]
		if !ok {
			if task.CreatedAt == 0 {
				continue
			}
			if now-task.CreatedAt <= threshold {
				continue
			}
		} else {
			var started int64
			if _, err := fmt.Sscanf(startedStr, "%d", &started); err != nil {
				continue
			}
			if now-started <= threshold {
				continue
			}
		}

		result, err := rescueScript.Run(ctx, c.rdb,
			[]string{KeyTaskProcessingQueue, KeyTaskQueue, KeyTaskStartedHash},
			raw, task.TaskID,
		).Int()
		if err != nil {
			continue
		}
		if result == 1 {
			rescued++
		}
	}

	return rescued, nil
}
