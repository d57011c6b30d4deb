package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"fliplister/internal/pkg/metrics"
	"fliplister/internal/pkg/redisqueue"
	"fliplister/internal/pricing"
)

// SaleSource 按关键词检索已成交记录。
type SaleSource interface {
	SearchSold(ctx context.Context, keywords, condition string, maxResults int) ([]pricing.SaleRecord, error)
}

// Queue 是 fetcher 消费的任务队列。
type Queue interface {
	PopTask(ctx context.Context, timeout time.Duration) (*redisqueue.FetchRequest, error)
	PushResult(ctx context.Context, res *redisqueue.FetchResult) error
	AckTask(ctx context.Context, task *redisqueue.FetchRequest) error
}

// Service 从队列取拉取任务，调用成交数据源，把结果推回结果队列。
type Service struct {
	queue       Queue
	source      SaleSource
	logger      *slog.Logger
	concurrency int
	popTimeout  time.Duration
	taskTimeout time.Duration

	processed atomic.Int64
	failed    atomic.Int64
}

// NewService 创建 fetcher。concurrency 小于 1 时取 1。
func NewService(queue Queue, source SaleSource, logger *slog.Logger, concurrency int, popTimeout, taskTimeout time.Duration) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	if taskTimeout <= 0 {
		taskTimeout = 2 * time.Minute
	}
	return &Service{
		queue:       queue,
		source:      source,
		logger:      logger,
		concurrency: concurrency,
		popTimeout:  popTimeout,
		taskTimeout: taskTimeout,
	}
}

// Run 阻塞消费任务队列直到 ctx 取消。在途任务会被等待收尾。
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("fetcher started",
		slog.Int("concurrency", s.concurrency),
		slog.String("task_timeout", s.taskTimeout.String()))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			s.logger.Info("fetcher stopped",
				slog.Int64("processed", s.processed.Load()),
				slog.Int64("failed", s.failed.Load()))
			return ctx.Err()
		default:
		}

		task, err := s.queue.PopTask(ctx, s.popTimeout)
		if errors.Is(err, redisqueue.ErrNoTask) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.logger.Warn("pop task failed", slog.String("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(task *redisqueue.FetchRequest) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("task panic recovered",
						slog.String("task_id", task.TaskID),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())))
				}
			}()
			s.handle(ctx, task)
		}(task)
	}
}

// handle 执行单个拉取任务。无论成败都会推结果并 ack，
// 失败信息随结果回传，由 pipeline 决定如何处理。
func (s *Service) handle(ctx context.Context, task *redisqueue.FetchRequest) {
	metrics.ActiveFetches.Inc()
	defer metrics.ActiveFetches.Dec()

	start := time.Now()
	taskCtx, cancel := context.WithTimeout(ctx, s.taskTimeout)
	defer cancel()

	records, err := s.source.SearchSold(taskCtx, task.Keywords, task.Condition, task.MaxResults)

	res := &redisqueue.FetchResult{
		TaskID:    task.TaskID,
		ListingID: task.ListingID,
		Keywords:  task.Keywords,
		Condition: task.Condition,
		FetchedAt: time.Now().Unix(),
	}
	if err != nil {
		s.failed.Add(1)
		metrics.FetcherRequestsTotal.WithLabelValues("error").Inc()
		res.Success = false
		res.ErrorMessage = err.Error()
		s.logger.Warn("fetch failed",
			slog.String("task_id", task.TaskID),
			slog.String("keywords", task.Keywords),
			slog.String("error", err.Error()))
	} else {
		s.processed.Add(1)
		metrics.FetcherRequestsTotal.WithLabelValues("ok").Inc()
		res.Success = true
		res.Records = records
	}
	metrics.FetcherRequestDuration.Observe(time.Since(start).Seconds())

	// 推结果和 ack 用后台 context，ctx 取消时也要把在途任务收尾
	finishCtx, finishCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer finishCancel()

	if err := s.queue.PushResult(finishCtx, res); err != nil {
		s.logger.Error("push result failed",
			slog.String("task_id", task.TaskID),
			slog.String("error", err.Error()))
		return
	}
	if err := s.queue.AckTask(finishCtx, task); err != nil {
		s.logger.Warn("ack task failed",
			slog.String("task_id", task.TaskID),
			slog.String("error", err.Error()))
	}
}

// Stats 返回当前计数，日志和调试用。
func (s *Service) Stats() (processed, failed int64) {
	return s.processed.Load(), s.failed.Load()
}
