package workpool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Task 是池内执行的一个异步单元。
type Task func(ctx context.Context) error

// Pool 固定大小的 worker 池，pipeline 用它并发消费拉取结果。
// 单个任务 panic 只记日志，不拖垮 worker。
type Pool struct {
	logger  *slog.Logger
	workers int
	tasks   chan Task

	wg     sync.WaitGroup
	closed atomic.Bool

	submitted atomic.Int64
	dropped   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	panics    atomic.Int64
}

// Stats 统计快照，普通值类型可安全拷贝。
type Stats struct {
	Submitted int64
	Dropped   int64
	Succeeded int64
	Failed    int64
	Panics    int64
}

// New 创建 worker 池。workers、capacity 小于 1 时取 1。
func New(logger *slog.Logger, workers, capacity int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &Pool{
		logger:  logger,
		workers: workers,
		tasks:   make(chan Task, capacity),
	}
}

// Start 启动全部 worker，直到 ctx 取消或 Shutdown。
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("worker stopped", slog.Int("worker_id", id))
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			if task != nil {
				p.execute(ctx, task, id)
			}
		}
	}
}

func (p *Pool) execute(ctx context.Context, task Task, id int) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			p.logger.Error("task panic recovered",
				slog.Int("worker_id", id),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if err := task(ctx); err != nil {
		p.failed.Add(1)
		p.logger.Warn("task failed",
			slog.Int("worker_id", id),
			slog.String("error", err.Error()))
		return
	}
	p.succeeded.Add(1)
}

// Submit 非阻塞入队，队列满或池已关闭时返回 false。
func (p *Pool) Submit(task Task) bool {
	if task == nil {
		return false
	}
	if p.closed.Load() {
		p.logger.Warn("pool is closed, reject task")
		return false
	}

	select {
	case p.tasks <- task:
		p.submitted.Add(1)
		return true
	default:
		p.dropped.Add(1)
		p.logger.Warn("pool full, drop task",
			slog.Int("capacity", cap(p.tasks)),
			slog.Int("pending", len(p.tasks)))
		return false
	}
}

// SubmitWait 阻塞入队，直到成功或 ctx 取消。
func (p *Pool) SubmitWait(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("task is nil")
	}
	if p.closed.Load() {
		return fmt.Errorf("pool is closed")
	}

	select {
	case p.tasks <- task:
		p.submitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown 拒绝新任务，等待在途任务跑完。幂等。
func (p *Pool) Shutdown() {
	if p.closed.CompareAndSwap(false, true) {
		close(p.tasks)
		p.logger.Info("pool shutdown initiated, waiting for workers")
		p.wg.Wait()
		p.logger.Info("pool shutdown completed")
	}
}

// Len 当前待处理任务数。
func (p *Pool) Len() int {
	return len(p.tasks)
}

// Stats 返回统计快照。
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Dropped:   p.dropped.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
		Panics:    p.panics.Load(),
	}
}
