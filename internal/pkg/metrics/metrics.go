package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetcherRequestsTotal 按状态统计 eBay 拉取次数。
	FetcherRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fliplister_fetcher_requests_total",
		Help: "Total eBay fetch attempts by status.",
	}, []string{"status"})

	// FetcherRequestDuration 记录单次拉取耗时。
	FetcherRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fliplister_fetcher_request_duration_seconds",
		Help:    "Duration of eBay fetch attempts.",
		Buckets: prometheus.DefBuckets,
	})

	// ActiveFetches 当前正在执行的拉取任务数。
	ActiveFetches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fliplister_fetcher_active_tasks",
		Help: "Number of fetch tasks currently in flight.",
	})

	// QueueDepth 是两条 Redis 队列的即时深度，由服务端定期采样。
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fliplister_queue_depth",
		Help: "Current depth of the Redis work queues.",
	}, []string{"queue"})

	// FetchTaskThroughput 统计任务进出队列的吞吐。
	FetchTaskThroughput = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fliplister_fetch_task_throughput_total",
		Help: "Fetch tasks entering and leaving the queue.",
	}, []string{"direction", "result"})

	// FetchDuplicatePreventedTotal 被去重拦下的重复拉取请求数。
	FetchDuplicatePreventedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fliplister_fetch_duplicate_prevented_total",
		Help: "Fetch requests skipped because an identical one was in flight.",
	})

	// PipelineResultsTotal 按处理结果统计回流结果条数。
	PipelineResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fliplister_pipeline_results_total",
		Help: "Fetch results consumed by the pipeline, by outcome.",
	}, []string{"outcome"})

	// AnalysisDuration 一次完整分析（统计 + 建议 + 排序）的耗时。
	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fliplister_analysis_duration_seconds",
		Help:    "Duration of the analyze/suggest/rank pipeline per listing.",
		Buckets: prometheus.DefBuckets,
	})

	workerPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fliplister_worker_pool_size",
		Help: "Configured size of the pipeline worker pool.",
	})
)

// InitMetrics 设置启动期的静态指标。幂等，测试里可以重复调用。
func InitMetrics(poolSize int) {
	workerPoolSize.Set(float64(poolSize))
}
