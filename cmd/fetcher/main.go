package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fliplister/internal/config"
	"fliplister/internal/ebay"
	"fliplister/internal/fetcher"
	"fliplister/internal/pkg/logger"
	"fliplister/internal/pkg/redisqueue"
)

// main 是 fetcher 服务的入口函数。
//
// 它负责：
// 1. 加载配置
// 2. 初始化日志记录器
// 3. 启动队列消费循环与 Metrics 服务
// 4. 优雅关闭
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := logger.NewDefault(cfg.App.LogLevel)

	if cfg.EBay.AppID == "" {
		appLogger.Warn("ebay app id is empty, finding api calls will be rejected upstream")
	}

	redisQueue := redisqueue.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
	source := ebay.NewClient(cfg.EBay.AppID, cfg.EBay.Endpoint, cfg.EBay.RequestTimeout, appLogger)
	service := fetcher.NewService(
		redisQueue,
		source,
		appLogger,
		cfg.EBay.Concurrency,
		cfg.EBay.PopTimeout,
		cfg.App.TaskTimeout,
	)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	go func() {
		defer func() {
			if r := recover(); r != nil {
				appLogger.Error("PANIC in fetcher loop", slog.Any("panic", r))
				// 记录日志后退出，交给 Docker 重启，保持状态干净。
				os.Exit(1)
			}
		}()

		appLogger.Info("starting fetcher loop")
		if err := service.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("fetcher loop stopped", slog.String("error", err.Error()))
		}
	}()

	metricsAddr := ":2112"
	if v := os.Getenv("FETCHER_METRICS_ADDR"); v != "" {
		metricsAddr = v
	}
	metricsServer := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		appLogger.Info("fetcher metrics server started", slog.String("addr", metricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("metrics server stopped with error", slog.String("error", err.Error()))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	appLogger.Info("received os signal", slog.String("signal", sig.String()))

	appLogger.Info("shutting down fetcher service...")
	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("metrics shutdown error", slog.String("error", err.Error()))
	}

	processed, failed := service.Stats()
	appLogger.Info("fetcher service stopped gracefully",
		slog.Int64("processed", processed),
		slog.Int64("failed", failed))
}
