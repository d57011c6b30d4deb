package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"fliplister/internal/copywriter"
	"fliplister/internal/marketplace"
	"fliplister/internal/model"
	"fliplister/internal/pkg/metrics"
	"fliplister/internal/pkg/notify"
	"fliplister/internal/pkg/redisqueue"
	"fliplister/internal/pricing"
)

// StartPipeline 启动结果监听、janitor 和存储清理。
// 所有 goroutine 都随 ctx 退出。
func (s *Server) StartPipeline(ctx context.Context) {
	s.pool.Start(ctx)
	s.uploads.StartSweeper(ctx, s.cfg.Storage.SweepInterval)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("PANIC in result listener", slog.Any("panic", r))
			}
		}()
		s.listenResults(ctx)
	}()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("PANIC in janitor", slog.Any("panic", r))
			}
		}()
		s.runJanitor(ctx)
	}()
}

// listenResults 阻塞消费结果队列，把每条结果交给 worker 池处理。
func (s *Server) listenResults(ctx context.Context) {
	s.logger.Info("pipeline result listener started")

	for {
		select {
		case <-ctx.Done():
			s.pool.Shutdown()
			s.logger.Info("pipeline result listener stopped")
			return
		default:
		}

		res, err := s.queue.PopResult(ctx, s.cfg.App.ResultPopTimeout)
		if errors.Is(err, redisqueue.ErrNoResult) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.logger.Warn("pop result failed", slog.String("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}

		if err := s.pool.SubmitWait(ctx, func(taskCtx context.Context) error {
			return s.processResult(taskCtx, res)
		}); err != nil && ctx.Err() == nil {
			s.logger.Error("submit result to pool failed", slog.String("error", err.Error()))
		}
	}
}

// runJanitor 周期性救援卡死任务并采样队列深度。
func (s *Server) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.App.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rescued, err := s.queue.RescueStuckTasks(ctx, s.cfg.App.TaskTimeout)
			if err != nil {
				s.logger.Warn("rescue stuck tasks failed", slog.String("error", err.Error()))
			} else if rescued > 0 {
				s.logger.Info("rescued stuck fetch tasks", slog.Int("rescued", rescued))
			}

			tasks, results, err := s.queue.QueueDepth(ctx)
			if err == nil {
				metrics.QueueDepth.WithLabelValues("tasks").Set(float64(tasks))
				metrics.QueueDepth.WithLabelValues("results").Set(float64(results))
			}
		}
	}
}

// processResult 处理一条拉取结果：统计分析、定价建议、渠道推荐、
// 文案生成，全部写回 listing，最后发通知。
func (s *Server) processResult(ctx context.Context, res *redisqueue.FetchResult) error {
	// 处理结束即释放去重占位，下一次分析立刻可发
	defer func() {
		if err := s.deduper.Delete(ctx, res.Keywords, res.Condition); err != nil {
			s.logger.Warn("dedup release failed", slog.String("error", err.Error()))
		}
	}()

	l, err := s.store.Get(ctx, res.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.PipelineResultsTotal.WithLabelValues("orphaned").Inc()
			s.logger.Warn("result for unknown listing dropped",
				slog.String("listing_id", res.ListingID))
			return nil
		}
		metrics.PipelineResultsTotal.WithLabelValues("error").Inc()
		return err
	}

	if !res.Success {
		metrics.PipelineResultsTotal.WithLabelValues("fetch_failed").Inc()
		s.logger.Warn("fetch failed for listing",
			slog.String("listing_id", l.ID),
			slog.String("error", res.ErrorMessage))
		// 拉取失败仍然给出基于品相的兜底建议
		return s.applyAnalysis(ctx, l, pricing.Result{
			Success: false,
			Message: res.ErrorMessage,
		})
	}

	start := time.Now()
	analysis := s.analyzer.Analyze(res.Records)
	err = s.applyAnalysis(ctx, l, analysis)
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineResultsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.PipelineResultsTotal.WithLabelValues("ok").Inc()
	return nil
}

// applyAnalysis 把分析产物落库并通知。analysis.Success=false 时
// 走品相兜底定价，推荐里也不带 eBay 活跃度加成。
func (s *Server) applyAnalysis(ctx context.Context, l *model.Listing, analysis pricing.Result) error {
	suggestion := pricing.Suggest(analysis, l.Condition)
	recs := marketplace.Rank(l.Category, suggestion.Recommended, l.ItemName, &analysis)

	cp, err := s.copygen.Generate(ctx, copywriter.Input{
		ItemName:    l.ItemName,
		Description: l.Description,
		Condition:   l.Condition,
		Price:       suggestion.Recommended,
	})
	if err != nil {
		s.logger.Warn("copy generation failed",
			slog.String("listing_id", l.ID),
			slog.String("error", err.Error()))
	}

	if l.Analysis, err = json.Marshal(analysis); err != nil {
		return err
	}
	if l.Suggestion, err = json.Marshal(suggestion); err != nil {
		return err
	}
	if l.Recommendations, err = json.Marshal(recs); err != nil {
		return err
	}
	if l.Copy, err = json.Marshal(cp); err != nil {
		return err
	}

	// 用户没定价时采用推荐价
	if l.AskingPrice == "" || l.AskingPrice == "0" || l.AskingPrice == "0.00" {
		l.AskingPrice = suggestion.Recommended.StringFixed(2)
	}
	l.Status = "ready"

	if err := s.store.Update(ctx, l); err != nil {
		return err
	}

	s.logger.Info("listing analysis ready",
		slog.String("listing_id", l.ID),
		slog.String("recommended", suggestion.Recommended.StringFixed(2)),
		slog.Int("sold_count", analysis.Count))

	if s.cfg.App.NotifyEmail != "" {
		topChannel := ""
		if len(recs) > 0 {
			topChannel = recs[0].DisplayName
		}
		report := &notify.AnalysisReport{
			ListingID:   l.ID,
			ItemName:    l.ItemName,
			Condition:   l.Condition,
			Recommended: suggestion.Recommended,
			RangeMin:    suggestion.RangeMin,
			RangeMax:    suggestion.RangeMax,
			SoldCount:   analysis.Count,
			Insight:     analysis.Insight,
			TopChannel:  topChannel,
		}
		if err := s.notifier.Send(ctx, report, s.cfg.App.NotifyEmail); err != nil {
			s.logger.Warn("notification failed",
				slog.String("listing_id", l.ID),
				slog.String("error", err.Error()))
		}
	}

	return nil
}
