package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fliplister/internal/marketplace"
	"fliplister/internal/pkg/metrics"
	"fliplister/internal/pkg/redisqueue"
	"fliplister/internal/pricing"
)

// handleAnalyzeListing 为 listing 排队一次成交数据拉取。
// 拉取和后续分析都是异步的，这里只负责入队并把状态置为 analyzing。
func (s *Server) handleAnalyzeListing(c *gin.Context) {
	l, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load listing failed"})
		return
	}

	keywords := buildKeywords(l.Brand, l.ItemName)
	if keywords == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing has no searchable name"})
		return
	}

	dup, err := s.deduper.IsDuplicate(c.Request.Context(), keywords, l.Condition)
	if err != nil {
		s.logger.Warn("dedup check failed", slog.String("error", err.Error()))
	}
	if dup {
		metrics.FetchDuplicatePreventedTotal.Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "analysis already in progress for this query"})
		return
	}

	req := redisqueue.NewFetchRequest(l.ID, keywords, l.Condition, s.cfg.EBay.MaxResults)
	if err := s.dispatcher.Dispatch(c.Request.Context(), req); err != nil {
		// 入队失败要释放去重占位，让用户能立刻重试
		if delErr := s.deduper.Delete(c.Request.Context(), keywords, l.Condition); delErr != nil {
			s.logger.Warn("dedup release failed", slog.String("error", delErr.Error()))
		}
		if errors.Is(err, redisqueue.ErrTaskExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "task already queued"})
			return
		}
		s.logger.Error("dispatch fetch task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue fetch task failed"})
		return
	}

	l.Status = "analyzing"
	if err := s.store.Update(c.Request.Context(), l); err != nil {
		s.logger.Warn("mark analyzing failed", slog.String("error", err.Error()))
	}

	c.JSON(http.StatusAccepted, gin.H{
		"listing_id": l.ID,
		"task_id":    req.TaskID,
		"keywords":   keywords,
	})
}

// buildKeywords 拼接搜索关键词，品牌在前。
func buildKeywords(brand, itemName string) string {
	name := strings.TrimSpace(itemName)
	brand = strings.TrimSpace(brand)
	if brand != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(brand)) {
		return brand + " " + name
	}
	return name
}

// analyzeRecordsRequest 直接对一批成交记录做统计分析。
type analyzeRecordsRequest struct {
	Records   []pricing.SaleRecord `json:"records"`
	Condition string               `json:"condition"`
}

type analyzeRecordsResponse struct {
	Analysis   pricing.Result      `json:"analysis"`
	Suggestion *pricing.Suggestion `json:"suggestion,omitempty"`
}

func (s *Server) handleAnalyzeRecords(c *gin.Context) {
	var req analyzeRecordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	result := s.analyzer.Analyze(req.Records)
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	resp := analyzeRecordsResponse{Analysis: result}
	if req.Condition != "" {
		sg := pricing.Suggest(result, req.Condition)
		resp.Suggestion = &sg
	}

	c.JSON(http.StatusOK, resp)
}

// rankRequest 渠道推荐请求。Analysis 可选，只影响 eBay 加成。
type rankRequest struct {
	Category string          `json:"category" binding:"required"`
	Price    string          `json:"price" binding:"required"`
	ItemName string          `json:"item_name"`
	Analysis *pricing.Result `json:"analysis"`
}

func (s *Server) handleRankMarketplaces(c *gin.Context) {
	var req rankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}

	recs := marketplace.Rank(req.Category, price, req.ItemName, req.Analysis)
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

func (s *Server) handleListMarketplaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"marketplaces": marketplace.Catalog})
}
