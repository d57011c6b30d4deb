package ebay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"fliplister/internal/pricing"
)

const (
	defaultEndpoint = "https://svcs.ebay.com/services/search/FindingService/v1"
	serviceVersion  = "1.13.0"
	operationName   = "findCompletedItems"

	// Finding API 单页最多返回 100 条。
	maxEntriesPerPage = 100
)

// conditionIDs 把站内统一的品相枚举映射到 eBay 的 conditionId。
// fair 和 good 共用 3000（Used），eBay 没有更细的档位。
var conditionIDs = map[string]string{
	"new":      "1000",
	"like-new": "1500",
	"good":     "3000",
	"fair":     "3000",
	"poor":     "7000",
}

// Client 调用 eBay Finding API 拉取已成交记录。
type Client struct {
	endpoint string
	appID    string
	hc       *http.Client
	logger   *slog.Logger
}

// NewClient 创建客户端。endpoint 传空串时使用官方生产地址。
func NewClient(appID, endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		appID:    appID,
		hc:       &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// SearchSold 按关键词检索已结束且成交的 listing，按结束时间倒序，
// 最多返回 maxResults 条（上限 100）。
func (c *Client) SearchSold(ctx context.Context, keywords, condition string, maxResults int) ([]pricing.SaleRecord, error) {
	if maxResults <= 0 || maxResults > maxEntriesPerPage {
		maxResults = maxEntriesPerPage
	}

	q := url.Values{}
	q.Set("OPERATION-NAME", operationName)
	q.Set("SERVICE-VERSION", serviceVersion)
	q.Set("SECURITY-APPNAME", c.appID)
	q.Set("RESPONSE-DATA-FORMAT", "JSON")
	q.Set("REST-PAYLOAD", "")
	q.Set("keywords", keywords)
	q.Set("paginationInput.entriesPerPage", fmt.Sprintf("%d", maxResults))
	q.Set("sortOrder", "EndTimeSoonest")
	q.Set("itemFilter(0).name", "SoldItemsOnly")
	q.Set("itemFilter(0).value", "true")
	q.Set("itemFilter(1).name", "ListingType")
	q.Set("itemFilter(1).value", "FixedPrice")
	if id, ok := conditionIDs[condition]; ok {
		q.Set("itemFilter(2).name", "Condition")
		q.Set("itemFilter(2).value", id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build ebay request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ebay finding api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ebay finding api status %d: %s", resp.StatusCode, string(body))
	}

	records, err := parseFindingResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Info("ebay search completed",
		slog.String("keywords", keywords),
		slog.String("condition", condition),
		slog.Int("records", len(records)))
	return records, nil
}
