package redisqueue

import (
	"time"

	"github.com/google/uuid"

	"fliplister/internal/pricing"
)

// FetchRequest 是下发给 fetcher 的拉取任务。Keywords 与 Condition
// 决定去重身份，TaskID 只用于队列内的确认与救援。
type FetchRequest struct {
	TaskID     string `json:"task_id"`
	ListingID  string `json:"listing_id"`
	Keywords   string `json:"keywords"`
	Condition  string `json:"condition"`
	MaxResults int    `json:"max_results"`
	CreatedAt  int64  `json:"created_at"`
}

// NewFetchRequest 生成带新 TaskID 和时间戳的任务。
func NewFetchRequest(listingID, keywords, condition string, maxResults int) *FetchRequest {
	return &FetchRequest{
		TaskID:     uuid.NewString(),
		ListingID:  listingID,
		Keywords:   keywords,
		Condition:  condition,
		MaxResults: maxResults,
		CreatedAt:  time.Now().Unix(),
	}
}

// FetchResult 是 fetcher 回传的拉取结果。Success=false 时
// Records 为空，ErrorMessage 说明失败原因。
type FetchResult struct {
	TaskID       string               `json:"task_id"`
	ListingID    string               `json:"listing_id"`
	Keywords     string               `json:"keywords"`
	Condition    string               `json:"condition"`
	Success      bool                 `json:"success"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Records      []pricing.SaleRecord `json:"records,omitempty"`
	FetchedAt    int64                `json:"fetched_at"`
}
