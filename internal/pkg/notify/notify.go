package notify

import (
	"context"

	"github.com/shopspring/decimal"
)

// AnalysisReport 是分析完成后发给卖家的摘要。
type AnalysisReport struct {
	ListingID   string
	ItemName    string
	Condition   string
	Recommended decimal.Decimal
	RangeMin    decimal.Decimal
	RangeMax    decimal.Decimal
	SoldCount   int
	Insight     string
	TopChannel  string
}

// Notifier 定义通知接口。
type Notifier interface {
	// Send 发送分析完成通知。
	Send(ctx context.Context, report *AnalysisReport, toEmail string) error
}
