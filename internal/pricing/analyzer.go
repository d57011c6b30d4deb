package pricing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// recencyWindow 判定“近期成交”的时间窗口（趋势分析用）。
	recencyWindow = 30 * 24 * time.Hour
	// sampleLimit 结果中保留的成交样本上限（用于前端展示）。
	sampleLimit = 20
)

// SaleRecord 表示一条已确认成交的记录。
//
// 只有真实卖出的记录才允许进入分析（仅结束未成交的 listing 由上游过滤），
// TotalPrice 在解析阶段一次性算好（价格 + 运费），之后不再变更。
type SaleRecord struct {
	Title        string          `json:"title"`
	ItemID       string          `json:"item_id"`
	Price        decimal.Decimal `json:"price"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Currency     string          `json:"currency"`
	Condition    string          `json:"condition"`
	SoldAt       time.Time       `json:"sold_at"`
	ImageURL     string          `json:"image_url,omitempty"`
	ListingURL   string          `json:"listing_url,omitempty"`
}

// Result 是一次成交记录分析的完整输出。
//
// Success=false 表示没有可用数据（空输入），此时价格字段保持零值，
// 调用方必须根据 Success 分支处理，绝不能把零价格当成真实统计。
type Result struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message,omitempty"`
	Count       int             `json:"count"`
	RecentCount int             `json:"recent_count"`
	Mean        decimal.Decimal `json:"mean"`
	Median      decimal.Decimal `json:"median"`
	Min         decimal.Decimal `json:"min"`
	Max         decimal.Decimal `json:"max"`
	P25         decimal.Decimal `json:"p25"`
	P75         decimal.Decimal `json:"p75"`
	Insight     string          `json:"insight,omitempty"`
	Samples     []SaleRecord    `json:"sample_records,omitempty"`
}

// Analyzer 把成交记录转换为稳健的价格统计与市场洞察文本。
//
// 它是纯计算组件：不做 IO、不持有可变状态，可以被任意并发调用。
// 时钟通过字段注入，保证 30 天时间窗口在测试中可控。
type Analyzer struct {
	now func() time.Time
}

// NewAnalyzer 创建使用系统时钟的分析器。
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithClock(time.Now)
}

// NewAnalyzerWithClock 创建使用指定时钟的分析器（测试用）。
func NewAnalyzerWithClock(now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{now: now}
}

// Analyze 计算一组成交记录的价格统计。
//
// 空输入返回 Success=false 的结果而不是错误：缺数据是正常业务状态。
// 所有派生的价格统计按两位小数四舍五入。
func (a *Analyzer) Analyze(records []SaleRecord) Result {
	if len(records) == 0 {
		return Result{
			Success: false,
			Message: "no sold listings found",
		}
	}

	totals := make([]decimal.Decimal, len(records))
	sum := decimal.Zero
	for i, rec := range records {
		totals[i] = rec.TotalPrice
		sum = sum.Add(rec.TotalPrice)
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].LessThan(totals[j])
	})

	n := len(totals)
	mean := sum.Div(decimal.NewFromInt(int64(n)))
	// 偶数长度取上中位元素（P[n/2]），不取两个中间值的平均。
	// 改动会悄悄改变推荐价，保持现状（见 DESIGN.md）。
	median := totals[n/2]
	// 基于下标的分位数，不做插值：floor(n*0.25) == n/4。
	p25 := totals[n/4]
	p75 := totals[n*3/4]

	cutoff := a.now().Add(-recencyWindow)
	recentCount := 0
	recentSum := decimal.Zero
	for _, rec := range records {
		if rec.SoldAt.After(cutoff) {
			recentCount++
			recentSum = recentSum.Add(rec.TotalPrice)
		}
	}
	recentMean := mean
	if recentCount > 0 {
		recentMean = recentSum.Div(decimal.NewFromInt(int64(recentCount)))
	}

	samples := records
	if len(samples) > sampleLimit {
		samples = samples[:sampleLimit]
	}

	return Result{
		Success:     true,
		Count:       n,
		RecentCount: recentCount,
		Mean:        mean.Round(2),
		Median:      median.Round(2),
		Min:         totals[0].Round(2),
		Max:         totals[n-1].Round(2),
		P25:         p25.Round(2),
		P75:         p75.Round(2),
		Insight:     buildInsight(n, mean, recentMean, totals[0], totals[n-1]),
		Samples:     samples,
	}
}
