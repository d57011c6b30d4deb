package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Suggestion 是针对单个商品的挂牌价建议。
type Suggestion struct {
	Recommended decimal.Decimal `json:"recommended_price"`
	QuickSale   decimal.Decimal `json:"quick_sale_price"`
	RangeMin    decimal.Decimal `json:"range_min"`
	RangeMax    decimal.Decimal `json:"range_max"`
	Basis       string          `json:"basis"` // sold_data / condition_fallback
	Factors     []string        `json:"factors,omitempty"`
}

// 成色系数：无成交数据时的兜底定价（基准价 × 系数）。
var conditionMultipliers = map[string]string{
	"new":      "1.00",
	"like-new": "0.85",
	"good":     "0.70",
	"fair":     "0.50",
	"poor":     "0.30",
}

var (
	fallbackBasePrice = decimal.RequireFromString("50.00")
	quickSaleFactor   = decimal.RequireFromString("0.85")
	rangeLowFactor    = decimal.RequireFromString("0.80")
	rangeHighFactor   = decimal.RequireFromString("1.20")
)

// Suggest 根据成交统计推荐挂牌价。
//
// 有成交数据时取中位数作为推荐价（p25~p75 为建议区间）；
// 没有数据时退回成色系数的保守估价。
func Suggest(analysis Result, condition string) Suggestion {
	if analysis.Success && analysis.Count > 0 {
		rec := analysis.Median
		return Suggestion{
			Recommended: rec,
			QuickSale:   rec.Mul(quickSaleFactor).Round(2),
			RangeMin:    analysis.P25,
			RangeMax:    analysis.P75,
			Basis:       "sold_data",
			Factors: []string{
				fmt.Sprintf("Based on %d completed sales", analysis.Count),
				fmt.Sprintf("%d sold in the last 30 days", analysis.RecentCount),
			},
		}
	}

	mult, ok := conditionMultipliers[strings.ToLower(strings.TrimSpace(condition))]
	if !ok {
		mult = conditionMultipliers["good"]
	}
	rec := fallbackBasePrice.Mul(decimal.RequireFromString(mult)).Round(2)
	return Suggestion{
		Recommended: rec,
		QuickSale:   rec.Mul(quickSaleFactor).Round(2),
		RangeMin:    rec.Mul(rangeLowFactor).Round(2),
		RangeMax:    rec.Mul(rangeHighFactor).Round(2),
		Basis:       "condition_fallback",
		Factors: []string{
			"No sold-listing data available - conservative estimate",
			"Condition: " + condition,
		},
	}
}
