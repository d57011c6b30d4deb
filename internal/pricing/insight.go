package pricing

import "github.com/shopspring/decimal"

// 市场洞察由三个互相独立的判断拼成一句话：
// 活跃度（成交量）、趋势（近期均价 vs 整体均价）、离散度（价差 / 均价）。
// 阈值是刻意手工挑选的启发式常量，不是优化目标。

var (
	trendUpFactor   = decimal.RequireFromString("1.10")
	trendDownFactor = decimal.RequireFromString("0.90")
	wideSpreadRatio = decimal.RequireFromString("0.5")
)

func buildInsight(count int, mean, recentMean, min, max decimal.Decimal) string {
	return activityPhrase(count) + ". " + trendPhrase(mean, recentMean) + ". " + spreadPhrase(mean, min, max) + "."
}

func activityPhrase(count int) string {
	switch {
	case count > 30:
		return "Very active market with strong demand"
	case count > 15:
		return "Moderate market activity"
	default:
		return "Limited sales history - niche item"
	}
}

func trendPhrase(mean, recentMean decimal.Decimal) string {
	switch {
	case recentMean.GreaterThan(mean.Mul(trendUpFactor)):
		return "Prices trending UP recently"
	case recentMean.LessThan(mean.Mul(trendDownFactor)):
		return "Prices trending DOWN recently"
	default:
		return "Prices stable"
	}
}

func spreadPhrase(mean, min, max decimal.Decimal) string {
	// mean=0 时离散度按 0 处理，避免除零。
	ratio := decimal.Zero
	if mean.IsPositive() {
		ratio = max.Sub(min).Div(mean)
	}
	if ratio.GreaterThan(wideSpreadRatio) {
		return "Wide price variation - condition/features matter a lot"
	}
	return "Consistent pricing across listings"
}
