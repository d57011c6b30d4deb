package marketplace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"fliplister/internal/pricing"
)

// Recommendation 是对单个渠道的评分结果。
type Recommendation struct {
	MarketplaceID string  `json:"marketplace"`
	DisplayName   string  `json:"name"`
	Score         float64 `json:"score"`
	Priority      string  `json:"priority"`
	Reasoning     string  `json:"reasoning"`
	Fees          string  `json:"fees"`
	Speed         string  `json:"estimated_speed"`
	Audience      string  `json:"audience"`
}

// 评分常量。加权是刻意手工调的启发式，保持原样，不要“算法化改进”。
const (
	baseScore          = 50.0
	categoryExactBonus = 30.0
	categoryTokenBonus = 15.0
	priceFitBonus      = 15.0
	priceBelowPenalty  = 20.0
	priceAbovePenalty  = 10.0
	facebookBonus      = 10.0

	priorityHighScore   = 80.0
	priorityMediumScore = 60.0

	maxRecommendations = 4
)

// Rank 对画像表中的每个渠道打分，返回稳定排序、截断到前 4 的推荐列表。
//
// priorAnalysis 是可选的成交分析结果，只用于 eBay 的活跃度加成；
// 传 nil 与 Success=false 等价。本函数不做 IO、不依赖时钟，
// 相同输入永远产生逐字节相同的输出。
func Rank(category string, price decimal.Decimal, itemLabel string, priorAnalysis *pricing.Result) []Recommendation {
	recs := make([]Recommendation, 0, len(Catalog))

	for _, p := range Catalog {
		score := baseScore
		score += categoryScore(p, category)
		score += priceScore(p, price)
		if p.ID == "facebook" {
			// Facebook Marketplace 是默认主渠道，无论匹配度如何都加分。
			score += facebookBonus
		}

		boostClause := ""
		if p.ID == "ebay" && priorAnalysis != nil && priorAnalysis.Success {
			var boost float64
			boost, boostClause = ebayBoost(priorAnalysis.Count)
			score += boost
		}

		// 加成之后再统一夹到 [0,100]。
		score = clamp(score, 0, 100)
		if score <= 0 {
			// 不是“低优先级”，而是直接从结果中剔除。
			continue
		}

		recs = append(recs, Recommendation{
			MarketplaceID: p.ID,
			DisplayName:   p.DisplayName,
			Score:         score,
			Priority:      priorityLevel(score),
			Reasoning:     buildReasoning(p, category, score) + boostClause,
			Fees:          p.Fees,
			Speed:         p.Speed,
			Audience:      p.Audience,
		})
	}

	// 分数相同保持画像声明顺序，必须用稳定排序。
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// categoryScore 计算品类匹配得分：先精确子串（双向、不区分大小写），
// 没命中再退到整词共享，两者不叠加。
func categoryScore(p Profile, category string) float64 {
	catLower := strings.ToLower(strings.TrimSpace(category))
	if catLower == "" {
		return 0
	}

	for _, best := range p.BestCategories {
		bestLower := strings.ToLower(best)
		if strings.Contains(catLower, bestLower) || strings.Contains(bestLower, catLower) {
			return categoryExactBonus
		}
	}

	catTokens := strings.Fields(catLower)
	for _, best := range p.BestCategories {
		bestTokens := strings.Fields(strings.ToLower(best))
		for _, ct := range catTokens {
			for _, bt := range bestTokens {
				if ct == bt {
					return categoryTokenBonus
				}
			}
		}
	}
	return 0
}

func priceScore(p Profile, price decimal.Decimal) float64 {
	switch {
	case price.LessThan(p.MinPrice):
		return -priceBelowPenalty
	case price.GreaterThan(p.MaxPrice):
		return -priceAbovePenalty
	default:
		return priceFitBonus
	}
}

// ebayBoost 根据成交量给 eBay 加分，并返回要附加到理由里的说明。
func ebayBoost(soldCount int) (float64, string) {
	switch {
	case soldCount > 20:
		return 15, fmt.Sprintf(" %d recent sales found on eBay - proven market!", soldCount)
	case soldCount > 10:
		return 10, fmt.Sprintf(" %d sales found on eBay - active market", soldCount)
	case soldCount > 5:
		return 5, fmt.Sprintf(" %d sales found on eBay", soldCount)
	default:
		return 0, ""
	}
}

func priorityLevel(score float64) string {
	switch {
	case score >= priorityHighScore:
		return "high"
	case score >= priorityMediumScore:
		return "medium"
	default:
		return "low"
	}
}

// buildReasoning 生成人类可读的推荐理由。
//
// 品类措辞刻意用和 priorityLevel 相同的阈值独立重算一遍，
// 保持两个判断互不耦合。
func buildReasoning(p Profile, category string, score float64) string {
	reasons := make([]string, 0, 3)

	switch {
	case score >= priorityHighScore:
		reasons = append(reasons, "Excellent match for "+category)
	case score >= priorityMediumScore:
		reasons = append(reasons, "Good fit for "+category)
	default:
		reasons = append(reasons, "Possible option for "+category)
	}

	if p.LocalFocus {
		reasons = append(reasons, "Great for local pickup")
	} else {
		reasons = append(reasons, "Nationwide/global reach")
	}

	reasons = append(reasons, "Typical speed: "+p.Speed)

	return strings.Join(reasons, ". ")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
