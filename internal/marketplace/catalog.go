package marketplace

import "github.com/shopspring/decimal"

// Profile 描述一个转卖渠道的静态画像：擅长品类、价格区间、费率与受众。
//
// 画像表在进程启动时作为常量加载，运行期只读，不随请求创建或销毁。
type Profile struct {
	ID             string          `json:"id"`
	DisplayName    string          `json:"name"`
	BestCategories []string        `json:"best_for"`
	MinPrice       decimal.Decimal `json:"min_price"`
	MaxPrice       decimal.Decimal `json:"max_price"`
	LocalFocus     bool            `json:"local_focus"`
	Fees           string          `json:"fees"`
	Audience       string          `json:"audience"`
	Speed          string          `json:"speed"`
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Catalog 是固定的 7 个渠道画像。
//
// 切片顺序就是声明顺序，评分相同时用它做稳定排序的 tie-break，不要重排。
var Catalog = []Profile{
	{
		ID:             "facebook",
		DisplayName:    "Facebook Marketplace",
		BestCategories: []string{"Furniture", "Home Goods", "Baby Items", "Vehicles", "Local Services"},
		MinPrice:       dec("5"),
		MaxPrice:       dec("10000"),
		LocalFocus:     true,
		Fees:           "Free for local sales",
		Audience:       "Local community buyers",
		Speed:          "Fast (1-7 days typical)",
	},
	{
		ID:             "craigslist",
		DisplayName:    "Craigslist",
		BestCategories: []string{"Furniture", "Vehicles", "Electronics", "Housing", "Services"},
		MinPrice:       dec("0"),
		MaxPrice:       dec("50000"),
		LocalFocus:     true,
		Fees:           "Free for most categories",
		Audience:       "Local buyers, often looking for deals",
		Speed:          "Fast (1-5 days typical)",
	},
	{
		ID:             "ebay",
		DisplayName:    "eBay",
		BestCategories: []string{"Collectibles", "Electronics", "Fashion", "Antiques", "Rare Items"},
		MinPrice:       dec("1"),
		MaxPrice:       dec("100000"),
		LocalFocus:     false,
		Fees:           "~13% total fees",
		Audience:       "Global buyers, collectors",
		Speed:          "Medium (3-14 days typical)",
	},
	{
		ID:             "mercari",
		DisplayName:    "Mercari",
		BestCategories: []string{"Fashion", "Electronics", "Beauty", "Toys", "Collectibles"},
		MinPrice:       dec("3"),
		MaxPrice:       dec("2000"),
		LocalFocus:     false,
		Fees:           "10% selling fee + shipping",
		Audience:       "Young adults, bargain hunters",
		Speed:          "Medium (2-10 days typical)",
	},
	{
		ID:             "offerup",
		DisplayName:    "OfferUp",
		BestCategories: []string{"Furniture", "Electronics", "Home Goods", "Vehicles"},
		MinPrice:       dec("5"),
		MaxPrice:       dec("10000"),
		LocalFocus:     true,
		Fees:           "Free for local, fees for shipping",
		Audience:       "Local buyers with ratings system",
		Speed:          "Fast (1-7 days typical)",
	},
	{
		ID:             "poshmark",
		DisplayName:    "Poshmark",
		BestCategories: []string{"Fashion", "Shoes", "Accessories", "Designer Items"},
		MinPrice:       dec("5"),
		MaxPrice:       dec("5000"),
		LocalFocus:     false,
		Fees:           "20% for items over $15",
		Audience:       "Fashion-focused buyers",
		Speed:          "Medium (3-14 days typical)",
	},
	{
		ID:             "depop",
		DisplayName:    "Depop",
		BestCategories: []string{"Vintage Fashion", "Streetwear", "Y2K", "Unique Clothing"},
		MinPrice:       dec("5"),
		MaxPrice:       dec("1000"),
		LocalFocus:     false,
		Fees:           "10% selling fee",
		Audience:       "Gen Z fashion enthusiasts",
		Speed:          "Medium (2-14 days typical)",
	},
}
