package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Listing 表示一件待出售的二手商品。
//
// 分析产物（价格统计、渠道推荐、文案）以 JSON 文档整体存储，
// 它们只被整读整写，不参与查询条件。
type Listing struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"` // UUID
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ItemName    string `gorm:"type:varchar(255);not null" json:"item_name"`
	Category    string `gorm:"type:varchar(100);index" json:"category"`
	Brand       string `gorm:"type:varchar(100)" json:"brand"`
	Condition   string `gorm:"type:varchar(20);default:good" json:"condition"` // new / like-new / good / fair / poor
	Description string `gorm:"type:text" json:"description"`

	AskingPrice   string `gorm:"type:decimal(12,2);default:0" json:"asking_price"`
	PurchasePrice string `gorm:"type:decimal(12,2);default:0" json:"purchase_price"` // 进货成本，算利润用

	Images          datatypes.JSON `json:"images"`          // 图片 URL 列表
	Analysis        datatypes.JSON `json:"analysis"`        // 成交分析结果文档
	Suggestion      datatypes.JSON `json:"suggestion"`      // 定价建议文档
	Recommendations datatypes.JSON `json:"recommendations"` // 渠道推荐列表
	Copy            datatypes.JSON `json:"copy"`            // 生成的商品文案

	// draft -> analyzing -> ready -> sold -> archived
	Status string `gorm:"type:varchar(20);default:draft;index" json:"status"`
}

// ListingStatuses 状态机的合法取值。
var ListingStatuses = []string{"draft", "analyzing", "ready", "sold", "archived"}

// ValidStatus 报告 s 是否是合法的 listing 状态。
func ValidStatus(s string) bool {
	for _, v := range ListingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// AutoMigrate 建表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Listing{})
}
