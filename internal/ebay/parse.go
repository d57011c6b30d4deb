package ebay

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"fliplister/internal/pricing"
)

// Finding API 的 JSON 响应把每个标量都包成单元素数组，
// 这里按原始格式建模，取值时统一走 first / amountValue。

type findingResponse struct {
	FindCompletedItemsResponse []completedItemsResponse `json:"findCompletedItemsResponse"`
}

type completedItemsResponse struct {
	Ack          []string       `json:"ack"`
	SearchResult []searchResult `json:"searchResult"`
}

type searchResult struct {
	Count string        `json:"@count"`
	Item  []findingItem `json:"item"`
}

type findingItem struct {
	ItemID        []string        `json:"itemId"`
	Title         []string        `json:"title"`
	GalleryURL    []string        `json:"galleryURL"`
	ViewItemURL   []string        `json:"viewItemURL"`
	Condition     []itemCondition `json:"condition"`
	SellingStatus []sellingStatus `json:"sellingStatus"`
	ShippingInfo  []shippingInfo  `json:"shippingInfo"`
	ListingInfo   []listingInfo   `json:"listingInfo"`
}

type itemCondition struct {
	ConditionDisplayName []string `json:"conditionDisplayName"`
}

type sellingStatus struct {
	CurrentPrice []amount `json:"currentPrice"`
	SellingState []string `json:"sellingState"`
}

type shippingInfo struct {
	ShippingServiceCost []amount `json:"shippingServiceCost"`
}

type listingInfo struct {
	EndTime []string `json:"endTime"`
}

type amount struct {
	CurrencyID string `json:"@currencyId"`
	Value      string `json:"__value__"`
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func amountValue(as []amount) (decimal.Decimal, string) {
	if len(as) == 0 {
		return decimal.Zero, ""
	}
	v, err := decimal.NewFromString(as[0].Value)
	if err != nil {
		return decimal.Zero, as[0].CurrencyID
	}
	return v, as[0].CurrencyID
}

// parseFindingResponse 把原始响应转成成交记录。
// 只保留 sellingState 为 EndedWithSales 的条目，其余都是流拍。
func parseFindingResponse(r io.Reader) ([]pricing.SaleRecord, error) {
	var fr findingResponse
	if err := json.NewDecoder(r).Decode(&fr); err != nil {
		return nil, fmt.Errorf("decode ebay response: %w", err)
	}
	if len(fr.FindCompletedItemsResponse) == 0 {
		return nil, fmt.Errorf("ebay response missing findCompletedItemsResponse")
	}
	top := fr.FindCompletedItemsResponse[0]
	if ack := first(top.Ack); ack != "Success" && ack != "Warning" {
		return nil, fmt.Errorf("ebay response ack %q", ack)
	}
	if len(top.SearchResult) == 0 {
		return nil, nil
	}

	items := top.SearchResult[0].Item
	records := make([]pricing.SaleRecord, 0, len(items))
	for _, it := range items {
		if len(it.SellingStatus) == 0 || first(it.SellingStatus[0].SellingState) != "EndedWithSales" {
			continue
		}

		price, currency := amountValue(it.SellingStatus[0].CurrentPrice)
		var shipping decimal.Decimal
		if len(it.ShippingInfo) > 0 {
			shipping, _ = amountValue(it.ShippingInfo[0].ShippingServiceCost)
		}

		soldAt := time.Now().UTC()
		if len(it.ListingInfo) > 0 {
			if t, err := time.Parse(time.RFC3339, first(it.ListingInfo[0].EndTime)); err == nil {
				soldAt = t
			}
		}

		condition := ""
		if len(it.Condition) > 0 {
			condition = first(it.Condition[0].ConditionDisplayName)
		}

		records = append(records, pricing.SaleRecord{
			Title:        first(it.Title),
			ItemID:       first(it.ItemID),
			Price:        price,
			ShippingCost: shipping,
			TotalPrice:   price.Add(shipping),
			Currency:     currency,
			Condition:    condition,
			SoldAt:       soldAt,
			ImageURL:     first(it.GalleryURL),
			ListingURL:   first(it.ViewItemURL),
		})
	}
	return records, nil
}
