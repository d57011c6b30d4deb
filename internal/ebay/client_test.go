package ebay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const sampleResponse = `{
  "findCompletedItemsResponse": [{
    "ack": ["Success"],
    "searchResult": [{
      "@count": "2",
      "item": [
        {
          "itemId": ["1001"],
          "title": ["DeWalt Drill 20V"],
          "galleryURL": ["https://img.example.com/1001.jpg"],
          "viewItemURL": ["https://ebay.example.com/itm/1001"],
          "condition": [{"conditionDisplayName": ["Used"]}],
          "sellingStatus": [{
            "currentPrice": [{"@currencyId": "USD", "__value__": "55.00"}],
            "sellingState": ["EndedWithSales"]
          }],
          "shippingInfo": [{
            "shippingServiceCost": [{"@currencyId": "USD", "__value__": "8.50"}]
          }],
          "listingInfo": [{"endTime": ["2026-08-20T14:30:00.000Z"]}]
        },
        {
          "itemId": ["1002"],
          "title": ["DeWalt Drill no sale"],
          "sellingStatus": [{
            "currentPrice": [{"@currencyId": "USD", "__value__": "40.00"}],
            "sellingState": ["EndedWithoutSales"]
          }]
        }
      ]
    }]
  }]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSearchSold_ParsesCompletedItems(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	c := NewClient("test-app-id", srv.URL, 5*time.Second, testLogger())
	records, err := c.SearchSold(context.Background(), "dewalt drill", "good", 50)
	if err != nil {
		t.Fatalf("SearchSold: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 sold record, got %d", len(records))
	}

	rec := records[0]
	if rec.ItemID != "1001" || rec.Title != "DeWalt Drill 20V" {
		t.Errorf("unexpected record identity: %+v", rec)
	}
	if !rec.TotalPrice.Equal(decimal.RequireFromString("63.50")) {
		t.Errorf("total should be price+shipping, got %s", rec.TotalPrice)
	}
	if rec.Currency != "USD" || rec.Condition != "Used" {
		t.Errorf("unexpected currency/condition: %q %q", rec.Currency, rec.Condition)
	}
	want := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	if !rec.SoldAt.Equal(want) {
		t.Errorf("unexpected soldAt %s", rec.SoldAt)
	}

	for _, frag := range []string{
		"OPERATION-NAME=findCompletedItems",
		"SECURITY-APPNAME=test-app-id",
		"itemFilter%280%29.name=SoldItemsOnly",
		"itemFilter%282%29.value=3000",
		"paginationInput.entriesPerPage=50",
	} {
		if !strings.Contains(gotQuery, frag) {
			t.Errorf("query missing %q: %s", frag, gotQuery)
		}
	}
}

func TestSearchSold_UnknownConditionOmitsFilter(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	c := NewClient("id", srv.URL, 5*time.Second, testLogger())
	if _, err := c.SearchSold(context.Background(), "lamp", "mystery", 10); err != nil {
		t.Fatalf("SearchSold: %v", err)
	}
	if strings.Contains(gotQuery, "itemFilter%282%29") {
		t.Errorf("unknown condition must not add a Condition filter: %s", gotQuery)
	}
}

func TestSearchSold_FailureAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"findCompletedItemsResponse":[{"ack":["Failure"]}]}`)
	}))
	defer srv.Close()

	c := NewClient("id", srv.URL, 5*time.Second, testLogger())
	if _, err := c.SearchSold(context.Background(), "lamp", "good", 10); err == nil {
		t.Fatal("expected error on Failure ack")
	}
}

func TestSearchSold_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("id", srv.URL, 5*time.Second, testLogger())
	if _, err := c.SearchSold(context.Background(), "lamp", "good", 10); err == nil {
		t.Fatal("expected error on HTTP 429")
	}
}

func TestParseFindingResponse_EmptySearchResult(t *testing.T) {
	records, err := parseFindingResponse(strings.NewReader(
		`{"findCompletedItemsResponse":[{"ack":["Success"],"searchResult":[]}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestParseFindingResponse_MissingEndTimeFallsBackToNow(t *testing.T) {
	body := `{"findCompletedItemsResponse":[{"ack":["Success"],"searchResult":[{"item":[{
		"itemId":["9"],
		"sellingStatus":[{"currentPrice":[{"@currencyId":"USD","__value__":"12.00"}],"sellingState":["EndedWithSales"]}]
	}]}]}]}`
	before := time.Now().UTC()
	records, err := parseFindingResponse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].SoldAt.Before(before.Add(-time.Second)) {
		t.Errorf("soldAt should default to now, got %s", records[0].SoldAt)
	}
}
