package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func recordsFromTotals(soldAt time.Time, totals ...string) []SaleRecord {
	out := make([]SaleRecord, 0, len(totals))
	for _, v := range totals {
		out = append(out, SaleRecord{
			TotalPrice: decimal.RequireFromString(v),
			SoldAt:     soldAt,
		})
	}
	return out
}

func TestAnalyze_EmptyInput(t *testing.T) {
	res := NewAnalyzer().Analyze(nil)

	if res.Success {
		t.Fatal("empty input must not be a success")
	}
	if res.Message != "no sold listings found" {
		t.Errorf("unexpected message %q", res.Message)
	}
	if res.Count != 0 || !res.Median.IsZero() {
		t.Errorf("empty result should keep zero values, got %+v", res)
	}
}

func TestAnalyze_EvenCountTakesUpperMiddle(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := NewAnalyzerWithClock(func() time.Time { return now })

	res := a.Analyze(recordsFromTotals(now.Add(-time.Hour), "40", "10", "30", "20"))

	if !res.Success {
		t.Fatal("expected success")
	}
	if !res.Median.Equal(dec(t, "30")) {
		t.Errorf("median = %s, want 30", res.Median)
	}
	if !res.P25.Equal(dec(t, "20")) {
		t.Errorf("p25 = %s, want 20", res.P25)
	}
	if !res.P75.Equal(dec(t, "40")) {
		t.Errorf("p75 = %s, want 40", res.P75)
	}
	if !res.Mean.Equal(dec(t, "25")) {
		t.Errorf("mean = %s, want 25", res.Mean)
	}
}

func TestAnalyze_IndexBasedPercentiles(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := NewAnalyzerWithClock(func() time.Time { return now })

	res := a.Analyze(recordsFromTotals(now.Add(-time.Hour),
		"100", "10", "90", "20", "80", "30", "70", "40", "60", "50"))

	if !res.Min.Equal(dec(t, "10")) || !res.Max.Equal(dec(t, "100")) {
		t.Errorf("min/max = %s/%s, want 10/100", res.Min, res.Max)
	}
	if !res.P25.Equal(dec(t, "30")) {
		t.Errorf("p25 = %s, want 30", res.P25)
	}
	if !res.Median.Equal(dec(t, "60")) {
		t.Errorf("median = %s, want 60", res.Median)
	}
	if !res.P75.Equal(dec(t, "80")) {
		t.Errorf("p75 = %s, want 80", res.P75)
	}

	ordered := []decimal.Decimal{res.Min, res.P25, res.Median, res.P75, res.Max}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].LessThan(ordered[i-1]) {
			t.Fatalf("statistics out of order: %v", ordered)
		}
	}
}

func TestAnalyze_RoundsToTwoDecimals(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := NewAnalyzerWithClock(func() time.Time { return now })

	res := a.Analyze(recordsFromTotals(now.Add(-time.Hour), "10", "10", "11"))

	if !res.Mean.Equal(dec(t, "10.33")) {
		t.Errorf("mean = %s, want 10.33", res.Mean)
	}
}

func TestAnalyze_RecentCountUsesInjectedClock(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := NewAnalyzerWithClock(func() time.Time { return now })

	records := []SaleRecord{
		{TotalPrice: dec(t, "100"), SoldAt: now.Add(-10 * 24 * time.Hour)},
		{TotalPrice: dec(t, "110"), SoldAt: now.Add(-29 * 24 * time.Hour)},
		{TotalPrice: dec(t, "120"), SoldAt: now.Add(-40 * 24 * time.Hour)},
	}

	res := a.Analyze(records)
	if res.Count != 3 {
		t.Fatalf("count = %d, want 3", res.Count)
	}
	if res.RecentCount != 2 {
		t.Errorf("recent count = %d, want 2", res.RecentCount)
	}
}

func TestAnalyze_SamplesCappedInInputOrder(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	a := NewAnalyzerWithClock(func() time.Time { return now })

	records := make([]SaleRecord, 25)
	for i := range records {
		records[i] = SaleRecord{
			ItemID:     string(rune('a' + i)),
			TotalPrice: decimal.NewFromInt(int64(100 - i)),
			SoldAt:     now.Add(-time.Hour),
		}
	}

	res := a.Analyze(records)
	if len(res.Samples) != 20 {
		t.Fatalf("samples = %d, want 20", len(res.Samples))
	}
	// 样本保持输入顺序，不随统计排序
	for i, s := range res.Samples {
		if s.ItemID != records[i].ItemID {
			t.Fatalf("sample %d out of input order: %q", i, s.ItemID)
		}
	}
}
