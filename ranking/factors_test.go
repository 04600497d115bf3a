package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/query"
)

func TestKeywordMatch(t *testing.T) {
	docText := "Parking garage receipt from downtown lot 42"

	t.Run("whole word hits count full", func(t *testing.T) {
		score, matched := keywordMatch([]string{"parking", "receipt"}, docText)
		assert.InDelta(t, 1.0, score, 1e-9)
		assert.ElementsMatch(t, []string{"parking", "receipt"}, matched)
	})

	t.Run("substring hits count half", func(t *testing.T) {
		score, matched := keywordMatch([]string{"park"}, docText)
		assert.InDelta(t, 0.5, score, 1e-9)
		assert.Equal(t, []string{"park"}, matched)
	})

	t.Run("misses count nothing", func(t *testing.T) {
		score, matched := keywordMatch([]string{"groceries"}, docText)
		assert.Zero(t, score)
		assert.Empty(t, matched)
	})
}

func TestDateRelevance(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	t.Run("recency decay without a window", func(t *testing.T) {
		assert.InDelta(t, 1.0, dateRelevance(now, nil, now), 1e-9)

		yearOld := now.AddDate(-1, 0, 0)
		assert.InDelta(t, math.Exp(-365.0/365.0), dateRelevance(yearOld, nil, now), 0.01)
	})

	t.Run("undated document is neutral without a window", func(t *testing.T) {
		assert.InDelta(t, 0.3, dateRelevance(time.Time{}, nil, now), 1e-9)
	})

	t.Run("window excludes outsiders", func(t *testing.T) {
		start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC)
		window := &query.TemporalExpression{Kind: query.TemporalRange, Start: &start, End: &end}

		assert.Zero(t, dateRelevance(now, window, now))
		assert.Zero(t, dateRelevance(time.Time{}, window, now))

		mid := time.Date(2024, time.May, 16, 0, 0, 0, 0, time.UTC)
		assert.InDelta(t, 0.75, dateRelevance(mid, window, now), 0.01)
		assert.InDelta(t, 1.0, dateRelevance(end, window, now), 1e-9)
	})
}

func TestVendorMatch(t *testing.T) {
	tests := []struct {
		name      string
		vendors   []string
		docVendor string
		want      float64
	}{
		{"exact ignoring case", []string{"costco"}, "Costco", 1.0},
		{"substring", []string{"Costco"}, "Costco Wholesale", 0.7},
		{"edit distance above threshold", []string{"Costco"}, "Costko", (1.0 - 1.0/6.0) * 0.8},
		{"unrelated", []string{"Costco"}, "Walmart", 0},
		{"no document vendor", []string{"Costco"}, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, vendorMatch(tt.vendors, tt.docVendor), 1e-9)
		})
	}
}

func TestMatchesVendor(t *testing.T) {
	tests := []struct {
		name      string
		vendors   []string
		docVendor string
		fuzzy     bool
		want      bool
	}{
		{"no constraint matches everything", nil, "Walmart", false, true},
		{"exact ignoring case", []string{"costco"}, "Costco", false, true},
		{"containment", []string{"Costco"}, "Costco Wholesale", false, true},
		{"misspelling needs fuzzy", []string{"Costko"}, "Costco", false, false},
		{"misspelling with fuzzy", []string{"Costko"}, "Costco", true, true},
		{"sound-alike with fuzzy", []string{"Wallmart"}, "Walmart", true, true},
		{"unrelated vendor", []string{"Costco"}, "Walmart", true, false},
		{"empty document vendor", []string{"Costco"}, "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesVendor(tt.vendors, tt.docVendor, tt.fuzzy))
		})
	}
}

func TestDocumentTypeMatch(t *testing.T) {
	tests := []struct {
		name      string
		docType   string
		requested []string
		want      float64
	}{
		{"exact ignoring case", "Receipt", []string{"receipt"}, 1.0},
		{"invoice relates to receipt", "invoice", []string{"receipt"}, 0.5},
		{"receipt relates to invoice", "receipt", []string{"invoice"}, 0.5},
		{"insurance relates to medical", "insurance", []string{"medical"}, 0.5},
		{"unrelated type", "contract", []string{"receipt"}, 0},
		{"exact beats related", "invoice", []string{"receipt", "invoice"}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, documentTypeMatch(tt.docType, tt.requested), 1e-9)
		})
	}
}

func TestPhoneticMatch(t *testing.T) {
	assert.InDelta(t, 0.8, phoneticMatch([]string{"Wallmart"}, "Walmart"), 1e-9)
	assert.Zero(t, phoneticMatch([]string{"Costco"}, ""))
}

func TestAmountMatch(t *testing.T) {
	doc := func(amount float64) *core.Document {
		return &core.Document{TotalAmount: amount, HasAmount: true}
	}

	t.Run("equals within tolerance", func(t *testing.T) {
		filter := &query.AmountFilter{Value: 100, Operator: query.AmountEquals, Tolerance: 0.01}
		assert.InDelta(t, 1.0, amountMatch(doc(99.995), filter), 1e-9)
		assert.InDelta(t, 0.5, amountMatch(doc(50), filter), 1e-9)
		assert.Zero(t, amountMatch(doc(250), filter))
	})

	t.Run("greater rewards margin logarithmically", func(t *testing.T) {
		filter := &query.AmountFilter{Value: 500, Operator: query.AmountGreater}
		assert.Zero(t, amountMatch(doc(400), filter))
		assert.InDelta(t, 0.8, amountMatch(doc(500), filter), 1e-9)
		assert.InDelta(t, 1.0, amountMatch(doc(5000), filter), 1e-9)
	})

	t.Run("less mirrors greater", func(t *testing.T) {
		filter := &query.AmountFilter{Value: 50, Operator: query.AmountLess}
		assert.Zero(t, amountMatch(doc(60), filter))
		assert.InDelta(t, 0.8, amountMatch(doc(50), filter), 1e-9)
		assert.InDelta(t, 1.0, amountMatch(doc(5), filter), 1e-9)
	})

	t.Run("between scales by position", func(t *testing.T) {
		filter := &query.AmountFilter{Value: 100, MaxValue: 200, Operator: query.AmountBetween}
		assert.Zero(t, amountMatch(doc(99), filter))
		assert.InDelta(t, 0.75, amountMatch(doc(150), filter), 1e-9)
		assert.InDelta(t, 1.0, amountMatch(doc(200), filter), 1e-9)
	})

	t.Run("document without amount never matches", func(t *testing.T) {
		filter := &query.AmountFilter{Value: 100, Operator: query.AmountEquals}
		assert.Zero(t, amountMatch(&core.Document{}, filter))
	})
}
