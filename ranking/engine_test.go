package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/query"
)

var rankNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return rankNow })}, opts...)
	engine, err := NewEngine(opts...)
	require.NoError(t, err)
	return engine
}

func TestNewEngineRejectsBadWeights(t *testing.T) {
	_, err := NewEngine(WithWeights(Weights{Semantic: -1}))
	require.ErrorIs(t, err, ErrInvalidWeights)

	_, err = NewEngine(WithWeights(Weights{}))
	require.ErrorIs(t, err, ErrInvalidWeights)
}

func TestScoreStaysInRange(t *testing.T) {
	engine := newTestEngine(t)

	doc := &core.Document{
		OcrText:      "Costco Wholesale receipt groceries total 142.50",
		Vendor:       "Costco",
		DocumentType: "receipt",
		Date:         rankNow.AddDate(0, -2, 0),
		TotalAmount:  142.50,
		HasAmount:    true,
	}
	q := &query.ParsedQuery{
		Vendors:       []string{"Costco"},
		DocumentTypes: []string{"receipt"},
		Keywords:      []string{"groceries"},
		Amount:        &query.AmountFilter{Value: 100, Operator: query.AmountGreater},
		SortBy:        query.SortByRelevance,
		SortOrder:     query.SortDesc,
	}

	scored := engine.Score(doc, Request{Query: q, Fuzzy: true})
	assert.GreaterOrEqual(t, scored.Score, 0.0)
	assert.LessOrEqual(t, scored.Score, 1.0)
	assert.GreaterOrEqual(t, scored.Confidence, 0.0)
	assert.LessOrEqual(t, scored.Confidence, 1.0)
	assert.Equal(t, []string{"groceries"}, scored.MatchedKeywords)

	// strong agreement across several factors earns the bonus
	assert.InDelta(t, 1.0, scored.Factors[core.FactorVendor], 1e-9)
	assert.InDelta(t, 1.0, scored.Factors[core.FactorDocumentType], 1e-9)
	assert.InDelta(t, 1.0, scored.Factors[core.FactorKeyword], 1e-9)
}

func TestScoreNormalizesOverPresentFactors(t *testing.T) {
	engine := newTestEngine(t)

	doc := &core.Document{
		OcrText: "parking garage receipt",
		Date:    rankNow,
	}
	q := &query.ParsedQuery{
		Keywords:  []string{"parking"},
		SortBy:    query.SortByRelevance,
		SortOrder: query.SortDesc,
	}

	scored := engine.Score(doc, Request{Query: q})
	// keyword 1.0 and date ~1.0 are the only factors; normalization
	// keeps the score near 1.0 instead of diluting it
	assert.Greater(t, scored.Score, 0.95)
	_, hasVendor := scored.Factors[core.FactorVendor]
	assert.False(t, hasVendor)
}

func TestBoostRecent(t *testing.T) {
	engine := newTestEngine(t)

	recent := &core.Document{OcrText: "warranty card blender", Date: rankNow.AddDate(0, 0, -5)}
	old := &core.Document{OcrText: "warranty card blender", Date: rankNow.AddDate(-2, 0, 0)}

	q := &query.ParsedQuery{
		Keywords:  []string{"warranty"},
		SortBy:    query.SortByRelevance,
		SortOrder: query.SortDesc,
	}

	recentScore := engine.Score(recent, Request{Query: q}).Score
	oldScore := engine.Score(old, Request{Query: q}).Score
	assert.Greater(t, recentScore, oldScore)
	assert.LessOrEqual(t, recentScore, 1.0)

	t.Run("no boost under a temporal filter", func(t *testing.T) {
		start := rankNow.AddDate(0, -1, 0)
		end := rankNow
		filtered := &query.ParsedQuery{
			Keywords:  []string{"warranty"},
			Temporal:  &query.TemporalExpression{Kind: query.TemporalRange, Start: &start, End: &end},
			SortBy:    query.SortByRelevance,
			SortOrder: query.SortDesc,
		}
		unboosted := engine.Score(recent, Request{Query: filtered})
		// inside the window the date factor is positional, not boosted
		assert.LessOrEqual(t, unboosted.Score, 1.0)
	})
}

func TestRankSortsAndTruncates(t *testing.T) {
	engine := newTestEngine(t)

	docs := []*core.Document{
		{Id: 1, OcrText: "receipt one", Date: rankNow.AddDate(0, 0, -3), TotalAmount: 10, HasAmount: true},
		{Id: 2, OcrText: "receipt two", Date: rankNow.AddDate(0, 0, -1), TotalAmount: 30, HasAmount: true},
		{Id: 3, OcrText: "receipt three", Date: rankNow.AddDate(0, 0, -2), TotalAmount: 20, HasAmount: true},
	}

	t.Run("date descending", func(t *testing.T) {
		q := &query.ParsedQuery{
			Keywords:  []string{"receipt"},
			SortBy:    query.SortByDate,
			SortOrder: query.SortDesc,
		}
		ranked := engine.Rank(docs, Request{Query: q})
		require.Len(t, ranked, 3)
		assert.Equal(t, core.ID(2), ranked[0].Document.Id)
		assert.Equal(t, core.ID(1), ranked[2].Document.Id)
	})

	t.Run("amount ascending", func(t *testing.T) {
		q := &query.ParsedQuery{
			SortBy:    query.SortByAmount,
			SortOrder: query.SortAsc,
		}
		ranked := engine.Rank(docs, Request{Query: q})
		assert.Equal(t, core.ID(1), ranked[0].Document.Id)
		assert.Equal(t, core.ID(2), ranked[2].Document.Id)
	})

	t.Run("limit truncates", func(t *testing.T) {
		q := &query.ParsedQuery{
			SortBy:    query.SortByDate,
			SortOrder: query.SortDesc,
			Limit:     2,
		}
		ranked := engine.Rank(docs, Request{Query: q})
		require.Len(t, ranked, 2)
		assert.Equal(t, core.ID(2), ranked[0].Document.Id)
	})
}
