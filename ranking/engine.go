// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ranking

import (
	"log/slog"
	"sort"
	"time"

	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/query"
)

const (
	recentBoostFactor = 1.2
	recentBoostWindow = 30 * 24 * time.Hour

	// confidenceBonus rewards agreement between several strong factors.
	confidenceBonus          = 0.1
	confidenceBonusThreshold = 0.7
	confidenceBonusMinCount  = 3
)

// Engine scores and orders documents against a parsed query using a
// weighted combination of relevance factors.
type Engine struct {
	weights Weights
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithWeights overrides the default factor weights.
func WithWeights(weights Weights) Option {
	return func(e *Engine) error {
		if err := weights.Validate(); err != nil {
			return err
		}
		e.weights = weights
		return nil
	}
}

// WithClock pins the engine's notion of "now" for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		if now != nil {
			e.now = now
		}
		return nil
	}
}

// WithEngineLogger sets a custom logger.
func WithEngineLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a ranking engine with default weights.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		weights: DefaultWeights(),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Request carries everything a ranking pass needs beyond the documents
// themselves.
type Request struct {
	Query       *query.ParsedQuery
	QueryVector []float32
	// Fuzzy enables the phonetic vendor factor.
	Fuzzy bool
	// SkipRecencyBoost suppresses the thirty-day boost for callers that
	// want raw factor scores.
	SkipRecencyBoost bool
}

// Rank scores every document, orders the results per the query's sort
// directive (relevance by default) and truncates to the query limit.
func (e *Engine) Rank(docs []*core.Document, req Request) []core.ScoredDocument {
	scored := make([]core.ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		scored = append(scored, e.Score(doc, req))
	}
	sortScored(scored, req.Query)

	if limit := req.Query.Limit; limit > 0 && limit < len(scored) {
		scored = scored[:limit]
	}
	return scored
}

// Score computes a single document's weighted score, per-factor
// breakdown and confidence. Only factors the query can actually judge
// participate; the score normalizes over their weights so a sparse
// query does not dilute relevance.
func (e *Engine) Score(doc *core.Document, req Request) core.ScoredDocument {
	q := req.Query
	factors := make(core.ScoringFactors)

	if len(req.QueryVector) > 0 && len(doc.SearchVector) > 0 {
		factors[core.FactorSemantic] = semanticSimilarity(req.QueryVector, doc.SearchVector)
	}

	var matched []string
	if len(q.Keywords) > 0 {
		factors[core.FactorKeyword], matched = keywordMatch(q.Keywords, doc.SearchText())
	}

	factors[core.FactorDate] = dateRelevance(doc.Date, q.Temporal, e.now())

	if len(q.DocumentTypes) > 0 {
		factors[core.FactorDocumentType] = documentTypeMatch(doc.DocumentType, q.DocumentTypes)
	}
	if len(q.Vendors) > 0 {
		factors[core.FactorVendor] = vendorMatch(q.Vendors, doc.Vendor)
		if req.Fuzzy {
			factors[core.FactorPhonetic] = phoneticMatch(q.Vendors, doc.Vendor)
		}
	}
	if q.Amount != nil {
		factors[core.FactorAmount] = amountMatch(doc, q.Amount)
	}

	score := e.combine(factors)
	if !req.SkipRecencyBoost {
		score = e.boostRecent(score, doc, q)
	}

	return core.ScoredDocument{
		Document:        doc,
		Score:           score,
		Factors:         factors,
		MatchedKeywords: matched,
		Confidence:      scoreConfidence(factors),
	}
}

// combine normalizes the weighted factor sum over the weights of the
// factors actually present.
func (e *Engine) combine(factors core.ScoringFactors) float64 {
	weights := e.weights.byFactor()

	var weightedSum, weightTotal float64
	for name, value := range factors {
		weight := weights[name]
		weightedSum += value * weight
		weightTotal += weight
	}
	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

// boostRecent nudges documents from the last thirty days upward, but
// only when the query expressed no time constraint of its own.
func (e *Engine) boostRecent(score float64, doc *core.Document, q *query.ParsedQuery) float64 {
	if q.Temporal != nil || doc.Date.IsZero() {
		return score
	}
	age := e.now().Sub(doc.Date)
	if age < 0 || age > recentBoostWindow {
		return score
	}
	return capped(score * recentBoostFactor)
}

// scoreConfidence is the mean of the present factor values, with a
// bonus when at least three factors independently score high.
func scoreConfidence(factors core.ScoringFactors) float64 {
	if len(factors) == 0 {
		return 0
	}
	var sum float64
	strong := 0
	for _, value := range factors {
		sum += value
		if value > confidenceBonusThreshold {
			strong++
		}
	}
	confidence := sum / float64(len(factors))
	if strong >= confidenceBonusMinCount {
		confidence += confidenceBonus
	}
	return capped(confidence)
}

// sortScored orders results by the query's sort directive. Relevance is
// the default; date and amount sorts break ties by score.
func sortScored(scored []core.ScoredDocument, q *query.ParsedQuery) {
	ascending := q.SortOrder == query.SortAsc

	less := func(i, j int) bool {
		var a, b float64
		switch q.SortBy {
		case query.SortByDate:
			a = float64(scored[i].Document.Date.UnixMicro())
			b = float64(scored[j].Document.Date.UnixMicro())
		case query.SortByAmount:
			a = scored[i].Document.TotalAmount
			b = scored[j].Document.TotalAmount
		default:
			a = scored[i].Score
			b = scored[j].Score
		}
		if a == b {
			return scored[i].Score > scored[j].Score
		}
		if ascending {
			return a < b
		}
		return a > b
	}
	sort.SliceStable(scored, less)
}
