package query

import "time"

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntityVendor       EntityType = "vendor"
	EntityAmount       EntityType = "amount"
	EntityDocumentType EntityType = "documentType"
	EntityKeyword      EntityType = "keyword"
	EntityCount        EntityType = "count"
)

// Entity is a typed candidate extracted from raw query text.
// Entities are immutable once created; duplicates across sub-extractors
// are merged by (Type, Value) with a confidence boost.
type Entity struct {
	Type         EntityType
	Value        string
	Confidence   float64 // in [0,1]
	OriginalText string
}

// AmountOperator describes how an amount filter compares against a
// document total.
type AmountOperator string

const (
	AmountEquals  AmountOperator = "equals"
	AmountGreater AmountOperator = "greater"
	AmountLess    AmountOperator = "less"
	AmountBetween AmountOperator = "between"
)

// AmountFilter is a monetary predicate extracted from the query.
// For AmountBetween, Value holds the lower bound and MaxValue the upper.
type AmountFilter struct {
	Value     float64
	Operator  AmountOperator
	Tolerance float64
	Currency  string
	MaxValue  float64
}

// TemporalKind discriminates the shape of a temporal expression.
type TemporalKind string

const (
	TemporalAbsolute TemporalKind = "absolute"
	TemporalRelative TemporalKind = "relative"
	TemporalRange    TemporalKind = "range"
	TemporalQuarter  TemporalKind = "quarter"
	TemporalFiscal   TemporalKind = "fiscal"
	TemporalCount    TemporalKind = "count"
)

// Direction orients count expressions in time.
type Direction string

const (
	DirectionPast   Direction = "past"
	DirectionFuture Direction = "future"
)

// TemporalExpression is a normalized time constraint.
// Invariant: when both Start and End are set, Start <= End.
type TemporalExpression struct {
	Kind         TemporalKind
	Start        *time.Time
	End          *time.Time
	Count        int
	Unit         string
	DocumentType string
	Direction    Direction
}

// Intent labels what the user wants done with the matching documents.
type Intent string

const (
	IntentSearch    Intent = "search"
	IntentFilter    Intent = "filter"
	IntentCount     Intent = "count"
	IntentCompare   Intent = "compare"
	IntentAggregate Intent = "aggregate"
	IntentSort      Intent = "sort"
	IntentLimit     Intent = "limit"
)

// Sort fields and orders derived from the query.
const (
	SortByDate      = "date"
	SortByAmount    = "amount"
	SortByRelevance = "relevance"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ParsedQuery is the structured interpretation of a free-text search query.
// A parse call builds one instance; refinement produces a new merged
// instance and never mutates the original.
type ParsedQuery struct {
	RawQuery      string
	Intents       []Intent
	Entities      []Entity
	Temporal      *TemporalExpression
	Amount        *AmountFilter
	Vendors       []string
	DocumentTypes []string
	Keywords      []string
	Limit         int // 0 means no explicit limit
	SortBy        string
	SortOrder     string
	Confidence    float64
}

// HasIntent reports whether the query carries the given intent.
func (q *ParsedQuery) HasIntent(intent Intent) bool {
	for _, i := range q.Intents {
		if i == intent {
			return true
		}
	}
	return false
}
