package query

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Parser turns free-text queries into structured ParsedQuery values by
// running entity extraction, temporal parsing, amount extraction and
// intent classification over normalized text.
type Parser struct {
	extractor  *EntityExtractor
	temporal   *TemporalParser
	classifier *Classifier
	logger     *slog.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithEntityExtractor replaces the default entity extractor.
func WithEntityExtractor(extractor *EntityExtractor) ParserOption {
	return func(p *Parser) {
		if extractor != nil {
			p.extractor = extractor
		}
	}
}

// WithTemporalParser replaces the default temporal parser.
func WithTemporalParser(temporal *TemporalParser) ParserOption {
	return func(p *Parser) {
		if temporal != nil {
			p.temporal = temporal
		}
	}
}

// WithClassifier replaces the default intent classifier.
func WithClassifier(classifier *Classifier) ParserOption {
	return func(p *Parser) {
		if classifier != nil {
			p.classifier = classifier
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
	}
}

// NewParser creates a parser with default components, overridable
// through options.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		extractor:  NewEntityExtractor(),
		temporal:   NewTemporalParser(),
		classifier: NewClassifier(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse interprets a raw query. Returns ErrEmptyQuery when the text is
// blank after normalization; any non-blank query parses successfully,
// with confidence reflecting how much structure was recognized.
func (p *Parser) Parse(rawQuery string) (*ParsedQuery, error) {
	normalized := Normalize(rawQuery)
	if normalized == "" {
		return nil, fmt.Errorf("parsing %q: %w", rawQuery, ErrEmptyQuery)
	}

	entities := p.extractor.Extract(normalized)
	temporal := p.temporal.Parse(normalized)
	amount := p.extractor.ExtractAmountFilter(normalized)
	intents := p.classifier.Classify(normalized, entities)
	if temporal != nil {
		// A date constraint narrows results just like any other filter.
		intents = ensureIntent(intents, IntentFilter)
	}

	parsed := &ParsedQuery{
		RawQuery: rawQuery,
		Intents:  intents,
		Entities: entities,
		Temporal: temporal,
		Amount:   amount,
	}

	for _, entity := range entities {
		switch entity.Type {
		case EntityVendor:
			parsed.Vendors = appendUnique(parsed.Vendors, entity.Value)
		case EntityDocumentType:
			parsed.DocumentTypes = appendUnique(parsed.DocumentTypes, entity.Value)
		case EntityKeyword:
			parsed.Keywords = appendUnique(parsed.Keywords, entity.Value)
		case EntityCount:
			if n, err := strconv.Atoi(entity.Value); err == nil && n > 0 {
				parsed.Limit = n
			}
		}
	}
	if temporal != nil && temporal.Kind == TemporalCount && temporal.DocumentType != "" {
		parsed.DocumentTypes = appendUnique(parsed.DocumentTypes, temporal.DocumentType)
		if parsed.Limit == 0 {
			parsed.Limit = temporal.Count
		}
	}

	parsed.SortBy, parsed.SortOrder = deriveSort(normalized, parsed.HasIntent(IntentSort))
	parsed.Confidence = parseConfidence(parsed)

	p.logger.Debug("parsed query",
		"query", rawQuery,
		"intents", intents,
		"entities", len(entities),
		"confidence", parsed.Confidence)
	return parsed, nil
}

// ParseAndRefine parses a follow-up query and merges it into a previous
// result. The base is never mutated. Intents, entities, vendors, types
// and keywords are unioned; temporal constraints are intersected;
// amount, limit and sort come from the refinement when it sets them.
func (p *Parser) ParseAndRefine(base *ParsedQuery, refinement string) (*ParsedQuery, error) {
	if base == nil {
		return p.Parse(refinement)
	}
	refined, err := p.Parse(refinement)
	if err != nil {
		return nil, err
	}

	merged := &ParsedQuery{
		RawQuery:  base.RawQuery + " " + refined.RawQuery,
		Temporal:  Combine(base.Temporal, refined.Temporal),
		Amount:    base.Amount,
		Limit:     base.Limit,
		SortBy:    base.SortBy,
		SortOrder: base.SortOrder,
	}

	merged.Intents = append(merged.Intents, base.Intents...)
	for _, intent := range refined.Intents {
		if !merged.HasIntent(intent) {
			merged.Intents = append(merged.Intents, intent)
		}
	}

	merged.Entities = mergeEntities(append(append([]Entity{}, base.Entities...), refined.Entities...))

	merged.Vendors = unionStrings(base.Vendors, refined.Vendors)
	merged.DocumentTypes = unionStrings(base.DocumentTypes, refined.DocumentTypes)
	merged.Keywords = unionStrings(base.Keywords, refined.Keywords)

	if refined.Amount != nil {
		merged.Amount = refined.Amount
	}
	if refined.Limit != 0 {
		merged.Limit = refined.Limit
	}
	if refined.HasIntent(IntentSort) {
		merged.SortBy, merged.SortOrder = refined.SortBy, refined.SortOrder
	}

	merged.Confidence = base.Confidence
	if refined.Confidence > merged.Confidence {
		merged.Confidence = refined.Confidence
	}
	return merged, nil
}

// deriveSort picks the sort field and order. Without a sort intent
// results rank by relevance.
func deriveSort(text string, hasSortIntent bool) (string, string) {
	if !hasSortIntent {
		return SortByRelevance, SortDesc
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "oldest") || strings.Contains(lower, "earliest"):
		return SortByDate, SortAsc
	case strings.Contains(lower, "cheapest"):
		return SortByAmount, SortAsc
	case strings.Contains(lower, "expensive"):
		return SortByAmount, SortDesc
	case strings.Contains(lower, "amount") || strings.Contains(lower, "price"):
		return SortByAmount, SortDesc
	default:
		// newest, latest, "sorted by date" and bare sort wording
		return SortByDate, SortDesc
	}
}

// parseConfidence scores how much structure the parse recovered:
// a 0.5 baseline, plus entity quality, a non-trivial intent, a
// temporal constraint, and entity-type diversity. Capped at 1.0.
func parseConfidence(q *ParsedQuery) float64 {
	confidence := 0.5

	if len(q.Entities) > 0 {
		var sum float64
		for _, entity := range q.Entities {
			sum += entity.Confidence
		}
		confidence += 0.2 * (sum / float64(len(q.Entities)))
	}

	nonTrivial := false
	for _, intent := range q.Intents {
		if intent != IntentSearch {
			nonTrivial = true
			break
		}
	}
	if nonTrivial {
		confidence += 0.15
	}

	if q.Temporal != nil {
		confidence += 0.15
	}

	types := make(map[EntityType]bool)
	for _, entity := range q.Entities {
		types[entity.Type] = true
	}
	if len(types) >= 2 {
		confidence += 0.1
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if strings.EqualFold(v, value) {
			return values
		}
	}
	return append(values, value)
}

func unionStrings(a, b []string) []string {
	out := append([]string{}, a...)
	for _, v := range b {
		out = appendUnique(out, v)
	}
	return out
}
