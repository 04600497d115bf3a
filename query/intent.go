package query

import (
	"log/slog"
	"strings"
)

// Classifier decides what the user wants done with the matching
// documents. It is stateless and driven entirely by the pattern tables.
type Classifier struct {
	logger *slog.Logger
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithClassifierLogger sets a custom logger.
func WithClassifierLogger(logger *slog.Logger) ClassifierOption {
	return func(c *Classifier) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// NewClassifier creates a classifier with the given options.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns every intent whose trigger pattern matches the text,
// in priority order. Extracted entities refine the set: a count entity
// implies a limit, an amount entity next to comparison wording implies
// compare plus filter, and vendor or document-type entities imply
// filter. A query that matches nothing is still a search.
func (c *Classifier) Classify(text string, entities []Entity) []Intent {
	matched := make(map[Intent]bool)
	for _, intent := range intentPriority {
		if matchesIntent(text, intent) {
			matched[intent] = true
		}
	}
	for _, entity := range entities {
		switch entity.Type {
		case EntityCount:
			matched[IntentLimit] = true
		case EntityAmount:
			if matched[IntentCompare] {
				matched[IntentFilter] = true
			}
		case EntityVendor, EntityDocumentType:
			matched[IntentFilter] = true
		}
	}

	var intents []Intent
	for _, intent := range intentPriority {
		if matched[intent] {
			intents = append(intents, intent)
		}
	}
	if len(intents) == 0 {
		intents = []Intent{IntentSearch}
	}
	return intents
}

// ClassifyWithConfidence resolves the single primary intent and scores
// how sure the classification is. The primary intent is the
// highest-priority matching one; confidence starts at a 0.5 baseline
// and grows with pattern hits, supporting entities, and explicit
// command keywords.
func (c *Classifier) ClassifyWithConfidence(text string, entities []Entity) (Intent, float64) {
	primary := IntentSearch
	matched := false
	for _, intent := range intentPriority {
		if matchesIntent(text, intent) {
			primary, matched = intent, true
			break
		}
	}

	confidence := 0.5
	if matched {
		confidence += 0.2
	}
	for _, entity := range entities {
		if entitySupportsIntent(entity.Type, primary) {
			confidence += entity.Confidence * 0.1
		}
	}
	if hasExplicitKeyword(text, primary) {
		confidence += 0.15
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return primary, confidence
}

// ensureIntent inserts intent at its priority position when absent.
func ensureIntent(intents []Intent, intent Intent) []Intent {
	rank := make(map[Intent]int, len(intentPriority))
	for i, in := range intentPriority {
		rank[in] = i
	}
	for _, in := range intents {
		if in == intent {
			return intents
		}
	}
	out := make([]Intent, 0, len(intents)+1)
	inserted := false
	for _, in := range intents {
		if !inserted && rank[intent] < rank[in] {
			out = append(out, intent)
			inserted = true
		}
		out = append(out, in)
	}
	if !inserted {
		out = append(out, intent)
	}
	return out
}

func matchesIntent(text string, intent Intent) bool {
	for _, lp := range intentPatternTable[intent] {
		if lp.Pattern.MatchString(text) {
			return true
		}
	}
	return false
}

func entitySupportsIntent(entityType EntityType, intent Intent) bool {
	for _, t := range intentRelevantEntities[intent] {
		if t == entityType {
			return true
		}
	}
	return false
}

func hasExplicitKeyword(text string, intent Intent) bool {
	lower := strings.ToLower(text)
	for _, keyword := range intentKeywordTable[intent] {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
