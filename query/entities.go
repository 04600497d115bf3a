package query

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Confidence levels for vendor candidates, ordered by rule specificity.
const (
	vendorConfHeuristic = 0.5
	vendorConfPattern   = 0.7
	vendorConfQuoted    = 0.9
	vendorConfGazetteer = 0.95

	amountConf  = 0.8
	docTypeConf = 0.8
	countConf   = 0.9
	keywordConf = 0.6

	maxResidualKeywords = 5

	// duplicateBoost is added when two sub-extractors agree on an entity.
	duplicateBoost = 0.1
)

var (
	quotedVendorRe = regexp.MustCompile(`["']([^"']{2,})["']`)
	fromAtVendorRe = regexp.MustCompile(`(?:from|at)\s+((?:[A-Z][\w&'.-]*)(?:\s+[A-Z][\w&'.-]*)*)`)
	hebrewVendorRe = regexp.MustCompile(`(?:^|\s)[במ]([א-ת]{2,}(?:\s[א-ת]{2,})?)`)

	symbolAmountRe = regexp.MustCompile(`[$€£₪]\s?(\d[\d.,]*)`)
	namedAmountRe  = regexp.MustCompile(`(?i)(\d[\d.,]*)\s?(usd|eur|gbp|ils|nis|dollars?|euros?|pounds?|shekels?)\b`)
	hebrewAmountRe = regexp.MustCompile(`(\d[\d.,]*)\s?(שקלים|שקל|ש"ח)`)

	countRe = regexp.MustCompile(`(?i)\b(?:top|last|first|latest|previous|past)\s+(\d+)\b`)

	betweenAmountRe = regexp.MustCompile(`(?i)between\s+[$€£₪]?\s?(\d[\d.,]*)\s+and\s+[$€£₪]?\s?(\d[\d.,]*)`)
	hebrewBetweenRe = regexp.MustCompile(`בין\s+₪?\s?(\d[\d.,]*)\s+ל-?\s?₪?\s?(\d[\d.,]*)`)
	greaterAmountRe = regexp.MustCompile(`(?i)\b(?:over|above|greater than|more than|at least|exceeding)\s+[$€£₪]?\s?(\d[\d.,]*)`)
	hebrewGreaterRe = regexp.MustCompile(`מעל\s+₪?\s?(\d[\d.,]*)`)
	lessAmountRe    = regexp.MustCompile(`(?i)\b(?:under|below|less than|at most|cheaper than)\s+[$€£₪]?\s?(\d[\d.,]*)`)
	hebrewLessRe    = regexp.MustCompile(`מתחת ל?-?\s?₪?\s?(\d[\d.,]*)`)
)

// EntityExtractor pulls typed candidates from raw query text.
// Extraction never fails: unmatched rules simply contribute nothing.
type EntityExtractor struct {
	gazetteer []string // canonical known-vendor names
	logger    *slog.Logger
}

// ExtractorOption configures an EntityExtractor.
type ExtractorOption func(*EntityExtractor)

// WithGazetteer sets the known-vendor gazetteer.
// Matches against it score the highest vendor confidence.
func WithGazetteer(vendors []string) ExtractorOption {
	return func(e *EntityExtractor) {
		e.gazetteer = vendors
	}
}

// WithExtractorLogger sets a custom logger.
// Default is slog.Default().
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *EntityExtractor) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// NewEntityExtractor creates an extractor with the given options.
func NewEntityExtractor(opts ...ExtractorOption) *EntityExtractor {
	e := &EntityExtractor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs all sub-extractors over the text and returns the merged
// entity candidates. Returns an empty slice when nothing matches.
func (e *EntityExtractor) Extract(text string) []Entity {
	var entities []Entity
	entities = append(entities, e.extractVendors(text)...)
	entities = append(entities, e.extractAmounts(text)...)
	entities = append(entities, e.extractDocumentTypes(text)...)
	entities = append(entities, e.extractCounts(text)...)
	entities = append(entities, e.extractKeywords(text)...)
	return mergeEntities(entities)
}

// mergeEntities deduplicates by (Type, Value); repeats from independent
// rules boost the kept entity's confidence, capped at 1.0.
func mergeEntities(entities []Entity) []Entity {
	merged := make([]Entity, 0, len(entities))
	index := make(map[string]int, len(entities))

	for _, entity := range entities {
		key := string(entity.Type) + "\x00" + strings.ToLower(entity.Value)
		if i, ok := index[key]; ok {
			conf := merged[i].Confidence
			if entity.Confidence > conf {
				conf = entity.Confidence
			}
			conf += duplicateBoost
			if conf > 1.0 {
				conf = 1.0
			}
			merged[i].Confidence = conf
			continue
		}
		index[key] = len(merged)
		merged = append(merged, entity)
	}
	return merged
}

func (e *EntityExtractor) extractVendors(text string) []Entity {
	var entities []Entity

	// Gazetteer: exact known-vendor match, highest confidence
	lower := strings.ToLower(text)
	for _, vendor := range e.gazetteer {
		if strings.Contains(lower, strings.ToLower(vendor)) {
			entities = append(entities, Entity{
				Type:         EntityVendor,
				Value:        vendor,
				Confidence:   vendorConfGazetteer,
				OriginalText: vendor,
			})
		}
	}

	// Quoted strings
	for _, m := range quotedVendorRe.FindAllStringSubmatch(text, -1) {
		entities = append(entities, Entity{
			Type:         EntityVendor,
			Value:        strings.TrimSpace(m[1]),
			Confidence:   vendorConfQuoted,
			OriginalText: m[0],
		})
	}

	// "from X" / "at X" with a capitalized name
	for _, m := range fromAtVendorRe.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		if e.isVendorCandidate(candidate) {
			entities = append(entities, Entity{
				Type:         EntityVendor,
				Value:        candidate,
				Confidence:   vendorConfPattern,
				OriginalText: m[0],
			})
		}
	}

	// Hebrew prefixed forms: ב<name> ("at"), מ<name> ("from")
	for _, m := range hebrewVendorRe.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		if e.isVendorCandidate(candidate) {
			entities = append(entities, Entity{
				Type:         EntityVendor,
				Value:        candidate,
				Confidence:   vendorConfPattern,
				OriginalText: m[0],
			})
		}
	}

	// Generic capitalized-phrase heuristic, lowest confidence
	for _, phrase := range capitalizedPhrases(text) {
		if e.isVendorCandidate(phrase) {
			entities = append(entities, Entity{
				Type:         EntityVendor,
				Value:        phrase,
				Confidence:   vendorConfHeuristic,
				OriginalText: phrase,
			})
		}
	}

	return entities
}

// capitalizedPhrases returns maximal runs of capitalized tokens.
func capitalizedPhrases(text string) []string {
	tokens := tokenize(text)
	var phrases []string
	var run []string
	flush := func() {
		if len(run) > 0 {
			phrases = append(phrases, strings.Join(run, " "))
			run = nil
		}
	}
	for _, token := range tokens {
		if isCapitalized(token) && !isStopWord(token) {
			run = append(run, token)
			continue
		}
		flush()
	}
	flush()
	return phrases
}

// isVendorCandidate rejects candidates that are stop words or known
// document-type terms.
func (e *EntityExtractor) isVendorCandidate(candidate string) bool {
	if candidate == "" {
		return false
	}
	lower := strings.ToLower(candidate)
	if stopWords[lower] || documentTypeTerms[lower] {
		return false
	}
	return true
}

func (e *EntityExtractor) extractAmounts(text string) []Entity {
	var entities []Entity
	add := func(raw, original string) {
		value, ok := parseAmountString(raw)
		if !ok {
			e.logger.Debug("dropping malformed amount candidate", "raw", raw)
			return
		}
		entities = append(entities, Entity{
			Type:         EntityAmount,
			Value:        strconv.FormatFloat(value, 'f', -1, 64),
			Confidence:   amountConf,
			OriginalText: original,
		})
	}

	for _, m := range symbolAmountRe.FindAllStringSubmatch(text, -1) {
		add(m[1], m[0])
	}
	for _, m := range namedAmountRe.FindAllStringSubmatch(text, -1) {
		add(m[1], m[0])
	}
	for _, m := range hebrewAmountRe.FindAllStringSubmatch(text, -1) {
		add(m[1], m[0])
	}
	return entities
}

// parseAmountString parses a numeric literal with grouping separators.
// The final separator group of one or two digits is treated as decimal;
// all other separators are thousands grouping.
func parseAmountString(raw string) (float64, bool) {
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" {
		return 0, false
	}

	lastSep := strings.LastIndexAny(raw, ".,")
	var intPart, fracPart string
	if lastSep >= 0 && len(raw)-lastSep-1 >= 1 && len(raw)-lastSep-1 <= 2 {
		intPart, fracPart = raw[:lastSep], raw[lastSep+1:]
	} else {
		intPart = raw
	}

	intPart = strings.Map(func(r rune) rune {
		if r == '.' || r == ',' {
			return -1
		}
		return r
	}, intPart)

	numeric := intPart
	if fracPart != "" {
		numeric = intPart + "." + fracPart
	}
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func (e *EntityExtractor) extractDocumentTypes(text string) []Entity {
	lower := strings.ToLower(text)
	var entities []Entity
	for _, entry := range documentTypeTable {
		for _, form := range entry.Forms {
			if !matchesForm(lower, form) {
				continue
			}
			entities = append(entities, Entity{
				Type:         EntityDocumentType,
				Value:        entry.Type,
				Confidence:   docTypeConf,
				OriginalText: form.Form,
			})
			break // at most one entity per type, first form wins
		}
	}
	return entities
}

// matchesForm checks a surface form against lowercased text. Latin forms
// require word boundaries; Hebrew forms use plain containment since \b
// only understands ASCII word characters.
func matchesForm(lowerText string, form keywordForm) bool {
	if form.Lang == "he" {
		return strings.Contains(lowerText, form.Form)
	}
	idx := strings.Index(lowerText, form.Form)
	for idx >= 0 {
		before := idx == 0 || !isWordByte(lowerText[idx-1])
		afterIdx := idx + len(form.Form)
		after := afterIdx >= len(lowerText) || !isWordByte(lowerText[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(lowerText[idx+1:], form.Form)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (e *EntityExtractor) extractCounts(text string) []Entity {
	var entities []Entity
	for _, m := range countRe.FindAllStringSubmatch(text, -1) {
		if _, err := strconv.Atoi(m[1]); err != nil {
			continue
		}
		entities = append(entities, Entity{
			Type:         EntityCount,
			Value:        m[1],
			Confidence:   countConf,
			OriginalText: m[0],
		})
	}
	return entities
}

// extractKeywords collects residual significant tokens: capitalized,
// longer than five characters, or written in a non-Latin script.
func (e *EntityExtractor) extractKeywords(text string) []Entity {
	var entities []Entity
	for _, token := range tokenize(text) {
		if len(entities) == maxResidualKeywords {
			break
		}
		if isStopWord(token) || isNumericToken(token) {
			continue
		}
		lower := strings.ToLower(token)
		if documentTypeTerms[lower] || currencyNames[lower] != "" {
			continue
		}
		if !isCapitalized(token) && len([]rune(token)) <= 5 && !hasNonLatinScript(token) {
			continue
		}
		entities = append(entities, Entity{
			Type:         EntityKeyword,
			Value:        token,
			Confidence:   keywordConf,
			OriginalText: token,
		})
	}
	return entities
}

// ExtractAmountFilter extracts a monetary predicate from the text.
// Precedence: between > single comparison keyword > bare amount (equals).
// Returns nil when no amount wording is present.
func (e *EntityExtractor) ExtractAmountFilter(text string) *AmountFilter {
	currency := detectCurrency(text)

	for _, re := range []*regexp.Regexp{betweenAmountRe, hebrewBetweenRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			low, okLow := parseAmountString(m[1])
			high, okHigh := parseAmountString(m[2])
			if !okLow || !okHigh {
				continue
			}
			if low > high {
				low, high = high, low
			}
			return &AmountFilter{
				Value:    low,
				MaxValue: high,
				Operator: AmountBetween,
				Currency: currency,
			}
		}
	}

	for _, cmp := range []struct {
		res []*regexp.Regexp
		op  AmountOperator
	}{
		{[]*regexp.Regexp{greaterAmountRe, hebrewGreaterRe}, AmountGreater},
		{[]*regexp.Regexp{lessAmountRe, hebrewLessRe}, AmountLess},
	} {
		for _, re := range cmp.res {
			m := re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			value, ok := parseAmountString(m[1])
			if !ok {
				continue
			}
			return &AmountFilter{Value: value, Operator: cmp.op, Currency: currency}
		}
	}

	// Bare symbol-prefixed or currency-named amount defaults to equals
	for _, re := range []*regexp.Regexp{symbolAmountRe, namedAmountRe, hebrewAmountRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, ok := parseAmountString(m[1])
		if !ok {
			continue
		}
		return &AmountFilter{
			Value:     value,
			Operator:  AmountEquals,
			Tolerance: 0.01,
			Currency:  currency,
		}
	}

	return nil
}

// detectCurrency returns the ISO code of the first currency marker in the
// text, or "".
func detectCurrency(text string) string {
	for symbol, code := range currencySymbols {
		if strings.Contains(text, symbol) {
			return code
		}
	}
	for _, token := range tokenize(strings.ToLower(text)) {
		if code, ok := currencyNames[token]; ok {
			return code
		}
	}
	return ""
}
