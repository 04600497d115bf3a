package ranking

import (
	"math"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/poiesic/scandex/ai"
	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/phonetic"
	"github.com/poiesic/scandex/query"
)

// semanticSimilarity maps cosine similarity into [0,1]. Embedding
// vectors rarely produce negative cosines; when they do the factor
// clamps to zero rather than penalizing.
func semanticSimilarity(queryVector, docVector []float32) float64 {
	sim := ai.CosineSimilarity(queryVector, docVector)
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// keywordMatch scores how many query keywords appear in the document
// text: a whole-word hit counts full, a substring hit counts half. The
// returned slice lists the keywords that matched at all.
func keywordMatch(keywords []string, docText string) (float64, []string) {
	if len(keywords) == 0 {
		return 0, nil
	}
	lower := strings.ToLower(docText)

	var sum float64
	var matched []string
	for _, keyword := range keywords {
		kw := strings.ToLower(keyword)
		switch {
		case containsWord(lower, kw):
			sum += 1.0
			matched = append(matched, keyword)
		case strings.Contains(lower, kw):
			sum += 0.5
			matched = append(matched, keyword)
		}
	}
	return sum / float64(len(keywords)), matched
}

// containsWord reports whether text contains needle bounded by
// non-alphanumeric characters.
func containsWord(text, needle string) bool {
	idx := strings.Index(text, needle)
	for idx >= 0 {
		before := idx == 0 || !isAlphanumeric(text[idx-1])
		afterIdx := idx + len(needle)
		after := afterIdx >= len(text) || !isAlphanumeric(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], needle)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isAlphanumeric(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// dateRelevance scores a document date against the query's temporal
// window. Without a window, recency decays exponentially with a one
// year half-life scale and undated documents sit at a neutral 0.3.
// With a window, documents outside score zero and documents inside
// score higher toward the window's end.
func dateRelevance(docDate time.Time, temporal *query.TemporalExpression, now time.Time) float64 {
	hasWindow := temporal != nil && (temporal.Start != nil || temporal.End != nil)

	if !hasWindow {
		if docDate.IsZero() {
			return 0.3
		}
		days := now.Sub(docDate).Hours() / 24
		if days < 0 {
			days = 0
		}
		return math.Exp(-days / 365)
	}

	if docDate.IsZero() {
		return 0
	}
	if temporal.Start != nil && docDate.Before(*temporal.Start) {
		return 0
	}
	if temporal.End != nil && docDate.After(*temporal.End) {
		return 0
	}
	if temporal.Start == nil || temporal.End == nil {
		return 1.0 // half-open window, inside is a full match
	}

	rangeSize := temporal.End.Sub(*temporal.Start)
	if rangeSize <= 0 {
		return 1.0
	}
	position := docDate.Sub(*temporal.Start)
	return 0.5 + 0.5*(position.Seconds()/rangeSize.Seconds())
}

// relatedDocumentTypes pairs types that commonly stand in for each
// other in practice. Entries are symmetric.
var relatedDocumentTypes = map[string][]string{
	"receipt":   {"invoice"},
	"invoice":   {"receipt"},
	"medical":   {"insurance"},
	"insurance": {"medical"},
}

// documentTypeMatch scores 1.0 when the document's type is one of the
// requested types, 0.5 when it is a related type (receipt/invoice,
// medical/insurance), and zero otherwise.
func documentTypeMatch(docType string, requested []string) float64 {
	for _, t := range requested {
		if strings.EqualFold(docType, t) {
			return 1.0
		}
	}
	for _, t := range requested {
		for _, related := range relatedDocumentTypes[strings.ToLower(t)] {
			if strings.EqualFold(docType, related) {
				return 0.5
			}
		}
	}
	return 0
}

// vendorMatch scores the document vendor against the query's vendor
// candidates: exact match, substring containment, then edit-distance
// similarity above 0.7 discounted by 0.8. Best candidate wins.
func vendorMatch(queryVendors []string, docVendor string) float64 {
	if docVendor == "" {
		return 0
	}
	docLower := strings.ToLower(docVendor)

	best := 0.0
	for _, vendor := range queryVendors {
		qLower := strings.ToLower(vendor)
		var score float64
		switch {
		case qLower == docLower:
			score = 1.0
		case strings.Contains(docLower, qLower) || strings.Contains(qLower, docLower):
			score = 0.7
		default:
			if sim := levenshteinSimilarity(qLower, docLower); sim > 0.7 {
				score = sim * 0.8
			}
		}
		if score > best {
			best = score
		}
	}
	return best
}

// MatchesVendor reports whether a document vendor satisfies a vendor
// constraint. Exact and containment matches always qualify; edit
// distance and sound-alike matches qualify only when fuzzy is enabled.
// An empty constraint matches everything.
func MatchesVendor(queryVendors []string, docVendor string, fuzzy bool) bool {
	if len(queryVendors) == 0 {
		return true
	}
	if docVendor == "" {
		return false
	}
	docLower := strings.ToLower(docVendor)
	for _, vendor := range queryVendors {
		qLower := strings.ToLower(vendor)
		if qLower == docLower ||
			strings.Contains(docLower, qLower) ||
			strings.Contains(qLower, docLower) {
			return true
		}
		if !fuzzy {
			continue
		}
		if levenshteinSimilarity(qLower, docLower) > 0.7 {
			return true
		}
		if phonetic.BestTokenMatch(vendor, docVendor) > 0 {
			return true
		}
	}
	return false
}

// levenshteinSimilarity normalizes edit distance into [0,1].
func levenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(longest)
}

// phoneticMatch scores sound-alike agreement between query vendors and
// the document vendor, tolerating OCR misspellings.
func phoneticMatch(queryVendors []string, docVendor string) float64 {
	if docVendor == "" {
		return 0
	}
	best := 0.0
	for _, vendor := range queryVendors {
		if score := phonetic.BestTokenMatch(vendor, docVendor); score > best {
			best = score
		}
	}
	return best
}

// amountMatch scores the document total against the query's amount
// predicate. Documents without an amount never match.
func amountMatch(doc *core.Document, filter *query.AmountFilter) float64 {
	if filter == nil || !doc.HasAmount {
		return 0
	}
	amount := doc.TotalAmount

	switch filter.Operator {
	case query.AmountEquals:
		diff := math.Abs(amount - filter.Value)
		if diff <= filter.Tolerance {
			return 1.0
		}
		if filter.Value == 0 {
			return 0
		}
		score := 1.0 - diff/filter.Value
		if score < 0 {
			return 0
		}
		return score

	case query.AmountGreater:
		if amount < filter.Value {
			return 0
		}
		if filter.Value <= 0 {
			return 1.0
		}
		return capped(0.8 + 0.2*math.Log10(amount/filter.Value))

	case query.AmountLess:
		if amount > filter.Value {
			return 0
		}
		if amount <= 0 {
			return 1.0
		}
		return capped(0.8 + 0.2*math.Log10(filter.Value/amount))

	case query.AmountBetween:
		if amount < filter.Value || amount > filter.MaxValue {
			return 0
		}
		span := filter.MaxValue - filter.Value
		if span <= 0 {
			return 1.0
		}
		return 0.5 + 0.5*(amount-filter.Value)/span
	}
	return 0
}

func capped(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
