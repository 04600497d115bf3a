package query

import (
	"strings"
	"unicode"
)

// Stop words filtered out of keyword residue and vendor candidates.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "me": true, "my": true, "all": true, "show": true,
	"find": true, "get": true, "search": true, "i": true, "want": true,
	"please": true, "list": true, "display": true, "look": true,
	// command wording that should never rank as a content keyword
	"sort": true, "sorted": true, "order": true, "ordered": true,
	"newest": true, "oldest": true, "latest": true, "earliest": true,
	// Hebrew function words
	"של": true, "את": true, "עם": true, "כל": true, "אני": true, "לי": true,
}

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, // curly double quotes
	"‘", "'", "’", "'", // curly single quotes
	"״", `"`, // Hebrew gershayim
)

// Normalize canonicalizes raw query text: whitespace collapsed to single
// spaces, typographic quote marks replaced with straight ones.
func Normalize(text string) string {
	text = quoteReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// tokenize splits text into words with surrounding punctuation trimmed.
// Currency symbols are kept so amount tokens stay recognizable.
func tokenize(text string) []string {
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.Trim(word, ".,!?;:'\"-()[]{}")
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}
	return tokens
}

// isStopWord reports whether the lowercased token is a stop word.
func isStopWord(token string) bool {
	return stopWords[strings.ToLower(token)]
}

// isNumericToken reports whether a token is purely numeric, ignoring
// grouping separators and an optional leading currency sign.
func isNumericToken(token string) bool {
	token = strings.TrimLeft(token, "$€£₪")
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}

// isCapitalized reports whether a token starts with an upper-case letter.
func isCapitalized(token string) bool {
	for _, r := range token {
		return unicode.IsUpper(r)
	}
	return false
}

// hasNonLatinScript reports whether a token contains letters outside the
// Latin script (e.g. Hebrew).
func hasNonLatinScript(token string) bool {
	for _, r := range token {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}
