package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/storage"
)

const maxDerivedKeywords = 8

// Function words excluded from derived keywords.
var keywordStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "total": true, "date": true, "item": true,
	"qty": true, "amount": true, "subtotal": true, "tax": true, "change": true,
	"של": true, "את": true, "עם": true, "כל": true,
}

// keywordProcessor derives searchable keywords from a document's OCR
// text so short queries can hit without semantic search.
type keywordProcessor struct {
	repository storage.DocumentRepository
	logger     *slog.Logger
}

var _ processor = (*keywordProcessor)(nil)

func newKeywordProcessor(repository storage.DocumentRepository, logger *slog.Logger) (processor, error) {
	if repository == nil {
		return nil, fmt.Errorf("document repository required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &keywordProcessor{
		repository: repository,
		logger:     logger.With("processor", "keywords"),
	}, nil
}

// process fills in keywords for documents that have none.
func (kp *keywordProcessor) process(ctx context.Context, ids ...core.ID) error {
	slices.Sort(ids)

	docs, err := kp.repository.GetDocuments(ctx, ids...)
	if err != nil {
		kp.logger.Error("error retrieving documents", "err", err)
		return err
	}

	var changed []*core.Document
	for _, doc := range docs {
		if len(doc.Keywords) > 0 {
			continue
		}
		keywords := deriveKeywords(doc.OcrText)
		if len(keywords) == 0 {
			continue
		}
		doc.Keywords = keywords
		changed = append(changed, doc)
	}
	if len(changed) == 0 {
		return nil
	}

	kp.logger.Debug("derived keywords", "documents", len(changed))
	_, err = kp.repository.UpdateDocuments(ctx, changed...)
	return err
}

func (kp *keywordProcessor) checkpoint() error {
	return nil
}

// deriveKeywords picks the most frequent significant words from the OCR
// text, most frequent first, ties broken by order of appearance.
func deriveKeywords(text string) []string {
	type candidate struct {
		word  string
		count int
		first int
	}

	seen := make(map[string]*candidate)
	var order []*candidate
	position := 0
	for _, field := range strings.Fields(text) {
		word := strings.ToLower(strings.Trim(field, ".,!?;:'\"-()[]{}"))
		position++
		if len([]rune(word)) < 3 || keywordStopWords[word] || isNumeric(word) {
			continue
		}
		if c, ok := seen[word]; ok {
			c.count++
			continue
		}
		c := &candidate{word: word, count: 1, first: position}
		seen[word] = c
		order = append(order, c)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	n := len(order)
	if n > maxDerivedKeywords {
		n = maxDerivedKeywords
	}
	keywords := make([]string, 0, n)
	for _, c := range order[:n] {
		keywords = append(keywords, c.word)
	}
	return keywords
}

func isNumeric(word string) bool {
	if word == "" {
		return true
	}
	for _, r := range word {
		if !unicode.IsDigit(r) && r != '.' && r != ',' && r != '/' && r != '-' {
			return false
		}
	}
	return true
}
