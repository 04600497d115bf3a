package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Document represents a single scanned document after OCR.
// Image capture, OCR, and visual type detection happen upstream;
// a Document arrives here as extracted text plus structured fields.
type Document struct {
	Id           ID
	OcrText      string
	Vendor       string    // Empty when no vendor could be determined
	DocumentType string    // Normalized type, e.g. "receipt", "invoice"
	Date         time.Time // Document date from OCR; zero when unknown
	TotalAmount  float64
	HasAmount    bool // TotalAmount is only meaningful when true
	Currency     string
	Keywords     []string
	SearchVector []float32 // Embedding vector for semantic search (populated by processors)
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// SearchText returns the concatenated searchable text of the document:
// OCR contents, vendor, document type, and keywords.
func (d *Document) SearchText() string {
	text := d.OcrText
	if d.Vendor != "" {
		text += " " + d.Vendor
	}
	if d.DocumentType != "" {
		text += " " + d.DocumentType
	}
	for _, kw := range d.Keywords {
		text += " " + kw
	}
	return text
}

// ScoringFactors holds named partial relevance scores in [0,1].
// The map is sparse: a factor is present only when its inputs were
// available for the document, so normalization runs over present keys only.
type ScoringFactors map[string]float64

// Factor names used by the ranking engine.
const (
	FactorSemantic     = "semanticSimilarity"
	FactorKeyword      = "keywordMatch"
	FactorDate         = "dateRelevance"
	FactorDocumentType = "documentTypeMatch"
	FactorPhonetic     = "phoneticMatch"
	FactorVendor       = "vendorMatch"
	FactorAmount       = "amountMatch"
)

// ScoredDocument is a document paired with its relevance score and the
// per-factor breakdown that produced it.
type ScoredDocument struct {
	Document        *Document
	Score           float64
	Factors         ScoringFactors
	MatchedKeywords []string
	Confidence      float64
}
