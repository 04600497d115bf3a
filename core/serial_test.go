package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentMUS_RoundTrip(t *testing.T) {
	doc := Document{
		Id:           IDFromContent("receipt-1"),
		OcrText:      "COSTCO WHOLESALE\nTotal: $142.50",
		Vendor:       "Costco",
		DocumentType: "receipt",
		Date:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		TotalAmount:  142.50,
		HasAmount:    true,
		Currency:     "USD",
		Keywords:     []string{"groceries", "wholesale"},
		SearchVector: []float32{0.1, -0.4, 0.9},
		InsertedAt:   time.Date(2024, 6, 2, 10, 30, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC),
	}

	bs := make([]byte, DocumentMUS.Size(doc))
	n := DocumentMUS.Marshal(doc, bs)
	require.Equal(t, len(bs), n)

	got, n, err := DocumentMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, len(bs), n)
	assert.Equal(t, doc, got)
}

func TestDocumentMUS_ZeroDate(t *testing.T) {
	doc := Document{
		Id:           42,
		OcrText:      "undated letter",
		DocumentType: "letter",
	}

	bs := make([]byte, DocumentMUS.Size(doc))
	DocumentMUS.Marshal(doc, bs)

	got, _, err := DocumentMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.True(t, got.Date.IsZero())
	assert.False(t, got.HasAmount)
}

func TestDocumentMUS_TruncatedInput(t *testing.T) {
	doc := Document{Id: 7, OcrText: "some text", DocumentType: "invoice"}
	bs := make([]byte, DocumentMUS.Size(doc))
	DocumentMUS.Marshal(doc, bs)

	_, _, err := DocumentMUS.Unmarshal(bs[:3])
	assert.Error(t, err)
}
