package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/scandex/ai/mock"
	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/storage"
	"github.com/poiesic/scandex/storage/badger"
)

func newTestPipeline(t *testing.T) (*Pipeline, storage.DocumentRepository) {
	t.Helper()

	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	pipeline, err := NewPipeline(repo, mock.NewMockProvider(), WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return pipeline, repo
}

func TestNewPipelineValidation(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	_, err = NewPipeline(nil, mock.NewMockProvider())
	require.ErrorIs(t, err, ErrDocumentRepositoryRequired)

	_, err = NewPipeline(repo, nil)
	require.ErrorIs(t, err, ErrAIProviderRequired)
}

func TestIngestStoresAndEnriches(t *testing.T) {
	pipeline, repo := newTestPipeline(t)
	ctx := context.Background()

	added, err := pipeline.Ingest(ctx, []*core.Document{
		{
			OcrText:      "Costco Wholesale groceries milk bread groceries total 142.50",
			Vendor:       "Costco",
			DocumentType: "receipt",
			Date:         time.Now().AddDate(0, 0, -1),
			TotalAmount:  142.50,
			HasAmount:    true,
		},
	}, nil)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.NotZero(t, added[0].Id)
	assert.False(t, added[0].InsertedAt.IsZero())

	// enrichment is asynchronous
	require.Eventually(t, func() bool {
		doc, err := repo.GetDocument(ctx, added[0].Id)
		if err != nil {
			return false
		}
		return len(doc.SearchVector) > 0 && len(doc.Keywords) > 0
	}, 5*time.Second, 20*time.Millisecond)

	doc, err := repo.GetDocument(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Contains(t, doc.Keywords, "groceries")
	assert.LessOrEqual(t, len(doc.Keywords), maxDerivedKeywords)
}

func TestIngestAppliesDefaults(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	ctx := context.Background()

	added, err := pipeline.Ingest(ctx, []*core.Document{
		{OcrText: "parking ticket downtown lot", TotalAmount: 12, HasAmount: true},
	}, &IngestOptions{DocumentType: "receipt", Currency: "USD"})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "receipt", added[0].DocumentType)
	assert.Equal(t, "USD", added[0].Currency)
}

func TestIngestRejectsEmptyBatch(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	_, err := pipeline.Ingest(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrNoDocuments)
}

func TestDeriveKeywords(t *testing.T) {
	keywords := deriveKeywords("Milk bread milk eggs the total 12.50 a milk")
	require.NotEmpty(t, keywords)
	// most frequent first
	assert.Equal(t, "milk", keywords[0])
	assert.NotContains(t, keywords, "the")
	assert.NotContains(t, keywords, "12.50")
}
