package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/scandex/ai/mock"
	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/storage"
	"github.com/poiesic/scandex/storage/badger"
)

func newTestRepo(t *testing.T) storage.DocumentRepository {
	t.Helper()

	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	return repo
}

func seedDocuments(t *testing.T, repo storage.DocumentRepository, texts ...string) []*core.Document {
	t.Helper()

	docs := make([]*core.Document, len(texts))
	for i, text := range texts {
		docs[i] = &core.Document{
			OcrText:      text,
			DocumentType: "receipt",
			Date:         time.Now().AddDate(0, 0, -i),
		}
	}

	added, err := repo.AddDocuments(context.Background(), docs...)
	require.NoError(t, err)
	return added
}

func fastConfig() *Config {
	return &Config{
		BatchSize:      2,
		ReportInterval: 1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}
}

func TestReembedderRun(t *testing.T) {
	repo := newTestRepo(t)
	seedDocuments(t, repo,
		"Costco groceries receipt",
		"Acme Corp invoice for services",
		"parking garage downtown",
	)

	var buf bytes.Buffer
	r := NewReembedder(repo, mock.NewMockEmbedder(), fastConfig(), &buf)
	require.NoError(t, r.Run(context.Background()))

	docs, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for _, doc := range docs {
		assert.NotEmpty(t, doc.SearchVector, "document %d should have a vector", doc.Id)
	}

	assert.Contains(t, buf.String(), "Reembedding complete")
}

func TestReembedderMissingOnly(t *testing.T) {
	repo := newTestRepo(t)
	added := seedDocuments(t, repo,
		"already embedded document",
		"never embedded document",
	)

	// Give the first document a recognizable existing vector.
	sentinel := []float32{1, 0, 0}
	require.NoError(t, repo.UpdateSearchVector(context.Background(), added[0].Id, sentinel))

	config := fastConfig()
	config.MissingOnly = true

	var buf bytes.Buffer
	r := NewReembedder(repo, mock.NewMockEmbedder(), config, &buf)
	require.NoError(t, r.Run(context.Background()))

	first, err := repo.GetDocument(context.Background(), added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, sentinel, first.SearchVector, "existing vector should be untouched")

	second, err := repo.GetDocument(context.Background(), added[1].Id)
	require.NoError(t, err)
	assert.NotEmpty(t, second.SearchVector, "missing vector should be filled")
}

func TestReembedderEmptyStore(t *testing.T) {
	repo := newTestRepo(t)

	var buf bytes.Buffer
	r := NewReembedder(repo, mock.NewMockEmbedder(), fastConfig(), &buf)
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, buf.String(), "No documents")
}

func TestReembedderEmbedderFailure(t *testing.T) {
	repo := newTestRepo(t)
	seedDocuments(t, repo, "some document text")

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("service unavailable")
	}

	var buf bytes.Buffer
	r := NewReembedder(repo, embedder, fastConfig(), &buf)
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process batch")
}

func TestBatchProcessorNormalizesVectors(t *testing.T) {
	repo := newTestRepo(t)
	added := seedDocuments(t, repo, "vector normalization check")

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{3, 4}}, nil
	}

	bp := NewBatchProcessor(repo, embedder, 1, time.Millisecond)
	require.NoError(t, bp.Process(context.Background(), added))

	doc, err := repo.GetDocument(context.Background(), added[0].Id)
	require.NoError(t, err)
	require.Len(t, doc.SearchVector, 2)
	assert.InDelta(t, 0.6, doc.SearchVector[0], 1e-6)
	assert.InDelta(t, 0.8, doc.SearchVector[1], 1e-6)
}
