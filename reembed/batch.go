package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/scandex/ai"
	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/storage"
)

// BatchProcessor generates search vectors for batches of documents.
type BatchProcessor struct {
	repo           storage.DocumentRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.DocumentRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process generates embeddings for a batch of documents and persists
// them as search vectors. Vectors are normalized after embedding so
// cosine similarity stays well conditioned.
func (bp *BatchProcessor) Process(ctx context.Context, docs []*core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.SearchText()
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)

	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(docs), len(embeddings))
	}

	// UpdateSearchVector leaves the rest of the document untouched, so a
	// reembed never races with other writers.
	for i, doc := range docs {
		vector := ai.NormalizeVector(embeddings[i])
		if err := bp.repo.UpdateSearchVector(ctx, doc.Id, vector); err != nil {
			return fmt.Errorf("failed to store vector for document %d: %w", doc.Id, err)
		}
	}

	return nil
}
