package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/scandex/ai"
	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/storage"
)

// embeddingProcessor generates search vectors for stored documents.
type embeddingProcessor struct {
	repository storage.DocumentRepository
	embedder   ai.Embedder
	lastID     core.ID
	logger     *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(repository storage.DocumentRepository, embedder ai.Embedder, logger *slog.Logger) (processor, error) {
	if repository == nil {
		return nil, fmt.Errorf("document repository required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		repository: repository,
		embedder:   embedder,
		logger:     logger.With("processor", "embeddings"),
	}, nil
}

// process generates embeddings for the specified documents and persists
// them as search vectors.
func (ep *embeddingProcessor) process(ctx context.Context, ids ...core.ID) error {
	ep.logger.Info("processing documents for embeddings", "documents", len(ids))

	// Sort first so checkpointing works correctly
	slices.Sort(ids)

	docs, err := ep.repository.GetDocuments(ctx, ids...)
	if err != nil {
		ep.logger.Error("error retrieving documents", "err", err)
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.SearchText()
	}

	ep.logger.Debug("generating embeddings for documents", "documents", len(texts))
	embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return err
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(docs), len(embeddings))
	}

	for i, doc := range docs {
		if err := ep.repository.UpdateSearchVector(ctx, doc.Id, embeddings[i]); err != nil {
			return err
		}
		if doc.Id > ep.lastID {
			ep.lastID = doc.Id
		}
	}
	return nil
}

// checkpoint saves the processor's current state.
// Currently unimplemented - reserved for future checkpointing support.
func (ep *embeddingProcessor) checkpoint() error {
	return nil
}
