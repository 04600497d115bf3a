package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/scandex/ai"
	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/storage"
)

// Pipeline orchestrates the ingestion and enrichment of scanned
// documents. Documents are stored synchronously; embedding and keyword
// derivation run concurrently afterward.
type Pipeline struct {
	repository    storage.DocumentRepository
	embeddingPool *ants.Pool
	keywordPool   *ants.Pool
	embeddingProc processor
	keywordProc   processor
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pools
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}
		if p.keywordPool != nil {
			p.keywordPool.Release()
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		keywordPool, err := ants.NewPool(size)
		if err != nil {
			embeddingPool.Release()
			return err
		}

		p.embeddingPool = embeddingPool
		p.keywordPool = keywordPool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	repository storage.DocumentRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	logger := slog.Default()

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	keywordPool, err := ants.NewPool(poolSize)
	if err != nil {
		embeddingPool.Release()
		return nil, err
	}

	p := &Pipeline{
		repository:    repository,
		embeddingPool: embeddingPool,
		keywordPool:   keywordPool,
		logger:        logger,
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	embeddingProc, err := newEmbeddingProcessor(repository, provider.Embedder(), p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	keywordProc, err := newKeywordProcessor(repository, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	p.embeddingProc = embeddingProc
	p.keywordProc = keywordProc
	return p, nil
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	// DocumentType is applied to documents that arrive without one.
	DocumentType string
	// Currency is applied to documents that carry an amount but no currency.
	Currency string
	// ScannedAt overrides the insertion timestamp (uses current time if zero).
	ScannedAt time.Time
}

// Ingest stores OCR'd documents and enriches them asynchronously with
// embeddings and derived keywords. Errors during async processing are
// logged but do not fail the ingestion. Returns the stored documents
// with IDs and timestamps populated.
func (p *Pipeline) Ingest(ctx context.Context, docs []*core.Document, opts *IngestOptions) ([]*core.Document, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	if opts == nil {
		opts = &IngestOptions{}
	}

	for _, doc := range docs {
		if doc.DocumentType == "" {
			doc.DocumentType = opts.DocumentType
		}
		if doc.Currency == "" && doc.HasAmount {
			doc.Currency = opts.Currency
		}
		if doc.InsertedAt.IsZero() && !opts.ScannedAt.IsZero() {
			doc.InsertedAt = opts.ScannedAt
		}
	}

	added, err := p.repository.AddDocuments(ctx, docs...)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return added, nil
	}

	ids := make([]core.ID, len(added))
	for i, doc := range added {
		ids[i] = doc.Id
	}

	// Submit for async processing. Keywords run first so the embedding
	// covers the derived terms and the two writers never interleave on
	// the same document.
	p.keywordPool.Submit(func() {
		if err := p.keywordProc.process(context.Background(), ids...); err != nil {
			p.logger.Error("error deriving keywords", "err", err)
		} else if err := p.keywordProc.checkpoint(); err != nil {
			p.logger.Error("error applying keyword checkpoint", "err", err)
		}

		p.embeddingPool.Submit(func() {
			if err := p.embeddingProc.process(context.Background(), ids...); err != nil {
				p.logger.Error("error processing embeddings", "err", err)
				return
			}
			if err := p.embeddingProc.checkpoint(); err != nil {
				p.logger.Error("error applying embedding checkpoint", "err", err)
			}
		})
	})

	return added, nil
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
	if p.keywordPool != nil {
		p.keywordPool.Release()
	}
}
