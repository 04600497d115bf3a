package storage

import (
	"context"
	"time"

	"github.com/poiesic/scandex/core"
)

// Filter describes the structured predicates a fetch can push down to the
// storage backend. Nil/empty fields mean "no constraint".
type Filter struct {
	// Start and End bound the document date (inclusive on both ends).
	Start *time.Time
	End   *time.Time

	// DocumentTypes restricts results to the given normalized types.
	DocumentTypes []string

	// MinAmount and MaxAmount bound the document total amount.
	// Documents without an amount are excluded when either bound is set.
	MinAmount *float64
	MaxAmount *float64
}

// Empty reports whether the filter carries no constraints.
func (f *Filter) Empty() bool {
	return f == nil ||
		(f.Start == nil && f.End == nil && len(f.DocumentTypes) == 0 &&
			f.MinAmount == nil && f.MaxAmount == nil)
}

// DocumentRepository provides operations for managing scanned documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// AddDocuments adds one or more documents to storage.
	// For documents with ID=0, derives a content-based ID from the OCR text.
	// Sets InsertedAt timestamp if not already set.
	// Returns the documents with IDs and timestamps populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// UpdateDocuments updates existing documents.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs.
	// Also removes associated indices.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// FetchAll retrieves every stored document.
	FetchAll(ctx context.Context) ([]*core.Document, error)

	// FetchFiltered retrieves documents matching the pushed-down filter.
	// A nil or empty filter behaves like FetchAll.
	FetchFiltered(ctx context.Context, filter *Filter) ([]*core.Document, error)

	// UpdateSearchVector stores an embedding vector for a document without
	// touching its other fields. Returns ErrNotFound if the document
	// doesn't exist.
	UpdateSearchVector(ctx context.Context, id core.ID, vector []float32) error

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the repository and releases resources.
	Close() error
}
