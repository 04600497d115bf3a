package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
//
// Returns the storage.DocumentRepository interface to enforce abstraction.
func NewDocumentRepository(backend *Backend) (storage.DocumentRepository, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	return &DocumentRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDocuments adds one or more documents to storage.
func (r *DocumentRepository) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			if err := core.ValidateDocument(doc); err != nil {
				return err
			}

			// Content-based ID: rescanning the same document maps to the
			// same record instead of a duplicate.
			if doc.Id == 0 {
				doc.Id = core.IDFromContent(doc.OcrText)
			}

			doc.InsertedAt = time.Now().UTC()
			doc.UpdatedAt = doc.InsertedAt

			// Store primary record
			key := makeDocumentKey(doc.Id)
			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}

			// Update date index; undated documents are not indexed by date
			if !doc.Date.IsZero() {
				dateKey := makeDateKey(doc.Date, doc.Id)
				if err := tx.Set(dateKey, storage.MarshalID(doc.Id)); err != nil {
					return err
				}
			}

			// Update type index
			typeKey := makeTypeKey(doc.DocumentType, doc.Id)
			if err := tx.Set(typeKey, storage.MarshalID(doc.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return docs, err
}

// UpdateDocuments updates existing documents.
func (r *DocumentRepository) UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			key := makeDocumentKey(doc.Id)

			// Read old record to detect index changes
			old, err := r.readDocument(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			doc.UpdatedAt = time.Now().UTC()

			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}

			// Update date index if the date changed
			if !old.Date.Equal(doc.Date) {
				if !old.Date.IsZero() {
					if err := tx.Delete(makeDateKey(old.Date, old.Id)); err != nil {
						return err
					}
				}
				if !doc.Date.IsZero() {
					if err := tx.Set(makeDateKey(doc.Date, doc.Id), storage.MarshalID(doc.Id)); err != nil {
						return err
					}
				}
			}

			// Update type index if the type changed
			if old.DocumentType != doc.DocumentType {
				if err := tx.Delete(makeTypeKey(old.DocumentType, old.Id)); err != nil {
					return err
				}
				if err := tx.Set(makeTypeKey(doc.DocumentType, doc.Id), storage.MarshalID(doc.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return docs, err
}

// DeleteDocuments removes documents by their IDs.
func (r *DocumentRepository) DeleteDocuments(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeDocumentKey(id)

			doc, err := r.readDocument(tx, key)
			if err != nil {
				return err
			}
			if doc == nil {
				return storage.ErrNotFound
			}

			if !doc.Date.IsZero() {
				if err := tx.Delete(makeDateKey(doc.Date, doc.Id)); err != nil {
					return err
				}
			}
			if err := tx.Delete(makeTypeKey(doc.DocumentType, doc.Id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetDocuments retrieves multiple documents by their IDs.
// Missing documents are skipped without error.
func (r *DocumentRepository) GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error) {
	results := make([]*core.Document, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := r.readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FetchAll retrieves every stored document.
func (r *DocumentRepository) FetchAll(ctx context.Context) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FetchFiltered retrieves documents matching the pushed-down filter.
// Date bounds use the date index, type constraints use the type index,
// and remaining predicates are applied in-memory.
func (r *DocumentRepository) FetchFiltered(ctx context.Context, filter *storage.Filter) ([]*core.Document, error) {
	if filter.Empty() {
		return r.FetchAll(ctx)
	}

	var candidates []*core.Document
	var err error
	switch {
	case filter.Start != nil || filter.End != nil:
		candidates, err = r.fetchByDateRange(filter.Start, filter.End)
	case len(filter.DocumentTypes) > 0:
		candidates, err = r.fetchByTypes(filter.DocumentTypes)
	default:
		candidates, err = r.FetchAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	results := make([]*core.Document, 0, len(candidates))
	for _, doc := range candidates {
		if matchesFilter(doc, filter) {
			results = append(results, doc)
		}
	}
	return results, nil
}

// UpdateSearchVector stores an embedding vector for a document.
func (r *DocumentRepository) UpdateSearchVector(ctx context.Context, id core.ID, vector []float32) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		doc.SearchVector = vector
		doc.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readDocument reads and unmarshals a document inside a transaction.
// Returns nil (no error) when the key does not exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// fetchByDateRange walks the date index between the given bounds.
func (r *DocumentRepository) fetchByDateRange(start, end *time.Time) ([]*core.Document, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentDatePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		seekKey := []byte(documentDatePrefix)
		if start != nil {
			seekKey = makePartialDateKey(*start)
		}

		prefixLen := len(documentDatePrefix)
		for iter.Seek(seekKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < prefixLen+16 {
				continue
			}
			ts := int64(binary.BigEndian.Uint64(key[prefixLen : prefixLen+8]))
			if end != nil && ts > end.UnixMicro() {
				break
			}
			err := iter.Item().Value(func(val []byte) error {
				id, err := storage.UnmarshalID(val)
				if err != nil {
					return err
				}
				ids = append(ids, id)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return r.GetDocuments(context.Background(), ids...)
}

// fetchByTypes walks the type index for each requested type.
func (r *DocumentRepository) fetchByTypes(types []string) ([]*core.Document, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, docType := range types {
			prefix := makePartialTypeKey(docType)
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			iter := tx.NewIterator(opts)

			for iter.Rewind(); iter.Valid(); iter.Next() {
				if !bytes.HasPrefix(iter.Item().Key(), prefix) {
					break
				}
				err := iter.Item().Value(func(val []byte) error {
					id, err := storage.UnmarshalID(val)
					if err != nil {
						return err
					}
					ids = append(ids, id)
					return nil
				})
				if err != nil {
					iter.Close()
					return err
				}
			}
			iter.Close()
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	return r.GetDocuments(context.Background(), ids...)
}

// matchesFilter applies the in-memory remainder of a pushed-down filter.
func matchesFilter(doc *core.Document, filter *storage.Filter) bool {
	if filter.Start != nil || filter.End != nil {
		if doc.Date.IsZero() {
			return false
		}
		if filter.Start != nil && doc.Date.Before(*filter.Start) {
			return false
		}
		if filter.End != nil && doc.Date.After(*filter.End) {
			return false
		}
	}

	if len(filter.DocumentTypes) > 0 && !slices.Contains(filter.DocumentTypes, doc.DocumentType) {
		return false
	}

	if filter.MinAmount != nil || filter.MaxAmount != nil {
		if !doc.HasAmount {
			return false
		}
		if filter.MinAmount != nil && doc.TotalAmount < *filter.MinAmount {
			return false
		}
		if filter.MaxAmount != nil && doc.TotalAmount > *filter.MaxAmount {
			return false
		}
	}

	return true
}
