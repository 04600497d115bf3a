package scandex

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/scandex/core"
)

func TestNewDatabase(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "scandex"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.NotNil(t, db.DocumentRepository())

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	searcher.Close()

	pipeline, err := db.NewIngestionPipeline()
	require.NoError(t, err)
	pipeline.Release()
}

func TestDatabaseInMemory(t *testing.T) {
	db, err := NewDatabase("", WithInMemoryStorage())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	added, err := db.DocumentRepository().AddDocuments(ctx, &core.Document{
		OcrText:      "garage parking receipt",
		DocumentType: "receipt",
		Date:         time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, added, 1)

	fetched, err := db.DocumentRepository().GetDocument(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "garage parking receipt", fetched.OcrText)
}

func TestDatabaseCloseIsFinal(t *testing.T) {
	db, err := NewDatabase("", WithInMemoryStorage())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.DocumentRepository().FetchAll(context.Background())
	assert.Error(t, err)
}
