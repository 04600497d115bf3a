package reembed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/scandex/core"
)

func makeDocs(n int) []*core.Document {
	docs := make([]*core.Document, n)
	for i := range docs {
		docs[i] = &core.Document{Id: core.ID(i + 1)}
	}
	return docs
}

func TestForEachBatch_SplitsEvenly(t *testing.T) {
	var sizes []int
	err := forEachBatch(context.Background(), makeDocs(10), 5, func(batch []*core.Document) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 5}, sizes)
}

func TestForEachBatch_PartialLastBatch(t *testing.T) {
	var sizes []int
	err := forEachBatch(context.Background(), makeDocs(7), 3, func(batch []*core.Document) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 1}, sizes)
}

func TestForEachBatch_Empty(t *testing.T) {
	calls := 0
	err := forEachBatch(context.Background(), nil, 3, func([]*core.Document) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestForEachBatch_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := forEachBatch(context.Background(), makeDocs(9), 3, func([]*core.Document) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestForEachBatch_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := forEachBatch(ctx, makeDocs(9), 3, func([]*core.Document) error {
		calls++
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestForEachBatch_DefaultsBatchSize(t *testing.T) {
	var sizes []int
	err := forEachBatch(context.Background(), makeDocs(150), 0, func(batch []*core.Document) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{DefaultBatchSize, 50}, sizes)
}
