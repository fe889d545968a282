package ruvector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wirasm/ruvector/embedding"
	"github.com/Wirasm/ruvector/hnsw"
	"github.com/Wirasm/ruvector/metadata"
)

func newTestIndex(t *testing.T, optFns ...Option) *Index {
	t.Helper()

	idx, err := NewWithDefaults("test", embedding.NewHashEmbedder(256), optFns...)
	require.NoError(t, err)

	return idx
}

func TestNew(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		idx := newTestIndex(t)
		assert.Equal(t, "test", idx.Name())
		assert.Equal(t, 256, idx.Dimension())
		assert.Equal(t, DefaultConfig(), idx.Config())
		assert.True(t, idx.IsEmpty())
	})

	t.Run("NilEmbedder", func(t *testing.T) {
		_, err := NewWithDefaults("test", nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Metric = 99

		_, err := New("test", embedding.NewHashEmbedder(64), cfg)

		var ice *ErrIndexCreation
		require.ErrorAs(t, err, &ice)
	})

	t.Run("InjectedStore", func(t *testing.T) {
		store, err := hnsw.New(64)
		require.NoError(t, err)

		idx, err := NewWithDefaults("test", embedding.NewHashEmbedder(64), WithStore(store))
		require.NoError(t, err)
		assert.Equal(t, 64, idx.Dimension())
	})

	t.Run("InjectedStoreDimensionMismatch", func(t *testing.T) {
		store, err := hnsw.New(32)
		require.NoError(t, err)

		_, err = NewWithDefaults("test", embedding.NewHashEmbedder(64), WithStore(store))

		var ice *ErrIndexCreation
		require.ErrorAs(t, err, &ice)

		var dim *ErrDimensionMismatch
		require.ErrorAs(t, err, &dim)
		assert.Equal(t, 64, dim.Expected)
		assert.Equal(t, 32, dim.Actual)
	})
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	id, err := idx.Insert(ctx, "hello vector world", metadata.Document{"lang": metadata.String("en")})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, 1, idx.Len())

	text, v, ok := idx.Get(id)
	require.True(t, ok)
	assert.Equal(t, "hello vector world", text)
	assert.Len(t, v, idx.Dimension())

	_, _, ok = idx.Get(999)
	assert.False(t, ok)
}

func TestInsertWithEmbeddingRoundtrip(t *testing.T) {
	ctx := context.Background()

	idx, err := NewWithDefaults("test", embedding.NewHashEmbedder(4))
	require.NoError(t, err)

	v := []float32{0.1, 0.2, 0.3, 0.4}

	id, err := idx.InsertWithEmbedding(ctx, "exact text", v, nil)
	require.NoError(t, err)

	text, stored, ok := idx.Get(id)
	require.True(t, ok)
	assert.Equal(t, "exact text", text)
	assert.Equal(t, v, stored)
}

func TestInsertWithEmbeddingDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.InsertWithEmbedding(ctx, "short", make([]float32, 8), nil)

	var dim *ErrDimensionMismatch
	require.ErrorAs(t, err, &dim)
	assert.Equal(t, 256, dim.Expected)
	assert.Equal(t, 8, dim.Actual)
	assert.Zero(t, idx.Len())
}

func TestInsertBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("OrderPreserved", func(t *testing.T) {
		idx := newTestIndex(t)

		ids, err := idx.InsertBatch(ctx, []string{"first doc", "second doc", "third doc"})
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 3}, ids)
		assert.Equal(t, 3, idx.Len())

		text, _, ok := idx.Get(2)
		require.True(t, ok)
		assert.Equal(t, "second doc", text)
	})

	t.Run("CountMismatchFailsBeforeMutation", func(t *testing.T) {
		idx := newTestIndex(t)

		vectors, err := idx.embedder.Embed(ctx, []string{"only one"})
		require.NoError(t, err)

		_, err = idx.InsertBatchWithEmbeddings(ctx, []string{"one", "two"}, vectors)

		var dim *ErrDimensionMismatch
		require.ErrorAs(t, err, &dim)
		assert.Equal(t, 2, dim.Expected)
		assert.Equal(t, 1, dim.Actual)
		assert.Zero(t, idx.Len())
	})

	t.Run("VectorDimensionCheckedBeforeMutation", func(t *testing.T) {
		idx := newTestIndex(t)

		good, err := idx.embedder.EmbedOne(ctx, "good vector")
		require.NoError(t, err)

		_, err = idx.InsertBatchWithEmbeddings(ctx, []string{"a", "b"}, [][]float32{good, make([]float32, 8)})

		var dim *ErrDimensionMismatch
		require.ErrorAs(t, err, &dim)
		assert.Zero(t, idx.Len())
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		idx := newTestIndex(t)

		ids, err := idx.InsertBatch(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("NearestFirst", func(t *testing.T) {
		idx := newTestIndex(t)

		docs := []string{
			"the quick brown fox",
			"a lazy dog sleeps all day",
			"ships sail across the ocean",
		}
		_, err := idx.InsertBatch(ctx, docs)
		require.NoError(t, err)

		// Searching with the exact embedding of a stored text must rank that
		// text first at distance zero.
		v, err := idx.embedder.EmbedOne(ctx, docs[1])
		require.NoError(t, err)

		results, err := idx.SearchWithEmbedding(ctx, v, 3)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, docs[1], results[0].Text)
		assert.InDelta(t, 0.0, results[0].Score, 1e-5)

		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i].Score, results[i-1].Score)
		}
	})

	t.Run("ManyDocuments", func(t *testing.T) {
		idx := newTestIndex(t)

		texts := make([]string, 100)
		for i := range texts {
			texts[i] = "document number " + string(rune('a'+i%26)) + " about topic " + string(rune('a'+i%7))
		}
		_, err := idx.InsertBatch(ctx, texts)
		require.NoError(t, err)

		results, err := idx.Search(ctx, "document about topic a", 5)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), 5)
		require.NotEmpty(t, results)

		for i, r := range results {
			assert.NotEmpty(t, r.Text)
			if i > 0 {
				assert.GreaterOrEqual(t, r.Score, results[i-1].Score)
			}
		}
	})

	t.Run("InvalidK", func(t *testing.T) {
		idx := newTestIndex(t)
		_, err := idx.Search(ctx, "anything", 0)
		assert.ErrorIs(t, err, ErrInvalidK)
	})

	t.Run("QueryDimensionMismatch", func(t *testing.T) {
		idx := newTestIndex(t)

		_, err := idx.SearchWithEmbedding(ctx, make([]float32, 8), 3)

		var dim *ErrDimensionMismatch
		require.ErrorAs(t, err, &dim)
	})

	t.Run("EmptyIndex", func(t *testing.T) {
		idx := newTestIndex(t)

		results, err := idx.Search(ctx, "anything at all", 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("MissingTextDropped", func(t *testing.T) {
		idx := newTestIndex(t)

		id, err := idx.Insert(ctx, "orphaned entry", nil)
		require.NoError(t, err)

		// Simulate a store/mapping divergence: the vector exists but the text
		// entry is gone. Such hits are dropped, not surfaced half-empty.
		delete(idx.texts, id)

		results, err := idx.Search(ctx, "orphaned entry", 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSearchFiltered(t *testing.T) {
	ctx := context.Background()

	t.Run("PredicateApplied", func(t *testing.T) {
		idx := newTestIndex(t)

		_, err := idx.Insert(ctx, "red apples taste sweet", metadata.Document{"color": metadata.String("red")})
		require.NoError(t, err)
		_, err = idx.Insert(ctx, "green apples taste sour", metadata.Document{"color": metadata.String("green")})
		require.NoError(t, err)

		fs := metadata.NewFilterSet(metadata.Eq("color", metadata.String("green")))

		results, err := idx.SearchFiltered(ctx, "apples taste", 5, fs.Predicate())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "green apples taste sour", results[0].Text)
	})

	t.Run("RejectAllReturnsEmpty", func(t *testing.T) {
		idx := newTestIndex(t)

		_, err := idx.Insert(ctx, "some document", metadata.Document{"n": metadata.Int(1)})
		require.NoError(t, err)

		results, err := idx.SearchFiltered(ctx, "some document", 5, func(metadata.Document) bool { return false })
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("NoMetadataNeverMatches", func(t *testing.T) {
		idx := newTestIndex(t)

		_, err := idx.Insert(ctx, "bare document", nil)
		require.NoError(t, err)

		results, err := idx.SearchFiltered(ctx, "bare document", 5, func(metadata.Document) bool { return true })
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("InvalidK", func(t *testing.T) {
		idx := newTestIndex(t)
		_, err := idx.SearchFiltered(ctx, "anything", -1, nil)
		assert.ErrorIs(t, err, ErrInvalidK)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	id, err := idx.Insert(ctx, "short lived", nil)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())

	assert.True(t, idx.Delete(id))
	assert.Zero(t, idx.Len())

	_, _, ok := idx.Get(id)
	assert.False(t, ok)

	// Second delete of the same id is a no-op.
	assert.False(t, idx.Delete(id))
	assert.Zero(t, idx.Len())

	results, err := idx.Search(ctx, "short lived", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.InsertBatch(ctx, []string{"one doc", "two doc"})
	require.NoError(t, err)

	idx.Clear()
	assert.True(t, idx.IsEmpty())

	// Identifiers restart after a clear.
	id, err := idx.Insert(ctx, "fresh start", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestMetricsCollection(t *testing.T) {
	ctx := context.Background()

	mc := &BasicMetricsCollector{}
	idx := newTestIndex(t, WithMetricsCollector(mc))

	id, err := idx.Insert(ctx, "tracked document", nil)
	require.NoError(t, err)

	_, err = idx.InsertBatch(ctx, []string{"batch one", "batch two"})
	require.NoError(t, err)

	_, err = idx.Search(ctx, "tracked", 3)
	require.NoError(t, err)

	idx.Delete(id)

	// Failed inserts still count, with the error tallied separately.
	_, err = idx.InsertWithEmbedding(ctx, "bad", make([]float32, 3), nil)
	require.Error(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.InsertCount)
	assert.Equal(t, int64(1), stats.InsertErrors)
	assert.Equal(t, int64(1), stats.BatchInsertCount)
	assert.Equal(t, int64(2), stats.BatchInsertItems)
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(1), stats.DeleteCount)
}
