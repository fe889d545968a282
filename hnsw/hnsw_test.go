package hnsw

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/Wirasm/ruvector/metadata"
	"github.com/Wirasm/ruvector/testutil"
	"github.com/Wirasm/ruvector/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T, dimension int, optFns ...func(o *Options)) *Index {
	t.Helper()

	seed := int64(42)
	fns := append([]func(o *Options){func(o *Options) {
		o.RandomSeed = &seed
	}}, optFns...)

	idx, err := New(dimension, fns...)
	require.NoError(t, err)

	return idx
}

func TestNew(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		idx, err := New(4)
		require.NoError(t, err)
		assert.Equal(t, 4, idx.Dimension())
		assert.Equal(t, 0, idx.Len())
	})

	t.Run("InvalidDimension", func(t *testing.T) {
		_, err := New(0)
		assert.Error(t, err)
	})

	t.Run("UnknownMetric", func(t *testing.T) {
		_, err := New(4, func(o *Options) {
			o.Metric = vector.Metric(99)
		})
		assert.Error(t, err)
	})

	t.Run("TinyMIsRaised", func(t *testing.T) {
		idx, err := New(4, func(o *Options) {
			o.M = 1
		})
		require.NoError(t, err)
		assert.Equal(t, 2, idx.opts.M)
	})
}

func TestInsertAndSearch(t *testing.T) {
	idx := seeded(t, 3)

	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0.9, 0.1, 0},
	}

	ids := make([]uint64, len(vectors))
	for i, v := range vectors {
		id, err := idx.Insert(Entry{Vector: v})
		require.NoError(t, err)
		ids[i] = id
	}

	assert.Equal(t, []uint64{1, 2, 3, 4}, ids)
	assert.Equal(t, 4, idx.Len())

	results, err := idx.KNNSearch([]float32{1, 0, 0}, 2, 16)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ids[0], results[0].ID)
	assert.Equal(t, ids[3], results[1].ID)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
}

func TestSmallM(t *testing.T) {
	// With M=2 the geometric level generator regularly assigns layers above
	// M; inserts must still work when a node's top layer exceeds the
	// connection limit.
	idx := seeded(t, 8, func(o *Options) {
		o.M = 2
	})

	rng := testutil.NewRNG(7)

	for _, v := range rng.UniformVectors(500, 8) {
		_, err := idx.Insert(Entry{Vector: v})
		require.NoError(t, err)
	}

	assert.Equal(t, 500, idx.Len())

	results, err := idx.KNNSearch(rng.UniformVectors(1, 8)[0], 5, 32)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestInsertRejectsAssignedID(t *testing.T) {
	idx := seeded(t, 2)

	id := uint64(7)
	_, err := idx.Insert(Entry{ID: &id, Vector: []float32{1, 2}})
	assert.ErrorIs(t, err, ErrAssignedID)
}

func TestInsertDimensionMismatch(t *testing.T) {
	idx := seeded(t, 3)

	_, err := idx.Insert(Entry{Vector: []float32{1, 2}})

	var dm *vector.ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)
}

func TestMaxElements(t *testing.T) {
	idx := seeded(t, 2, func(o *Options) {
		o.MaxElements = 2
	})

	_, err := idx.Insert(Entry{Vector: []float32{1, 0}})
	require.NoError(t, err)
	_, err = idx.Insert(Entry{Vector: []float32{0, 1}})
	require.NoError(t, err)

	_, err = idx.Insert(Entry{Vector: []float32{1, 1}})
	assert.ErrorIs(t, err, ErrMaxElements)
}

func TestInsertBatch(t *testing.T) {
	idx := seeded(t, 2)

	ids, err := idx.InsertBatch([]Entry{
		{Vector: []float32{1, 0}},
		{Vector: []float32{0, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)

	// A bad entry mid-batch reports the ids inserted before the failure.
	ids, err = idx.InsertBatch([]Entry{
		{Vector: []float32{1, 1}},
		{Vector: []float32{1, 2, 3}},
	})
	require.Error(t, err)
	assert.Equal(t, []uint64{3}, ids)
}

func TestGet(t *testing.T) {
	idx := seeded(t, 2)

	doc := metadata.Document{"lang": metadata.String("go")}
	id, err := idx.Insert(Entry{Vector: []float32{1, 2}, Metadata: doc})
	require.NoError(t, err)

	entry, ok := idx.Get(id)
	require.True(t, ok)
	require.NotNil(t, entry.ID)
	assert.Equal(t, id, *entry.ID)
	assert.Equal(t, []float32{1, 2}, entry.Vector)
	assert.Equal(t, "go", entry.Metadata["lang"].S)

	// Returned vector is a copy.
	entry.Vector[0] = 99
	again, _ := idx.Get(id)
	assert.Equal(t, []float32{1, 2}, again.Vector)

	_, ok = idx.Get(0)
	assert.False(t, ok)
	_, ok = idx.Get(42)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	idx := seeded(t, 2)

	id1, err := idx.Insert(Entry{Vector: []float32{1, 0}})
	require.NoError(t, err)
	id2, err := idx.Insert(Entry{Vector: []float32{0, 1}})
	require.NoError(t, err)

	assert.True(t, idx.Delete(id1))
	assert.False(t, idx.Delete(id1))
	assert.False(t, idx.Delete(999))
	assert.Equal(t, 1, idx.Len())

	_, ok := idx.Get(id1)
	assert.False(t, ok)

	results, err := idx.KNNSearch([]float32{1, 0}, 2, 16)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id2, results[0].ID)
}

func TestClear(t *testing.T) {
	idx := seeded(t, 2)

	_, err := idx.Insert(Entry{Vector: []float32{1, 0}})
	require.NoError(t, err)

	idx.Clear()
	assert.Equal(t, 0, idx.Len())

	id, err := idx.Insert(Entry{Vector: []float32{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := seeded(t, 2)

	results, err := idx.KNNSearch([]float32{1, 0}, 5, 16)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchValidation(t *testing.T) {
	idx := seeded(t, 2)

	_, err := idx.KNNSearch([]float32{1, 2, 3}, 1, 16)
	var dm *vector.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)

	_, err = idx.KNNSearch([]float32{1, 2}, 0, 16)
	assert.Error(t, err)
}

func TestRecall(t *testing.T) {
	const (
		num        = 1000
		dimensions = 16
		k          = 10
		queries    = 20
	)

	idx := seeded(t, dimensions)

	rng := testutil.NewRNG(1)
	dataset := rng.UniformVectors(num, dimensions)

	for _, v := range dataset {
		_, err := idx.Insert(Entry{Vector: v})
		require.NoError(t, err)
	}

	var total float64
	for range queries {
		query := rng.UniformVectors(1, dimensions)[0]

		truth, err := testutil.ExactTopK(query, dataset, k, vector.L2Distance)
		require.NoError(t, err)

		results, err := idx.KNNSearch(query, k, 100)
		require.NoError(t, err)

		approx := make([]testutil.SearchResult, len(results))
		for i, r := range results {
			// Assigned ids start at 1, dataset indices at 0.
			approx[i] = testutil.SearchResult{ID: r.ID - 1, Distance: r.Distance}
		}

		total += testutil.ComputeRecall(truth, approx)
	}

	assert.GreaterOrEqual(t, total/queries, 0.85)
}

func TestBruteSearch(t *testing.T) {
	idx := seeded(t, 2)

	docs := []metadata.Document{
		{"kind": metadata.String("a")},
		{"kind": metadata.String("b")},
		{"kind": metadata.String("a")},
	}
	vectors := [][]float32{{1, 0}, {0.9, 0}, {0, 1}}

	for i := range vectors {
		_, err := idx.Insert(Entry{Vector: vectors[i], Metadata: docs[i]})
		require.NoError(t, err)
	}

	t.Run("Exact", func(t *testing.T) {
		results, err := idx.BruteSearch([]float32{1, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, uint64(1), results[0].ID)
		assert.Equal(t, uint64(2), results[1].ID)
	})

	t.Run("Filtered", func(t *testing.T) {
		filter := metadata.NewFilterSet(metadata.Eq("kind", metadata.String("a"))).Predicate()

		results, err := idx.BruteSearch([]float32{1, 0}, 3, filter)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, uint64(1), results[0].ID)
		assert.Equal(t, uint64(3), results[1].ID)
	})
}

func TestGobRoundtrip(t *testing.T) {
	idx := seeded(t, 3, func(o *Options) {
		o.Metric = vector.MetricCosine
	})

	for _, v := range [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		_, err := idx.Insert(Entry{Vector: v, Metadata: metadata.Document{"n": metadata.Int(1)}})
		require.NoError(t, err)
	}
	require.True(t, idx.Delete(2))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(idx))

	var restored Index
	require.NoError(t, gob.NewDecoder(&buf).Decode(&restored))

	assert.Equal(t, idx.Dimension(), restored.Dimension())
	assert.Equal(t, idx.Len(), restored.Len())

	_, ok := restored.Get(2)
	assert.False(t, ok)

	results, err := restored.KNNSearch([]float32{1, 0, 0}, 1, 16)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(1), results[0].ID)

	// Restored index accepts new inserts.
	_, err = restored.Insert(Entry{Vector: []float32{0.5, 0.5, 0}})
	require.NoError(t, err)
}

func TestStats(t *testing.T) {
	idx := seeded(t, 2)

	for _, v := range [][]float32{{1, 0}, {0, 1}, {1, 1}} {
		_, err := idx.Insert(Entry{Vector: v})
		require.NoError(t, err)
	}
	idx.Delete(1)

	s := idx.Stats()
	assert.Equal(t, 2, s.Live)
	assert.Equal(t, 1, s.Tombstoned)
	assert.Equal(t, 2, s.Dimension)
	assert.Len(t, s.Levels, s.MaxLevel+1)
}
