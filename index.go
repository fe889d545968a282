package ruvector

import (
	"context"
	"time"

	"github.com/Wirasm/ruvector/embedding"
	"github.com/Wirasm/ruvector/hnsw"
	"github.com/Wirasm/ruvector/metadata"
)

// SearchResult is a single enriched search hit. Score follows the configured
// metric: lower is closer for all built-in metrics.
type SearchResult struct {
	ID       uint64
	Score    float32
	Text     string
	Metadata metadata.Document
}

// Index couples an embedder to a vector store and keeps the id to text
// side-mapping consistent with the store's identifiers.
//
// An Index is a single mutable unit: Insert, Delete, and Clear require
// exclusive access, while Search, Get, and Len may run concurrently with
// each other but not with a mutation in progress. Callers needing concurrent
// access must coordinate externally.
type Index struct {
	name     string
	embedder embedding.Embedder
	store    VectorStore
	texts    map[uint64]string
	config   Config

	logger  *Logger
	metrics MetricsCollector
}

// New creates an index that embeds with embedder and stores vectors in a
// store built from config. The store dimension is fixed to the embedder's
// output dimension.
func New(name string, embedder embedding.Embedder, config Config, optFns ...Option) (*Index, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	o := applyOptions(optFns)

	store := o.store
	if store == nil {
		s, err := hnsw.New(embedder.Dimension(), func(ho *hnsw.Options) {
			ho.Metric = config.Metric
			ho.M = config.M
			ho.EFConstruction = config.EFConstruction
			ho.MaxElements = config.MaxElements
		})
		if err != nil {
			return nil, &ErrIndexCreation{cause: err}
		}
		store = s
	} else if store.Dimension() != embedder.Dimension() {
		return nil, &ErrIndexCreation{cause: &ErrDimensionMismatch{
			Expected: embedder.Dimension(),
			Actual:   store.Dimension(),
		}}
	}

	return &Index{
		name:     name,
		embedder: embedder,
		store:    store,
		texts:    make(map[uint64]string),
		config:   config,
		logger:   o.logger.WithName(name),
		metrics:  o.metricsCollector,
	}, nil
}

// NewWithDefaults creates an index with DefaultConfig.
func NewWithDefaults(name string, embedder embedding.Embedder, optFns ...Option) (*Index, error) {
	return New(name, embedder, DefaultConfig(), optFns...)
}

// Name returns the display name.
func (idx *Index) Name() string {
	return idx.name
}

// Dimension returns the fixed vector dimension.
func (idx *Index) Dimension() int {
	return idx.store.Dimension()
}

// Config returns the construction parameters.
func (idx *Index) Config() Config {
	return idx.config
}

// Len returns the store's current element count.
func (idx *Index) Len() int {
	return idx.store.Len()
}

// IsEmpty reports whether the index holds no elements.
func (idx *Index) IsEmpty() bool {
	return idx.Len() == 0
}

// Insert embeds text and stores it. Embedding failures propagate unchanged.
func (idx *Index) Insert(ctx context.Context, text string, md metadata.Document) (uint64, error) {
	v, err := idx.embedder.EmbedOne(ctx, text)
	if err != nil {
		return 0, err
	}

	return idx.InsertWithEmbedding(ctx, text, v, md)
}

// InsertWithEmbedding stores text under a precomputed vector and returns the
// store-assigned identifier.
func (idx *Index) InsertWithEmbedding(ctx context.Context, text string, v []float32, md metadata.Document) (uint64, error) {
	start := time.Now()

	id, err := idx.insertWithEmbedding(text, v, md)

	idx.metrics.RecordInsert(time.Since(start), err)
	idx.logger.LogInsert(ctx, id, len(v), err)

	return id, err
}

func (idx *Index) insertWithEmbedding(text string, v []float32, md metadata.Document) (uint64, error) {
	if len(v) != idx.store.Dimension() {
		return 0, &ErrDimensionMismatch{Expected: idx.store.Dimension(), Actual: len(v)}
	}

	id, err := idx.store.Insert(hnsw.Entry{Vector: v, Metadata: md})
	if err != nil {
		return 0, storeError("insert", err)
	}

	idx.texts[id] = text

	return id, nil
}

// InsertBatch embeds all texts and stores them, returning identifiers in
// input order. Embedding failures propagate unchanged.
func (idx *Index) InsertBatch(ctx context.Context, texts []string) ([]uint64, error) {
	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	return idx.InsertBatchWithEmbeddings(ctx, texts, vectors)
}

// InsertBatchWithEmbeddings stores texts under precomputed vectors. The
// counts must match and every vector must have the store dimension; both are
// checked before any store mutation. If the store fails mid-batch, the
// entries it already accepted are deleted again so the store and the text
// mapping stay consistent.
func (idx *Index) InsertBatchWithEmbeddings(ctx context.Context, texts []string, vectors [][]float32) ([]uint64, error) {
	start := time.Now()

	ids, err := idx.insertBatchWithEmbeddings(texts, vectors)

	idx.metrics.RecordBatchInsert(len(texts), time.Since(start), err)
	idx.logger.LogBatchInsert(ctx, len(texts), err)

	return ids, err
}

func (idx *Index) insertBatchWithEmbeddings(texts []string, vectors [][]float32) ([]uint64, error) {
	if len(texts) != len(vectors) {
		return nil, &ErrDimensionMismatch{Expected: len(texts), Actual: len(vectors)}
	}

	dim := idx.store.Dimension()

	entries := make([]hnsw.Entry, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
		}
		entries[i] = hnsw.Entry{Vector: v}
	}

	ids, err := idx.store.InsertBatch(entries)
	if err != nil {
		// Compensating deletes: undo the entries the store already accepted
		// so a mid-batch failure leaves no orphaned vectors.
		for _, id := range ids {
			idx.store.Delete(id)
		}
		return nil, storeError("insert_batch", err)
	}

	for i, id := range ids {
		idx.texts[id] = texts[i]
	}

	return ids, nil
}

// Search embeds the query and returns up to k enriched results in ranking
// order. Embedding failures propagate unchanged.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	v, err := idx.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	return idx.SearchWithEmbedding(ctx, v, k)
}

// SearchWithEmbedding returns up to k results for a precomputed query
// vector. Store hits whose text entry is missing are silently dropped.
func (idx *Index) SearchWithEmbedding(ctx context.Context, v []float32, k int) ([]SearchResult, error) {
	start := time.Now()

	results, err := idx.searchWithEmbedding(v, k)

	idx.metrics.RecordSearch(k, time.Since(start), err)
	idx.logger.LogSearch(ctx, k, len(results), err)

	return results, err
}

func (idx *Index) searchWithEmbedding(v []float32, k int) ([]SearchResult, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}

	if len(v) != idx.store.Dimension() {
		return nil, &ErrDimensionMismatch{Expected: idx.store.Dimension(), Actual: len(v)}
	}

	// Search breadth 2k improves recall without an extra tuning parameter.
	hits, err := idx.store.KNNSearch(v, k, 2*k)
	if err != nil {
		return nil, storeError("search", err)
	}

	return idx.enrich(hits, k, nil), nil
}

// SearchFiltered embeds the query and returns up to k results whose metadata
// matches the predicate.
func (idx *Index) SearchFiltered(ctx context.Context, query string, k int, pred metadata.Predicate) ([]SearchResult, error) {
	v, err := idx.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	return idx.SearchFilteredWithEmbedding(ctx, v, k, pred)
}

// SearchFilteredWithEmbedding filters oversampled candidates with pred and
// truncates to k. Filtering is approximate: candidates are drawn from a 4k
// sample, so fewer than k results may survive; there is no retry with a
// larger sample. Candidates without metadata never pass a non-nil predicate.
func (idx *Index) SearchFilteredWithEmbedding(ctx context.Context, v []float32, k int, pred metadata.Predicate) ([]SearchResult, error) {
	start := time.Now()

	results, err := idx.searchFilteredWithEmbedding(v, k, pred)

	idx.metrics.RecordSearch(k, time.Since(start), err)
	idx.logger.LogSearch(ctx, k, len(results), err)

	return results, err
}

func (idx *Index) searchFilteredWithEmbedding(v []float32, k int, pred metadata.Predicate) ([]SearchResult, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}

	if len(v) != idx.store.Dimension() {
		return nil, &ErrDimensionMismatch{Expected: idx.store.Dimension(), Actual: len(v)}
	}

	hits, err := idx.store.KNNSearch(v, 4*k, 4*k)
	if err != nil {
		return nil, storeError("search", err)
	}

	return idx.enrich(hits, k, pred), nil
}

// enrich zips store hits with the text side-mapping, applies the optional
// predicate, and truncates to k in ranking order.
func (idx *Index) enrich(hits []hnsw.Result, k int, pred metadata.Predicate) []SearchResult {
	results := make([]SearchResult, 0, min(k, len(hits)))

	for _, hit := range hits {
		if len(results) == k {
			break
		}

		text, ok := idx.texts[hit.ID]
		if !ok {
			continue
		}

		if pred != nil && (hit.Metadata == nil || !pred(hit.Metadata)) {
			continue
		}

		results = append(results, SearchResult{
			ID:       hit.ID,
			Score:    hit.Distance,
			Text:     text,
			Metadata: hit.Metadata,
		})
	}

	return results
}

// Get returns the stored text and vector for id. The third return is false
// when either the text entry or the store entry is absent.
func (idx *Index) Get(id uint64) (string, []float32, bool) {
	text, ok := idx.texts[id]
	if !ok {
		return "", nil, false
	}

	entry, ok := idx.store.Get(id)
	if !ok {
		return "", nil, false
	}

	return text, entry.Vector, true
}

// Delete removes id from the store and, only if the store confirms the
// removal, from the text mapping. It reports whether a removal occurred.
func (idx *Index) Delete(id uint64) bool {
	start := time.Now()

	deleted := idx.store.Delete(id)
	if deleted {
		delete(idx.texts, id)
	}

	idx.metrics.RecordDelete(time.Since(start))
	idx.logger.LogDelete(context.Background(), id, deleted)

	return deleted
}

// Clear empties both the store and the text mapping.
func (idx *Index) Clear() {
	idx.store.Clear()
	idx.texts = make(map[uint64]string)
}
