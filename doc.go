// Package ruvector provides a vector similarity search layer: it couples an
// embedding generator to an approximate nearest neighbor store, keeps the
// id to text side-mapping consistent with the store, and exposes insert,
// search, filtered search, delete, and RAG prompt assembly.
//
// The quickest way to an index is the builder:
//
//	idx, err := ruvector.NewBuilder("docs").
//	    Embedder(embedder).
//	    Cosine().
//	    M(16).
//	    Build()
//
// Insert and search go through the embedder, or take precomputed vectors via
// the WithEmbedding variants:
//
//	id, err := idx.Insert(ctx, "the text to index", nil)
//	results, err := idx.Search(ctx, "a query", 5)
//
// For retrieval-augmented generation, wrap the index in a pipeline:
//
//	rag, err := ruvector.NewRAGPipeline(idx, 3)
//	prompt, err := rag.FormatContext(ctx, "what does the doc say?")
package ruvector
