package ruvector

import (
	"github.com/Wirasm/ruvector/hnsw"
)

// Compile time check to ensure the built-in store satisfies VectorStore.
var _ VectorStore = (*hnsw.Index)(nil)

// VectorStore is the capability the index needs from an approximate nearest
// neighbor store. The built-in implementation is hnsw.Index; alternative
// stores can be injected with WithStore.
type VectorStore interface {
	// Insert adds an entry and returns its assigned identifier.
	Insert(entry hnsw.Entry) (uint64, error)

	// InsertBatch inserts entries in order, returning identifiers positionally.
	// On failure it returns the identifiers assigned before the error.
	InsertBatch(entries []hnsw.Entry) ([]uint64, error)

	// KNNSearch returns up to k nearest neighbors, nearest first, exploring
	// a candidate list of at least efSearch.
	KNNSearch(q []float32, k, efSearch int) ([]hnsw.Result, error)

	// Get returns the entry stored under id, or false if absent.
	Get(id uint64) (hnsw.Entry, bool)

	// Delete removes id, reporting whether an element was removed.
	Delete(id uint64) bool

	// Clear removes all elements.
	Clear()

	// Len returns the number of live elements.
	Len() int

	// Dimension returns the fixed vector dimension.
	Dimension() int
}
