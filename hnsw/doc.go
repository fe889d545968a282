// Package hnsw implements a Hierarchical Navigable Small World graph for
// approximate nearest neighbor search.
//
// The graph assigns identifiers on insert, starting at 1. Node 0 is a
// sentinel entry point and never appears in results. Deletion is lazy: a
// deleted node is tombstoned and filtered out of results, but its links
// remain usable for traversal.
package hnsw
