// Package metadata provides typed metadata documents and filtering for
// vector search results.
//
// Documents are small maps from string keys to typed values. The typed model
// keeps filtering fast and predictable: no reflection and no fmt-based
// stringification.
package metadata
