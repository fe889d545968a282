package ruvector

import (
	"errors"
	"fmt"

	"github.com/Wirasm/ruvector/vector"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("ruvector: k must be positive")

	// ErrEmbedderRequired is returned by the builder and constructor when no
	// embedder was supplied.
	ErrEmbedderRequired = errors.New("ruvector: embedder is required")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
// It is shared with the vector package so callers can match either layer
// with a single errors.As target.
type ErrDimensionMismatch = vector.ErrDimensionMismatch

// ErrIndexCreation indicates the backing vector store could not be
// constructed.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrIndexCreation struct {
	cause error
}

func (e *ErrIndexCreation) Error() string {
	return fmt.Sprintf("ruvector: index creation failed: %v", e.cause)
}

func (e *ErrIndexCreation) Unwrap() error { return e.cause }

// ErrStore wraps a failure from the vector store. The store error is
// rendered to a string and never inspected structurally by this layer.
type ErrStore struct {
	Op      string
	Message string
}

func (e *ErrStore) Error() string {
	return fmt.Sprintf("ruvector: store %s: %s", e.Op, e.Message)
}

func storeError(op string, err error) *ErrStore {
	return &ErrStore{Op: op, Message: err.Error()}
}
