// Package embedding defines the embedding generator contract and provides
// implementations: an OpenAI API client and a deterministic hash embedder for
// tests and offline use.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when asked to embed an empty string.
var ErrEmptyText = errors.New("embedding: cannot embed empty text")

// Embedder maps text to fixed-dimension float vectors. Implementations must
// be safe for concurrent use.
type Embedder interface {
	// Dimension returns the fixed output dimension.
	Dimension() int

	// EmbedOne embeds a single text.
	EmbedOne(ctx context.Context, text string) ([]float32, error)

	// Embed embeds texts in order; the result has one vector per input text
	// at the same position.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
