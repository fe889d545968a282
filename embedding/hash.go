package embedding

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/Wirasm/ruvector/vector"
)

// Compile time check to ensure HashEmbedder satisfies the Embedder interface.
var _ Embedder = (*HashEmbedder)(nil)

// HashEmbedder is a deterministic feature-hashing embedder: each token is
// hashed into a bucket with a hash-derived sign, and the result is L2
// normalized. It needs no model or network and always produces the same
// vector for the same text, which makes it useful for tests, examples, and
// offline smoke runs. It does not capture semantics.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash embedder with the given output dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension < 1 {
		dimension = 64
	}

	return &HashEmbedder{dim: dimension}
}

// Dimension returns the embedding dimension.
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// EmbedOne embeds a single text.
func (e *HashEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	v := make([]float32, e.dim)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()

		bucket := int(sum % uint64(e.dim))

		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}

		v[bucket] += sign
	}

	return vector.Normalize(v), nil
}

// Embed embeds texts in order.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	for i, text := range texts {
		v, err := e.EmbedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}

	return vectors, nil
}
