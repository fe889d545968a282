package ruvector

import (
	"context"
	"fmt"
	"strings"
)

// RAGPipeline wraps an Index with a fixed top-k for retrieval-augmented
// generation. It performs no validation of its own; all error conditions
// surface from the wrapped index.
type RAGPipeline struct {
	index *Index
	topK  int
}

// NewRAGPipeline creates a pipeline retrieving topK texts per query.
func NewRAGPipeline(index *Index, topK int) (*RAGPipeline, error) {
	if topK < 1 {
		return nil, ErrInvalidK
	}

	return &RAGPipeline{index: index, topK: topK}, nil
}

// Index returns the wrapped index.
func (p *RAGPipeline) Index() *Index {
	return p.index
}

// TopK returns the fixed retrieval depth.
func (p *RAGPipeline) TopK() int {
	return p.topK
}

// AddDocuments inserts texts via batch insert.
func (p *RAGPipeline) AddDocuments(ctx context.Context, texts []string) ([]uint64, error) {
	return p.index.InsertBatch(ctx, texts)
}

// Retrieve returns the texts of the top-k results for query, ranking order
// preserved. Scores and metadata are discarded.
func (p *RAGPipeline) Retrieve(ctx context.Context, query string) ([]string, error) {
	results, err := p.index.Search(ctx, query, p.topK)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}

	return texts, nil
}

// FormatContext renders the retrieved texts as a numbered context block
// followed by the query, producing a single prompt string.
func (p *RAGPipeline) FormatContext(ctx context.Context, query string) (string, error) {
	texts, err := p.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("Context:\n")
	for i, text := range texts {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, text)
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)

	return sb.String(), nil
}
