package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Compile time check to ensure OpenAIEmbedder satisfies the Embedder interface.
var _ Embedder = (*OpenAIEmbedder)(nil)

// OpenAIOptions represents the options for configuring the OpenAI embedder.
type OpenAIOptions struct {
	// Model selects the embedding model.
	Model openai.EmbeddingModel

	// Dimension overrides the model's default output dimension. Zero keeps
	// the default for the selected model.
	Dimension int

	// RequestsPerSecond limits the API request rate. Zero disables limiting.
	RequestsPerSecond float64

	// MaxConcurrency caps in-flight batch requests.
	MaxConcurrency int

	// BatchSize is the number of texts sent per API request.
	BatchSize int
}

// DefaultOpenAIOptions holds the default OpenAI embedder configuration.
var DefaultOpenAIOptions = OpenAIOptions{
	Model:             openai.SmallEmbedding3,
	RequestsPerSecond: 5,
	MaxConcurrency:    4,
	BatchSize:         64,
}

// OpenAIEmbedder generates embeddings via the OpenAI API.
type OpenAIEmbedder struct {
	client  *openai.Client
	opts    OpenAIOptions
	limiter *rate.Limiter
	dim     int
}

// NewOpenAIEmbedder creates an embedder backed by the given client.
func NewOpenAIEmbedder(client *openai.Client, optFns ...func(o *OpenAIOptions)) *OpenAIEmbedder {
	opts := DefaultOpenAIOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = DefaultOpenAIOptions.MaxConcurrency
	}

	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultOpenAIOptions.BatchSize
	}

	dim := opts.Dimension
	if dim == 0 {
		dim = modelDimension(opts.Model)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &OpenAIEmbedder{
		client:  client,
		opts:    opts,
		limiter: limiter,
		dim:     dim,
	}
}

func modelDimension(model openai.EmbeddingModel) int {
	switch model {
	case openai.LargeEmbedding3:
		return 3072
	default:
		return 1536
	}
}

// Dimension returns the embedding dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dim
}

// EmbedOne embeds a single text.
func (e *OpenAIEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vectors, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return vectors[0], nil
}

// Embed embeds texts in order, splitting the input into batches requested
// concurrently.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("embedding: text %d: %w", i, ErrEmptyText)
		}
	}

	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxConcurrency)

	for start := 0; start < len(texts); start += e.opts.BatchSize {
		end := min(start+e.opts.BatchSize, len(texts))

		g.Go(func() error {
			batch, err := e.request(gctx, texts[start:end])
			if err != nil {
				return err
			}

			copy(vectors[start:end], batch)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return vectors, nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := openai.EmbeddingRequest{
		Model: e.opts.Model,
		Input: texts,
	}
	if e.opts.Dimension > 0 {
		req.Dimensions = e.opts.Dimension
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedding: openai request: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		v := make([]float32, len(data.Embedding))
		copy(v, data.Embedding)

		if len(v) != e.dim {
			return nil, fmt.Errorf("embedding: model returned dimension %d, expected %d", len(v), e.dim)
		}

		vectors[i] = v
	}

	return vectors, nil
}
