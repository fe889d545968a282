package ruvector

import (
	"github.com/Wirasm/ruvector/embedding"
	"github.com/Wirasm/ruvector/vector"
)

// NewBuilder creates an index builder with the given display name and the
// default configuration.
//
// The builder is immutable: each method returns a new builder with the
// updated configuration, so partially configured builders can be shared and
// forked safely.
//
// Example:
//
//	idx, err := ruvector.NewBuilder("docs").
//	    Embedder(embedder).
//	    Cosine().
//	    M(32).
//	    EFConstruction(200).
//	    Build()
func NewBuilder(name string) Builder {
	return Builder{
		name:   name,
		config: DefaultConfig(),
	}
}

// Builder is an immutable fluent builder for creating Index instances.
type Builder struct {
	name     string
	embedder embedding.Embedder
	config   Config
	optFns   []Option
}

// Embedder sets the embedding generator. Required.
func (b Builder) Embedder(e embedding.Embedder) Builder {
	b.embedder = e
	return b
}

// Cosine sets the distance metric to cosine distance. Default.
func (b Builder) Cosine() Builder {
	b.config.Metric = vector.MetricCosine
	return b
}

// L2 sets the distance metric to Euclidean distance.
func (b Builder) L2() Builder {
	b.config.Metric = vector.MetricL2
	return b
}

// DotProduct sets the distance metric to negated inner product.
func (b Builder) DotProduct() Builder {
	b.config.Metric = vector.MetricDot
	return b
}

// L1 sets the distance metric to Manhattan distance.
func (b Builder) L1() Builder {
	b.config.Metric = vector.MetricL1
	return b
}

// M sets the graph degree of the backing store.
// Default: 16. Recommended range: 12-48.
func (b Builder) M(m int) Builder {
	b.config.M = m
	return b
}

// EFConstruction sets the construction breadth of the backing store.
// Higher values improve graph quality but slow down inserts.
// Default: 100.
func (b Builder) EFConstruction(ef int) Builder {
	b.config.EFConstruction = ef
	return b
}

// MaxElements caps the number of live elements.
// Default: 100,000.
func (b Builder) MaxElements(n int) Builder {
	b.config.MaxElements = n
	return b
}

// Store injects a custom vector store; the config's store parameters are
// ignored in that case.
func (b Builder) Store(store VectorStore) Builder {
	b.optFns = append(b.optFns[:len(b.optFns):len(b.optFns)], WithStore(store))
	return b
}

// Logger sets the structured logger for operation tracing.
func (b Builder) Logger(l *Logger) Builder {
	b.optFns = append(b.optFns[:len(b.optFns):len(b.optFns)], WithLogger(l))
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b Builder) Metrics(mc MetricsCollector) Builder {
	b.optFns = append(b.optFns[:len(b.optFns):len(b.optFns)], WithMetricsCollector(mc))
	return b
}

// Build creates the Index. It fails with ErrEmbedderRequired if no embedder
// was supplied.
func (b Builder) Build() (*Index, error) {
	if b.embedder == nil {
		return nil, ErrEmbedderRequired
	}

	return New(b.name, b.embedder, b.config, b.optFns...)
}

// MustBuild creates the Index, panicking on error.
func (b Builder) MustBuild() *Index {
	idx, err := b.Build()
	if err != nil {
		panic(err)
	}
	return idx
}
