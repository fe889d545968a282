package ruvector

import "github.com/Wirasm/ruvector/vector"

// Config holds the vector store construction parameters. It is immutable
// after the index is built.
type Config struct {
	// Metric selects the distance function used for ranking.
	Metric vector.Metric

	// M is the graph degree of the backing store.
	M int

	// EFConstruction is the construction breadth of the backing store.
	EFConstruction int

	// MaxElements caps the number of live elements.
	MaxElements int
}

// DefaultConfig returns the default configuration: cosine distance, graph
// degree 16, construction breadth 100, capacity 100,000.
func DefaultConfig() Config {
	return Config{
		Metric:         vector.MetricCosine,
		M:              16,
		EFConstruction: 100,
		MaxElements:    100_000,
	}
}
