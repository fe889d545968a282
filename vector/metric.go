package vector

import "fmt"

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	// MetricL2 selects Euclidean distance.
	MetricL2 Metric = iota
	// MetricCosine selects cosine distance (1 - cosine similarity).
	MetricCosine
	// MetricDot selects negated inner product.
	MetricDot
	// MetricL1 selects Manhattan distance.
	MetricL1
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricCosine:
		return "Cosine"
	case MetricDot:
		return "Dot"
	case MetricL1:
		return "L1"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
// All provided functions treat smaller values as closer.
type Func func(a, b []float32) (float32, error)

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return L2Distance, nil
	case MetricCosine:
		return CosineDistance, nil
	case MetricDot:
		return InnerProductDistance, nil
	case MetricL1:
		return L1Distance, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
