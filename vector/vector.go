package vector

import (
	"fmt"
	"math"
)

// ErrDimensionMismatch indicates that two vectors have different lengths.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func checkDims(a, b []float32) error {
	if len(a) != len(b) {
		return &ErrDimensionMismatch{Expected: len(a), Actual: len(b)}
	}
	return nil
}

// Dot calculates the dot product of two vectors.
func Dot(a, b []float32) (float32, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum), nil
}

// InnerProductDistance calculates the negated dot product of two vectors.
// Smaller values indicate higher similarity, consistent with the other
// distance functions. Dot is the companion for callers that sort descending.
func InnerProductDistance(a, b []float32) (float32, error) {
	d, err := Dot(a, b)
	if err != nil {
		return 0, err
	}
	return -d, nil
}

// L2Distance calculates the Euclidean distance between two vectors.
// The result is always >= 0 and exactly 0 for identical vectors.
func L2Distance(a, b []float32) (float32, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum)), nil
}

// L1Distance calculates the Manhattan distance between two vectors.
func L1Distance(a, b []float32) (float32, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return float32(sum), nil
}

// CosineDistance calculates 1 minus the cosine similarity of two vectors.
// If either vector has zero norm the cosine is undefined; this implementation
// returns 1 (maximally dissimilar) instead of propagating NaN into ranking.
func CosineDistance(a, b []float32) (float32, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1, nil
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb))), nil
}

// CosineSimilarity calculates the cosine similarity of two vectors,
// defined as 1 - CosineDistance.
func CosineSimilarity(a, b []float32) (float32, error) {
	d, err := CosineDistance(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - d, nil
}

// Normalize returns a unit-length copy of v. A zero-norm vector is returned
// unchanged; this is a deliberate no-op, not a fault.
func Normalize(v []float32) []float32 {
	n := Norm(v)
	if n == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i := range v {
		out[i] = v[i] / n
	}
	return out
}

// Add returns the elementwise sum of two vectors.
func Add(a, b []float32) ([]float32, error) {
	if err := checkDims(a, b); err != nil {
		return nil, err
	}
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out, nil
}

// Sub returns the elementwise difference of two vectors.
func Sub(a, b []float32) ([]float32, error) {
	if err := checkDims(a, b); err != nil {
		return nil, err
	}
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out, nil
}

// Scale returns v multiplied by a scalar. There is no length constraint.
func Scale(v []float32, s float32) []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = v[i] * s
	}
	return out
}

// Avg2 returns the elementwise average of two vectors.
func Avg2(a, b []float32) ([]float32, error) {
	if err := checkDims(a, b); err != nil {
		return nil, err
	}
	out := make([]float32, len(a))
	for i := range a {
		out[i] = (a[i] + b[i]) / 2
	}
	return out, nil
}

// Dims returns the element count of v as a signed 32-bit value.
// Counts beyond math.MaxInt32 saturate rather than overflow.
func Dims(v []float32) int32 {
	if len(v) > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(len(v))
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}
