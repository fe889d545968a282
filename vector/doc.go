// Package vector provides distance metrics and elementwise arithmetic for
// fixed-length float32 vectors.
//
// All pairwise functions validate that both operands have the same length and
// fail with *ErrDimensionMismatch otherwise. Accumulation happens in float64
// to keep results stable for long vectors; every function is pure and
// deterministic, so results are safe to cache and safe to compute in parallel.
package vector
