package hnsw

import (
	"fmt"

	"github.com/Wirasm/ruvector/internal/queue"
	"github.com/Wirasm/ruvector/metadata"
	"github.com/Wirasm/ruvector/vector"
)

// KNNSearch returns up to k live elements nearest to q, nearest first.
// efSearch bounds the candidate list explored on the bottom layer; values
// below k are raised to k.
func (h *Index) KNNSearch(q []float32, k, efSearch int) ([]Result, error) {
	if len(q) != h.dimension {
		return nil, &vector.ErrDimensionMismatch{Expected: h.dimension, Actual: len(q)}
	}

	if k < 1 {
		return nil, fmt.Errorf("hnsw: k must be positive, got %d", k)
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.lenLocked() == 0 {
		return []Result{}, nil
	}

	ep, err := h.descend(q, 0)
	if err != nil {
		return nil, err
	}

	top, err := h.searchLayer(q, ep, max(efSearch, k), 0)
	if err != nil {
		return nil, err
	}

	return h.collect(top, k), nil
}

// BruteSearch scans every live element and returns the exact k nearest,
// nearest first. A non-nil filter restricts results to matching metadata.
func (h *Index) BruteSearch(q []float32, k int, filter metadata.Predicate) ([]Result, error) {
	if len(q) != h.dimension {
		return nil, &vector.ErrDimensionMismatch{Expected: h.dimension, Actual: len(q)}
	}

	if k < 1 {
		return nil, fmt.Errorf("hnsw: k must be positive, got %d", k)
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	top := queue.NewMax(k + 1)

	for _, node := range h.nodes[1:] {
		if h.tombstones.Contains(uint64(node.ID)) {
			continue
		}

		if filter != nil && !filter(node.Metadata) {
			continue
		}

		d, err := h.distance(q, node.Vector)
		if err != nil {
			return nil, err
		}

		if top.Len() < k {
			top.Push(queue.Candidate{Node: node.ID, Distance: d})
			continue
		}

		if farthest, _ := top.Top(); d < farthest.Distance {
			top.Pop()
			top.Push(queue.Candidate{Node: node.ID, Distance: d})
		}
	}

	return h.collect(top, k), nil
}

// collect drains a max queue into results ordered nearest first, dropping the
// sentinel and tombstoned nodes and truncating to k.
func (h *Index) collect(top *queue.Queue, k int) []Result {
	reversed := make([]queue.Candidate, top.Len())
	for i := top.Len() - 1; i >= 0; i-- {
		reversed[i], _ = top.Pop()
	}

	results := make([]Result, 0, min(k, len(reversed)))

	for _, c := range reversed {
		if len(results) == k {
			break
		}

		if c.Node == 0 || h.tombstones.Contains(uint64(c.Node)) {
			continue
		}

		results = append(results, Result{
			ID:       uint64(c.Node),
			Distance: c.Distance,
			Metadata: h.nodes[c.Node].Metadata.Clone(),
		})
	}

	return results
}
