package hnsw

// LevelStats summarizes one layer of the graph.
type LevelStats struct {
	Nodes       int
	Connections int
}

// Stats summarizes the graph shape.
type Stats struct {
	Dimension  int
	Live       int
	Tombstoned int
	MaxLevel   int
	Levels     []LevelStats
}

// Stats returns statistics about the graph.
func (h *Index) Stats() Stats {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	s := Stats{
		Dimension:  h.dimension,
		Live:       h.lenLocked(),
		Tombstoned: int(h.tombstones.GetCardinality()),
		MaxLevel:   h.maxLevel,
		Levels:     make([]LevelStats, h.maxLevel+1),
	}

	for _, node := range h.nodes[1:] {
		if node.Layer <= h.maxLevel {
			s.Levels[node.Layer].Nodes++
		}

		for level := min(node.Layer, h.maxLevel); level >= 0; level-- {
			if level < len(node.Connections) {
				s.Levels[level].Connections += len(node.Connections[level])
			}
		}
	}

	return s
}
