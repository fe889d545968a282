package hnsw

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/Wirasm/ruvector/internal/queue"
	"github.com/Wirasm/ruvector/metadata"
	"github.com/Wirasm/ruvector/vector"
	"github.com/bits-and-blooms/bitset"
)

var (
	// ErrAssignedID is returned when an entry carries an identifier.
	// Identifiers are always assigned by the index.
	ErrAssignedID = errors.New("hnsw: entry ids are assigned by the index")

	// ErrMaxElements is returned when the index is at capacity.
	ErrMaxElements = errors.New("hnsw: index is full")
)

// Options represents the options for configuring the index.
type Options struct {
	// Metric selects the distance function used for all comparisons.
	Metric vector.Metric

	// M specifies the number of established connections for every new element
	// during construction. The range M=12-48 works for most use cases; higher
	// values suit high-dimensional data at high recall.
	M int

	// EFConstruction specifies the size of the dynamic candidate list during
	// construction. Larger values improve graph quality at the cost of slower
	// inserts.
	EFConstruction int

	// MaxElements caps the number of live elements in the index.
	MaxElements int

	// Heuristic indicates whether to use the neighbour selection heuristic
	// (true) or plain nearest-M pruning (false).
	Heuristic bool

	// RandomSeed fixes the layer generator for reproducible graphs.
	// Nil seeds from the clock.
	RandomSeed *int64
}

// DefaultOptions holds the default configuration for a new index.
var DefaultOptions = Options{
	Metric:         vector.MetricL2,
	M:              16,
	EFConstruction: 100,
	MaxElements:    100_000,
	Heuristic:      true,
}

// Entry is a single element to insert into the index.
type Entry struct {
	// ID must be nil on insert; the index assigns identifiers. Get returns
	// entries with the field populated.
	ID       *uint64
	Vector   []float32
	Metadata metadata.Document
}

// Result is a single search hit.
type Result struct {
	ID       uint64
	Distance float32
	Metadata metadata.Document
}

// Node represents a node in the graph. Fields are exported for encoding.
type Node struct {
	Connections [][]uint32
	Vector      []float32
	Metadata    metadata.Document
	Layer       int
	ID          uint32
}

// Index is a Hierarchical Navigable Small World graph.
type Index struct {
	dimension int
	mmax      int     // max connections per element per layer
	mmax0     int     // max for layer 0
	ml        float64 // normalization factor for level generation
	ep        uint32  // current entry point
	maxLevel  int

	nodes      []*Node
	tombstones *roaring64.Bitmap

	opts     Options
	distance vector.Func
	rng      *rand.Rand

	mutex sync.Mutex
}

// New creates a new index for vectors of the given dimension.
func New(dimension int, optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if dimension <= 0 {
		return nil, fmt.Errorf("hnsw: dimension must be positive, got %d", dimension)
	}

	if opts.M < 2 {
		// M == 1 would make ml = 1/log(M) divide by zero.
		opts.M = 2
	}

	if opts.EFConstruction < 1 {
		opts.EFConstruction = DefaultOptions.EFConstruction
	}

	if opts.MaxElements < 1 {
		opts.MaxElements = DefaultOptions.MaxElements
	}

	distance, err := vector.Provider(opts.Metric)
	if err != nil {
		return nil, fmt.Errorf("hnsw: %w", err)
	}

	seed := time.Now().UnixNano()
	if opts.RandomSeed != nil {
		seed = *opts.RandomSeed
	}

	return &Index{
		dimension:  dimension,
		mmax:       opts.M,
		mmax0:      2 * opts.M,
		ml:         1 / math.Log(float64(opts.M)),
		nodes:      []*Node{sentinelNode(dimension, opts.M)},
		tombstones: roaring64.New(),
		opts:       opts,
		distance:   distance,
		rng:        rand.New(rand.NewSource(seed)), //nolint:gosec
	}, nil
}

func sentinelNode(dimension, m int) *Node {
	return &Node{
		ID:          0,
		Layer:       0,
		Vector:      make([]float32, dimension),
		Connections: make([][]uint32, 2*m+1),
	}
}

// Dimension returns the vector dimension the index was created with.
func (h *Index) Dimension() int {
	return h.dimension
}

// Len returns the number of live elements.
func (h *Index) Len() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.lenLocked()
}

func (h *Index) lenLocked() int {
	return len(h.nodes) - 1 - int(h.tombstones.GetCardinality())
}

// Insert adds an entry and returns its assigned identifier.
func (h *Index) Insert(entry Entry) (uint64, error) {
	if entry.ID != nil {
		return 0, ErrAssignedID
	}

	if len(entry.Vector) != h.dimension {
		return 0, &vector.ErrDimensionMismatch{Expected: h.dimension, Actual: len(entry.Vector)}
	}

	// Copy so later caller mutation cannot corrupt the graph.
	vectorCopy := make([]float32, len(entry.Vector))
	copy(vectorCopy, entry.Vector)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.lenLocked() >= h.opts.MaxElements {
		return 0, ErrMaxElements
	}

	id := uint32(len(h.nodes))

	// The generated layer can exceed mmax for small M; the connection table
	// must cover every layer the node participates in.
	layer := int(math.Floor(-math.Log(h.rng.Float64()) * h.ml))

	node := &Node{
		ID:          id,
		Vector:      vectorCopy,
		Metadata:    metadata.CloneIfNeeded(entry.Metadata),
		Layer:       layer,
		Connections: make([][]uint32, max(layer, h.mmax)+1),
	}

	// Greedy descent through the layers above the new node's top layer.
	ep, err := h.descend(vectorCopy, node.Layer)
	if err != nil {
		return 0, err
	}

	for level := min(node.Layer, h.maxLevel); level >= 0; level-- {
		top, err := h.searchLayer(vectorCopy, ep, h.opts.EFConstruction, level)
		if err != nil {
			return 0, err
		}

		neighbours, err := h.selectNeighbours(top, h.opts.M)
		if err != nil {
			return 0, err
		}

		node.Connections[level] = neighbours

		if len(neighbours) > 0 {
			d, err := h.distance(vectorCopy, h.nodes[neighbours[0]].Vector)
			if err != nil {
				return 0, err
			}
			ep = queue.Candidate{Node: neighbours[0], Distance: d}
		}
	}

	h.nodes = append(h.nodes, node)

	// Link back from the neighbours, making the node visible.
	for level := min(node.Layer, h.maxLevel); level >= 0; level-- {
		for _, neighbour := range node.Connections[level] {
			if err := h.link(neighbour, node.ID, level); err != nil {
				return 0, err
			}
		}
	}

	if node.Layer > h.maxLevel {
		h.ep = node.ID
		h.maxLevel = node.Layer
	}

	return uint64(id), nil
}

// InsertBatch inserts entries in order. On error it returns the identifiers
// assigned before the failure so the caller can compensate.
func (h *Index) InsertBatch(entries []Entry) ([]uint64, error) {
	ids := make([]uint64, 0, len(entries))

	for i, entry := range entries {
		id, err := h.Insert(entry)
		if err != nil {
			return ids, fmt.Errorf("hnsw: insert batch entry %d: %w", i, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// Get returns the entry stored under id. The second return is false for
// unknown or deleted identifiers.
func (h *Index) Get(id uint64) (Entry, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.liveLocked(id) {
		return Entry{}, false
	}

	node := h.nodes[id]

	v := make([]float32, len(node.Vector))
	copy(v, node.Vector)

	entryID := id

	return Entry{
		ID:       &entryID,
		Vector:   v,
		Metadata: node.Metadata.Clone(),
	}, true
}

// Delete tombstones the element with the given id. It returns true if the
// element was live, false for unknown or already deleted identifiers.
func (h *Index) Delete(id uint64) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.liveLocked(id) {
		return false
	}

	h.tombstones.Add(id)
	h.nodes[id].Metadata = nil

	return true
}

// Clear removes all elements, keeping the configuration.
func (h *Index) Clear() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.nodes = []*Node{sentinelNode(h.dimension, h.opts.M)}
	h.tombstones = roaring64.New()
	h.ep = 0
	h.maxLevel = 0
}

func (h *Index) liveLocked(id uint64) bool {
	return id > 0 && id < uint64(len(h.nodes)) && !h.tombstones.Contains(id)
}

// descend walks the upper layers greedily towards the query, stopping above
// the given floor layer.
func (h *Index) descend(q []float32, floor int) (queue.Candidate, error) {
	curr := h.nodes[h.ep]

	currDist, err := h.distance(curr.Vector, q)
	if err != nil {
		return queue.Candidate{}, err
	}

	for level := h.maxLevel; level > floor; level-- {
		changed := true
		for changed {
			changed = false

			if level >= len(curr.Connections) {
				continue
			}

			for _, id := range curr.Connections[level] {
				next := h.nodes[id]

				d, err := h.distance(next.Vector, q)
				if err != nil {
					return queue.Candidate{}, err
				}

				if d < currDist {
					curr = next
					currDist = d
					changed = true
				}
			}
		}
	}

	return queue.Candidate{Node: curr.ID, Distance: currDist}, nil
}

// searchLayer explores one layer starting from ep and returns up to ef
// candidates as a max queue.
func (h *Index) searchLayer(q []float32, ep queue.Candidate, ef, level int) (*queue.Queue, error) {
	var visited bitset.BitSet

	visited.Set(uint(ep.Node))

	candidates := queue.NewMin(ef)
	candidates.Push(ep)

	top := queue.NewMax(ef + 1)
	top.Push(ep)

	for candidates.Len() > 0 {
		lowerBound, _ := top.Top()

		candidate, _ := candidates.Pop()
		if candidate.Distance > lowerBound.Distance {
			break
		}

		node := h.nodes[candidate.Node]

		if level >= len(node.Connections) {
			continue
		}

		for _, n := range node.Connections[level] {
			if visited.Test(uint(n)) {
				continue
			}

			visited.Set(uint(n))

			d, err := h.distance(q, h.nodes[n].Vector)
			if err != nil {
				return nil, err
			}

			farthest, _ := top.Top()
			next := queue.Candidate{Node: n, Distance: d}

			if top.Len() < ef {
				top.Push(next)
				candidates.Push(next)
			} else if d < farthest.Distance {
				top.Pop()
				top.Push(next)
				candidates.Push(next)
			}
		}
	}

	return top, nil
}

// selectNeighbours drains the candidate queue and returns at most m node ids
// ordered nearest first.
func (h *Index) selectNeighbours(top *queue.Queue, m int) ([]uint32, error) {
	if h.opts.Heuristic {
		return h.selectNeighboursHeuristic(top, m)
	}

	return selectNeighboursSimple(top, m), nil
}

// selectNeighboursSimple keeps the m nearest candidates.
func selectNeighboursSimple(top *queue.Queue, m int) []uint32 {
	for top.Len() > m {
		top.Pop()
	}

	ids := make([]uint32, top.Len())
	for i := top.Len() - 1; i >= 0; i-- {
		c, _ := top.Pop()
		ids[i] = c.Node
	}

	return ids
}

// selectNeighboursHeuristic prefers candidates that are closer to the query
// than to any already selected neighbour, which keeps the graph navigable in
// clustered data.
func (h *Index) selectNeighboursHeuristic(top *queue.Queue, m int) ([]uint32, error) {
	if top.Len() <= m {
		return selectNeighboursSimple(top, m), nil
	}

	nearest := queue.NewMin(top.Len())
	for top.Len() > 0 {
		c, _ := top.Pop()
		nearest.Push(c)
	}

	selected := make([]queue.Candidate, 0, m)
	discarded := queue.NewMin(m)

	for nearest.Len() > 0 && len(selected) < m {
		c, _ := nearest.Pop()

		keep := true
		for _, s := range selected {
			d, err := h.distance(h.nodes[s.Node].Vector, h.nodes[c.Node].Vector)
			if err != nil {
				return nil, err
			}

			if d < c.Distance {
				keep = false
				break
			}
		}

		if keep {
			selected = append(selected, c)
		} else {
			discarded.Push(c)
		}
	}

	// Backfill from the discarded pool when the heuristic was too strict.
	for len(selected) < m && discarded.Len() > 0 {
		c, _ := discarded.Pop()
		selected = append(selected, c)
	}

	ids := make([]uint32, len(selected))
	for i, c := range selected {
		ids[i] = c.Node
	}

	return ids, nil
}

// link connects first to second at the given level, pruning back to the
// connection limit when exceeded.
func (h *Index) link(first, second uint32, level int) error {
	maxConnections := h.mmax
	// Layer 0 allows double the connections.
	if level == 0 {
		maxConnections = h.mmax0
	}

	node := h.nodes[first]

	if level >= len(node.Connections) {
		grown := make([][]uint32, level+1)
		copy(grown, node.Connections)
		node.Connections = grown
	}

	node.Connections[level] = append(node.Connections[level], second)

	if len(node.Connections[level]) <= maxConnections {
		return nil
	}

	top := queue.NewMax(len(node.Connections[level]))

	for _, id := range node.Connections[level] {
		d, err := h.distance(node.Vector, h.nodes[id].Vector)
		if err != nil {
			return err
		}

		top.Push(queue.Candidate{Node: id, Distance: d})
	}

	pruned, err := h.selectNeighbours(top, maxConnections)
	if err != nil {
		return err
	}

	node.Connections[level] = pruned

	return nil
}
