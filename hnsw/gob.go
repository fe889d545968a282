package hnsw

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/Wirasm/ruvector/vector"
)

// Compile time checks to ensure Index satisfies the gob interfaces.
var (
	_ gob.GobEncoder = (*Index)(nil)
	_ gob.GobDecoder = (*Index)(nil)
)

// gobOptions mirrors Options without RandomSeed; decoded indexes reseed from
// the clock.
type gobOptions struct {
	Metric         vector.Metric
	M              int
	EFConstruction int
	MaxElements    int
	Heuristic      bool
}

// GobEncode serializes the graph. The caller must ensure no concurrent
// mutation while encoding.
func (h *Index) GobEncode() ([]byte, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)

	if err := encoder.Encode(h.dimension); err != nil {
		return nil, err
	}

	if err := encoder.Encode(h.ep); err != nil {
		return nil, err
	}

	if err := encoder.Encode(h.maxLevel); err != nil {
		return nil, err
	}

	if err := encoder.Encode(h.nodes); err != nil {
		return nil, err
	}

	if err := encoder.Encode(gobOptions{
		Metric:         h.opts.Metric,
		M:              h.opts.M,
		EFConstruction: h.opts.EFConstruction,
		MaxElements:    h.opts.MaxElements,
		Heuristic:      h.opts.Heuristic,
	}); err != nil {
		return nil, err
	}

	tombstones, err := h.tombstones.MarshalBinary()
	if err != nil {
		return nil, err
	}

	if err := encoder.Encode(tombstones); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GobDecode restores a graph serialized by GobEncode.
func (h *Index) GobDecode(data []byte) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(data))

	if err := decoder.Decode(&h.dimension); err != nil {
		return err
	}

	if err := decoder.Decode(&h.ep); err != nil {
		return err
	}

	if err := decoder.Decode(&h.maxLevel); err != nil {
		return err
	}

	if err := decoder.Decode(&h.nodes); err != nil {
		return err
	}

	var opts gobOptions
	if err := decoder.Decode(&opts); err != nil {
		return err
	}

	var tombstones []byte
	if err := decoder.Decode(&tombstones); err != nil {
		return err
	}

	h.tombstones = roaring64.New()
	if err := h.tombstones.UnmarshalBinary(tombstones); err != nil {
		return err
	}

	h.opts = Options{
		Metric:         opts.Metric,
		M:              opts.M,
		EFConstruction: opts.EFConstruction,
		MaxElements:    opts.MaxElements,
		Heuristic:      opts.Heuristic,
	}

	distance, err := vector.Provider(h.opts.Metric)
	if err != nil {
		return fmt.Errorf("hnsw: %w", err)
	}

	h.distance = distance
	h.mmax = h.opts.M
	h.mmax0 = 2 * h.opts.M
	h.ml = 1 / math.Log(float64(h.opts.M))
	h.rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec

	return nil
}
