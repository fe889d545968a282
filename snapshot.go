package ruvector

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/Wirasm/ruvector/blobstore"
	"github.com/Wirasm/ruvector/embedding"
	"github.com/Wirasm/ruvector/hnsw"
)

// CompressionType selects the snapshot payload compression.
type CompressionType byte

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone CompressionType = iota
	// CompressionZstd compresses with zstandard. Good default.
	CompressionZstd
	// CompressionLZ4 compresses with lz4, trading ratio for speed.
	CompressionLZ4
)

var snapshotMagic = [4]byte{'R', 'V', 'E', 'C'}

const snapshotVersion byte = 1

// snapshotData is the gob payload of a snapshot. The embedder is not
// serialized; loading requires an embedder with a matching dimension.
type snapshotData struct {
	Name   string
	Config Config
	Texts  map[uint64]string
	Store  *hnsw.Index
}

// SaveToWriter writes a snapshot of the index. Snapshots require the
// built-in hnsw store; injected stores must provide their own persistence.
func (idx *Index) SaveToWriter(w io.Writer, compression CompressionType) error {
	store, ok := idx.store.(*hnsw.Index)
	if !ok {
		return fmt.Errorf("ruvector: snapshots require the built-in hnsw store, got %T", idx.store)
	}

	header := []byte{snapshotMagic[0], snapshotMagic[1], snapshotMagic[2], snapshotMagic[3], snapshotVersion, byte(compression)}
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("ruvector: write snapshot header: %w", err)
	}

	payload := snapshotData{
		Name:   idx.name,
		Config: idx.config,
		Texts:  idx.texts,
		Store:  store,
	}

	switch compression {
	case CompressionNone:
		if err := gob.NewEncoder(w).Encode(payload); err != nil {
			return fmt.Errorf("ruvector: encode snapshot: %w", err)
		}
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("ruvector: snapshot compressor: %w", err)
		}
		if err := gob.NewEncoder(zw).Encode(payload); err != nil {
			zw.Close()
			return fmt.Errorf("ruvector: encode snapshot: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("ruvector: flush snapshot: %w", err)
		}
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		if err := gob.NewEncoder(lw).Encode(payload); err != nil {
			lw.Close()
			return fmt.Errorf("ruvector: encode snapshot: %w", err)
		}
		if err := lw.Close(); err != nil {
			return fmt.Errorf("ruvector: flush snapshot: %w", err)
		}
	default:
		return fmt.Errorf("ruvector: unknown compression type: %d", compression)
	}

	return nil
}

// SaveToFile writes a snapshot atomically: data goes to a temp file first,
// then the temp file is renamed over the target path. The temp file lives in
// the target's directory so the rename never crosses filesystems.
func (idx *Index) SaveToFile(path string, compression CompressionType) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(tmp)

	if err := idx.SaveToWriter(bw, compression); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := bw.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	idx.logger.LogSnapshot(context.Background(), path, nil)

	return nil
}

// SaveToBlobStore streams a snapshot into the blob store under name.
func (idx *Index) SaveToBlobStore(ctx context.Context, store blobstore.BlobStore, name string, compression CompressionType) error {
	pr, pw := io.Pipe()

	go func() {
		pw.CloseWithError(idx.SaveToWriter(pw, compression))
	}()

	err := store.Put(ctx, name, pr)
	pr.CloseWithError(err)

	idx.logger.LogSnapshot(ctx, name, err)

	return err
}

// LoadIndex restores an index from a snapshot. The embedder is not part of
// the snapshot; the supplied one must produce vectors of the snapshot's
// dimension. WithStore options are ignored since the snapshot carries its
// own store.
func LoadIndex(r io.Reader, embedder embedding.Embedder, optFns ...Option) (*Index, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	header := make([]byte, 6)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("ruvector: read snapshot header: %w", err)
	}

	if [4]byte(header[:4]) != snapshotMagic {
		return nil, fmt.Errorf("ruvector: not a snapshot: bad magic %q", header[:4])
	}

	if header[4] != snapshotVersion {
		return nil, fmt.Errorf("ruvector: unsupported snapshot version %d", header[4])
	}

	var payload snapshotData

	switch CompressionType(header[5]) {
	case CompressionNone:
		if err := gob.NewDecoder(r).Decode(&payload); err != nil {
			return nil, fmt.Errorf("ruvector: decode snapshot: %w", err)
		}
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("ruvector: snapshot decompressor: %w", err)
		}
		defer zr.Close()
		if err := gob.NewDecoder(zr).Decode(&payload); err != nil {
			return nil, fmt.Errorf("ruvector: decode snapshot: %w", err)
		}
	case CompressionLZ4:
		if err := gob.NewDecoder(lz4.NewReader(r)).Decode(&payload); err != nil {
			return nil, fmt.Errorf("ruvector: decode snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("ruvector: unknown compression type: %d", header[5])
	}

	if payload.Store == nil {
		return nil, fmt.Errorf("ruvector: snapshot has no store")
	}

	if embedder.Dimension() != payload.Store.Dimension() {
		return nil, &ErrDimensionMismatch{
			Expected: payload.Store.Dimension(),
			Actual:   embedder.Dimension(),
		}
	}

	o := applyOptions(optFns)

	if payload.Texts == nil {
		payload.Texts = make(map[uint64]string)
	}

	return &Index{
		name:     payload.Name,
		embedder: embedder,
		store:    payload.Store,
		texts:    payload.Texts,
		config:   payload.Config,
		logger:   o.logger.WithName(payload.Name),
		metrics:  o.metricsCollector,
	}, nil
}

// LoadIndexFromFile restores an index from a snapshot file.
func LoadIndexFromFile(path string, embedder embedding.Embedder, optFns ...Option) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadIndex(bufio.NewReader(f), embedder, optFns...)
}

// LoadIndexFromBlobStore restores an index from a snapshot blob.
func LoadIndexFromBlobStore(ctx context.Context, store blobstore.BlobStore, name string, embedder embedding.Embedder, optFns ...Option) (*Index, error) {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return LoadIndex(rc, embedder, optFns...)
}
