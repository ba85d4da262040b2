package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chunksearch/core"
	"github.com/poiesic/chunksearch/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)
var _ storage.StateRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository on the given backend.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is nil", storage.ErrInvalidQuery)
	}
	return &ChunkRepository{backend: backend}, nil
}

// NewRepository opens a BadgerDB database at path and returns a chunk
// repository backed by it. The caller owns Close.
func NewRepository(path string) (storage.ChunkRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return NewChunkRepository(backend)
}

// Close closes the underlying backend.
func (r *ChunkRepository) Close() error {
	return r.backend.Close()
}

// AddChunks persists one or more chunks in a single transaction.
// The whole batch is retried on transient conflicts.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	// Validate and normalize outside the transaction so retries don't
	// repeat the work.
	prepared := make([]*core.Chunk, len(chunks))
	for i, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
		meta, err := core.NormalizeMetadata(chunk.Metadata)
		if err != nil {
			return err
		}
		id := chunk.ID
		if id == "" {
			id = core.ChunkID(chunk.Text, i)
		}
		prepared[i] = &core.Chunk{
			ID:       id,
			Text:     chunk.Text,
			Vector:   chunk.Vector,
			Metadata: meta,
		}
	}

	return r.backend.WithRetry(func() error {
		return r.backend.WithTx(func(tx *badger.Txn) error {
			for _, chunk := range prepared {
				value, err := storage.MarshalChunk(chunk)
				if err != nil {
					return err
				}
				if err := tx.Set(makeChunkKey(chunk.ID), value); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
	})
}

// NearestNeighbors scans all chunks matching filter and returns the limit
// closest by Euclidean distance. The scan is brute force; acceptable at
// the target scale of thousands of chunks.
func (r *ChunkRepository) NearestNeighbors(ctx context.Context, vector []float32, limit int, filter core.Filter) ([]*core.Candidate, error) {
	if limit <= 0 {
		return []*core.Candidate{}, nil
	}
	normalized, err := core.NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	var results []*core.Candidate
	err = r.backend.WithRetry(func() error {
		results = results[:0]
		return r.forEachChunk(func(chunk *core.Chunk) error {
			if len(chunk.Vector) == 0 {
				return nil
			}
			if !chunk.Metadata.Matches(normalized) {
				return nil
			}
			results = append(results, &core.Candidate{
				Chunk:    chunk,
				Distance: euclideanDistance(vector, chunk.Vector),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Candidate) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetAll retrieves every chunk matching filter.
func (r *ChunkRepository) GetAll(ctx context.Context, filter core.Filter) ([]*core.Chunk, error) {
	normalized, err := core.NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	var results []*core.Chunk
	err = r.forEachChunk(func(chunk *core.Chunk) error {
		if chunk.Metadata.Matches(normalized) {
			results = append(results, chunk)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteWhere removes all chunks matching filter and reports how many
// were removed.
func (r *ChunkRepository) DeleteWhere(ctx context.Context, filter core.Filter) (int, error) {
	normalized, err := core.NormalizeFilter(filter)
	if err != nil {
		return 0, err
	}

	// Collect matching keys first, then delete in a write transaction.
	var keys [][]byte
	err = r.forEachChunk(func(chunk *core.Chunk) error {
		if chunk.Metadata.Matches(normalized) {
			keys = append(keys, makeChunkKey(chunk.ID))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	err = r.backend.WithRetry(func() error {
		return r.backend.WithTx(func(tx *badger.Txn) error {
			for _, key := range keys {
				if err := tx.Delete(key); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
	})
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Count returns the number of stored chunks.
func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = chunkIterPrefix()
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SaveState stores the corpus embedding state.
func (r *ChunkRepository) SaveState(ctx context.Context, state storage.CorpusState) error {
	value, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return r.backend.WithRetry(func() error {
		return r.backend.WithTx(func(tx *badger.Txn) error {
			if err := tx.Set(makeCorpusStateKey(), value); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
	})
}

// State returns the stored corpus state, or nil if none was saved yet.
func (r *ChunkRepository) State(ctx context.Context) (*storage.CorpusState, error) {
	var state *storage.CorpusState
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCorpusStateKey())
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var s storage.CorpusState
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			state = &s
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// forEachChunk reads every chunk record in a read transaction.
func (r *ChunkRepository) forEachChunk(fn func(chunk *core.Chunk) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = chunkIterPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}
			if err := fn(chunk); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// euclideanDistance computes the L2 distance between two vectors.
// Mismatched lengths are compared over the shorter prefix.
func euclideanDistance(a, b []float32) float32 {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	var sum float64
	for i := 0; i < minLen; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}
