package storage

import (
	"context"

	"github.com/poiesic/chunksearch/core"
)

// ChunkRepository provides persistent storage for document chunks.
// Implementations must be thread-safe and support concurrent access.
type ChunkRepository interface {
	// AddChunks persists one or more chunks. Chunks with an empty ID get a
	// deterministic content-hash ID assigned. Metadata is normalized at
	// this boundary; non-scalar values are rejected.
	// Callers must not assume atomicity across the batch: implementations
	// may retry the whole batch on transient conflicts (see ErrBusy), and
	// a hard failure is reported as a single error, not partial results.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) error

	// NearestNeighbors scans chunks matching filter and returns up to
	// limit candidates ordered by ascending Euclidean distance to vector.
	// Chunks without a stored vector are skipped.
	NearestNeighbors(ctx context.Context, vector []float32, limit int, filter core.Filter) ([]*core.Candidate, error)

	// GetAll retrieves every chunk matching filter. A nil filter returns
	// the whole corpus. Used by the keyword index builder and by
	// management operations; cost is linear in corpus size.
	GetAll(ctx context.Context, filter core.Filter) ([]*core.Chunk, error)

	// DeleteWhere removes all chunks matching filter and returns how many
	// were removed. Deleting with a filter that matches nothing is not an
	// error; it reports zero.
	DeleteWhere(ctx context.Context, filter core.Filter) (int, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// CorpusState records which embedding method and dimension the stored
// corpus was built with. One collection supports one method at a time;
// a mismatch at startup means the corpus needs reembedding.
type CorpusState struct {
	Method    string
	Dimension int
}

// StateRepository persists collection-level corpus state.
type StateRepository interface {
	// SaveState stores the corpus embedding state.
	SaveState(ctx context.Context, state CorpusState) error

	// State returns the stored corpus state, or nil if none was saved yet.
	State(ctx context.Context) (*CorpusState, error)
}
