package core

import (
	"encoding/hex"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// Well-known metadata keys. The ingestion pipeline populates the required
// set; the store treats all of them as opaque scalar values.
const (
	MetaFilename    = "filename"
	MetaChunkID     = "chunk_id"
	MetaTotalChunks = "total_chunks"
	MetaFileType    = "file_type"
	MetaFileSize    = "file_size"
	MetaFileHash    = "file_hash"
	MetaUploadTime  = "upload_time"

	MetaCategory = "category"
	MetaPriority = "priority"
	MetaTags     = "tags"

	// Stamped by the ingestion pipeline so a later run can detect that the
	// corpus was embedded under a different method or dimension.
	MetaEmbeddingMethod = "embedding_method"
	MetaEmbeddingDim    = "embedding_dim"
)

// Metadata maps string keys to scalar values (string, float64 or bool).
// Construct via NormalizeMetadata to enforce the scalar constraint; all
// numeric values are canonicalized to float64 so they compare equal after
// a codec round-trip.
type Metadata map[string]any

// Filter is an exact-match predicate over metadata fields.
// An empty or nil filter matches every chunk.
type Filter map[string]any

// Chunk is the atomic retrieval unit: one bounded segment of a source
// document together with its embedding vector and metadata.
type Chunk struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata Metadata
}

// Candidate is a chunk returned from a nearest-neighbour scan with its raw
// distance to the query vector. Lower distance means closer.
type Candidate struct {
	Chunk    *Chunk
	Distance float32
}

// SearchResult is a chunk annotated with normalized relevance scores.
// All score fields lie in [0, 1]. Vector-only searches leave KeywordScore
// and CombinedScore at zero.
type SearchResult struct {
	Chunk *Chunk

	// Distance is the raw nearest-neighbour distance, when the chunk came
	// through the vector path.
	Distance float32

	// Relevance is the two-stage normalized vector relevance, or the
	// normalized keyword relevance for a result the vector path never saw.
	Relevance float64

	VectorScore   float64
	KeywordScore  float64
	CombinedScore float64
}

// ContentHash returns a deterministic 64-bit BLAKE2b hash of text, hex
// encoded. Identical content always produces an identical hash.
func ContentHash(text string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkID derives the stored ID for the seq-th chunk of an ingestion batch
// from the chunk's content hash. IDs are deterministic but only weakly
// unique: two chunks with identical text and position collide.
func ChunkID(text string, seq int) string {
	return fmt.Sprintf("doc_%s_%d", ContentHash(text), seq)
}
