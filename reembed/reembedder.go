// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/chunksearch/core"
	"github.com/poiesic/chunksearch/embed"
	"github.com/poiesic/chunksearch/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks embedded per API call.
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks).
	ReportInterval int

	// MaxRetries is the maximum number of attempts per failed batch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// NormalizeVectors scales every new vector to unit length.
	NormalizeVectors bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder rebuilds every stored vector with the given embedder and
// restamps the corpus state. Run it after switching embedding methods:
// vectors from different methods are not comparable, so the whole corpus
// must move together.
//
// The embedder here is a concrete provider, not the fallback-wrapping
// service: a reembed that silently wrote hash vectors would corrupt the
// corpus, so embedding failures are retried and then surfaced.
type Reembedder struct {
	repo     storage.ChunkRepository
	state    storage.StateRepository
	embedder embed.Embedder
	config   *Config
	progress io.Writer
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.ChunkRepository, state storage.StateRepository, embedder embed.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	return &Reembedder{
		repo:     repo,
		state:    state,
		embedder: embedder,
		config:   config,
		progress: progress,
	}, nil
}

// Run reembeds every chunk in the store. Progress is reported to the
// configured writer. On success the corpus state records the new method.
func (r *Reembedder) Run(ctx context.Context) error {
	chunks, err := r.repo.GetAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	if len(chunks) == 0 {
		fmt.Fprintf(r.progress, "No chunks found in database (0 chunks)\n")
		return nil
	}

	info := r.embedder.Describe()
	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks with %s (batch size: %d)\n",
		len(chunks), info.Method, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(chunks), r.config.ReportInterval)
	tracker.Start()

	for start := 0; start < len(chunks); start += r.config.BatchSize {
		end := min(start+r.config.BatchSize, len(chunks))
		if err := r.processBatch(ctx, chunks[start:end], info); err != nil {
			return fmt.Errorf("failed to process batch at chunk %d: %w", start, err)
		}
		tracker.Update(end)
	}

	if r.state != nil {
		err := r.state.SaveState(ctx, storage.CorpusState{
			Method:    info.Method,
			Dimension: info.Dimension,
		})
		if err != nil {
			return fmt.Errorf("failed to save corpus state: %w", err)
		}
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		len(chunks), elapsed.Round(time.Second), float64(len(chunks))/elapsed.Seconds())
	return nil
}

// processBatch embeds one batch with retry and writes the chunks back
// with their new vectors and method stamps.
func (r *Reembedder) processBatch(ctx context.Context, chunks []*core.Chunk, info embed.MethodInfo) error {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = r.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i, chunk := range chunks {
		vector := vectors[i]
		if r.config.NormalizeVectors {
			vector = NormalizeVector(vector)
		}
		chunk.Vector = vector
		if chunk.Metadata == nil {
			chunk.Metadata = core.Metadata{}
		}
		chunk.Metadata[core.MetaEmbeddingMethod] = info.Method
		chunk.Metadata[core.MetaEmbeddingDim] = info.Dimension
	}

	return r.repo.AddChunks(ctx, chunks...)
}
