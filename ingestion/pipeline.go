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

package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/chunksearch/core"
	"github.com/poiesic/chunksearch/embed"
	"github.com/poiesic/chunksearch/storage"
)

// embedBatchSize is the number of segments embedded per pool task.
const embedBatchSize = 32

// DocumentEmbedder generates embedding vectors for document segments.
// Satisfied by embed.Service.
type DocumentEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Describe() embed.MethodInfo
}

// Document is one source file handed to the pipeline.
type Document struct {
	Filename string
	Content  string

	// FileType is the source format label ("txt", "md", "pdf"). Empty is
	// stored as-is; the pipeline does not sniff formats.
	FileType string

	// Extra carries optional classifier output (category, priority, tags)
	// merged into every chunk's metadata. Required keys cannot be
	// overridden through it.
	Extra core.Metadata
}

// Pipeline splits documents into chunks, embeds them, assembles chunk
// metadata, and writes the result to the chunk store. Each Ingest call is
// synchronous: it returns after all chunks are persisted. The worker pool
// only fans out the embedding work inside the call.
type Pipeline struct {
	chunks   storage.ChunkRepository
	state    storage.StateRepository
	embedder DocumentEmbedder
	pool     *ants.Pool
	splitter textsplitter.TextSplitter
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunking overrides the default chunk size and overlap.
func WithChunking(chunkSize, overlap int) Option {
	return func(p *Pipeline) error {
		if chunkSize < 1 {
			chunkSize = DefaultChunkSize
		}
		if overlap < 0 || overlap >= chunkSize {
			overlap = DefaultChunkOverlap
		}
		p.splitter = newSplitter(chunkSize, overlap)
		return nil
	}
}

// WithStateRepository enables corpus embedding-state stamping.
func WithStateRepository(state storage.StateRepository) Option {
	return func(p *Pipeline) error {
		p.state = state
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(chunks storage.ChunkRepository, embedder DocumentEmbedder, opts ...Option) (*Pipeline, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		chunks:   chunks,
		embedder: embedder,
		pool:     pool,
		splitter: newSplitter(DefaultChunkSize, DefaultChunkOverlap),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// IngestDocument splits, embeds and stores one document, returning the
// number of chunks written. Re-ingesting a filename whose content hash is
// unchanged is a no-op returning zero. A changed content hash supersedes
// the document: old chunks are deleted before the new ones are added.
func (p *Pipeline) IngestDocument(ctx context.Context, doc *Document) (int, error) {
	if doc == nil || doc.Content == "" {
		return 0, ErrEmptyDocument
	}
	if doc.Filename == "" {
		return 0, ErrFilenameRequired
	}

	fileHash := core.ContentHash(doc.Content)

	existing, err := p.chunks.GetAll(ctx, core.Filter{core.MetaFilename: doc.Filename})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		if prev, _ := existing[0].Metadata[core.MetaFileHash].(string); prev == fileHash {
			p.logger.Debug("document unchanged, skipping", "filename", doc.Filename)
			return 0, nil
		}
		deleted, err := p.chunks.DeleteWhere(ctx, core.Filter{core.MetaFilename: doc.Filename})
		if err != nil {
			return 0, err
		}
		p.logger.Info("superseding changed document",
			"filename", doc.Filename, "deleted_chunks", deleted)
	}

	segments, err := p.splitter.SplitText(doc.Content)
	if err != nil {
		return 0, err
	}
	if len(segments) == 0 {
		return 0, ErrEmptyDocument
	}

	vectors, err := p.embedSegments(ctx, segments)
	if err != nil {
		return 0, err
	}

	info := p.embedder.Describe()
	uploadTime := time.Now().UTC().Format(time.RFC3339)
	chunks := make([]*core.Chunk, len(segments))
	for i, segment := range segments {
		metadata := make(core.Metadata, len(doc.Extra)+9)
		for k, v := range doc.Extra {
			metadata[k] = v
		}
		metadata[core.MetaFilename] = doc.Filename
		metadata[core.MetaChunkID] = i
		metadata[core.MetaTotalChunks] = len(segments)
		metadata[core.MetaFileType] = doc.FileType
		metadata[core.MetaFileSize] = len(doc.Content)
		metadata[core.MetaFileHash] = fileHash
		metadata[core.MetaUploadTime] = uploadTime
		metadata[core.MetaEmbeddingMethod] = info.Method
		metadata[core.MetaEmbeddingDim] = info.Dimension

		chunks[i] = &core.Chunk{
			Text:     segment,
			Vector:   vectors[i],
			Metadata: metadata,
		}
	}

	if err := p.chunks.AddChunks(ctx, chunks...); err != nil {
		return 0, err
	}
	if err := p.stampState(ctx, info); err != nil {
		p.logger.Warn("error saving corpus embedding state", "err", err)
	}

	p.logger.Info("document ingested",
		"filename", doc.Filename, "chunks", len(chunks), "method", info.Method)
	return len(chunks), nil
}

// DeleteDocument removes every chunk of the named document and returns
// how many were deleted. A filename with no chunks reports zero.
func (p *Pipeline) DeleteDocument(ctx context.Context, filename string) (int, error) {
	if filename == "" {
		return 0, ErrFilenameRequired
	}
	return p.chunks.DeleteWhere(ctx, core.Filter{core.MetaFilename: filename})
}

// embedSegments fans segment batches out on the worker pool and waits for
// all of them. Vector order matches segment order.
func (p *Pipeline) embedSegments(ctx context.Context, segments []string) ([][]float32, error) {
	vectors := make([][]float32, len(segments))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for start := 0; start < len(segments); start += embedBatchSize {
		end := min(start+embedBatchSize, len(segments))
		wg.Add(1)
		task := func() {
			defer wg.Done()
			batch, err := p.embedder.EmbedTexts(ctx, segments[start:end])
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			copy(vectors[start:end], batch)
		}
		if err := p.pool.Submit(task); err != nil {
			// Pool unavailable: run the batch inline.
			task()
		}
	}
	wg.Wait()

	return vectors, firstErr
}

// stampState records the corpus embedding method on first write and warns
// when the active method no longer matches what built the corpus.
func (p *Pipeline) stampState(ctx context.Context, info embed.MethodInfo) error {
	if p.state == nil {
		return nil
	}
	current, err := p.state.State(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		return p.state.SaveState(ctx, storage.CorpusState{
			Method:    info.Method,
			Dimension: info.Dimension,
		})
	}
	if current.Method != info.Method || current.Dimension != info.Dimension {
		p.logger.Warn("corpus was embedded with a different method, reembed recommended",
			"corpus_method", current.Method, "corpus_dim", current.Dimension,
			"active_method", info.Method, "active_dim", info.Dimension)
	}
	return nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
