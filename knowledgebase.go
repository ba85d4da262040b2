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

package chunksearch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/chunksearch/core"
	"github.com/poiesic/chunksearch/embed"
	"github.com/poiesic/chunksearch/embed/openai"
	"github.com/poiesic/chunksearch/ingestion"
	"github.com/poiesic/chunksearch/reembed"
	"github.com/poiesic/chunksearch/search"
	"github.com/poiesic/chunksearch/storage"
	"github.com/poiesic/chunksearch/storage/badger"
)

// KnowledgeBase owns the full retrieval stack: the chunk store, the
// embedding service, the searcher and the ingestion pipeline. It is an
// explicitly constructed long-lived instance; callers hold it and pass it
// by reference instead of reaching for shared global state.
type KnowledgeBase struct {
	backend  *badger.Backend
	chunks   storage.ChunkRepository
	state    storage.StateRepository
	primary  embed.Embedder
	service  *embed.Service
	searcher *search.Searcher
	pipeline *ingestion.Pipeline
	path     string
	logger   *slog.Logger
}

// Stats summarizes the knowledge base for management surfaces.
type Stats struct {
	TotalChunks     int
	EmbeddingMethod string
	Dimension       int
	IsFree          bool
	Description     string
	Path            string
}

// KnowledgeBaseOption configures a KnowledgeBase.
type KnowledgeBaseOption func(*kbOptions)

type kbOptions struct {
	embedConfig *embed.Config
	embedder    embed.Embedder
	inMemory    bool
	logger      *slog.Logger
}

// WithEmbedConfig sets the embedding configuration used for provider
// selection. Default is embed.DefaultConfig().
func WithEmbedConfig(cfg *embed.Config) KnowledgeBaseOption {
	return func(o *kbOptions) {
		if cfg != nil {
			o.embedConfig = cfg
		}
	}
}

// WithEmbedder injects a pre-constructed embedder, bypassing provider
// selection. Used by tests and by hosts that manage their own providers.
func WithEmbedder(embedder embed.Embedder) KnowledgeBaseOption {
	return func(o *kbOptions) {
		o.embedder = embedder
	}
}

// WithInMemory opens an ephemeral store with no files on disk.
func WithInMemory() KnowledgeBaseOption {
	return func(o *kbOptions) {
		o.inMemory = true
	}
}

// WithKBLogger sets a custom logger.
// Default is slog.Default().
func WithKBLogger(logger *slog.Logger) KnowledgeBaseOption {
	return func(o *kbOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open constructs a KnowledgeBase over a store at filePath. Provider
// selection runs once here; the selected embedder serves the whole
// lifetime of the instance.
func Open(filePath string, opts ...KnowledgeBaseOption) (*KnowledgeBase, error) {
	options := &kbOptions{
		embedConfig: embed.DefaultConfig(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repo, err := badger.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	primary := options.embedder
	if primary == nil {
		primary, err = selectEmbedder(options.embedConfig, logger)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}
	service := embed.NewService(primary, options.embedConfig.CacheSize)

	searcher, err := search.NewSearcher(repo, service, search.WithLogger(logger))
	if err != nil {
		backend.Close()
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(repo, service,
		ingestion.WithStateRepository(repo),
		ingestion.WithLogger(logger),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}

	kb := &KnowledgeBase{
		backend:  backend,
		chunks:   repo,
		state:    repo,
		primary:  primary,
		service:  service,
		searcher: searcher,
		pipeline: pipeline,
		path:     filePath,
		logger:   logger,
	}
	kb.warnOnMethodMismatch(context.Background())
	return kb, nil
}

// selectEmbedder implements the tier policy: cloud API when a key is
// configured, then a reachable local model, then the hash fallback. The
// local probe is bounded and fails closed. A forced method skips the
// policy entirely; a forced cloud or local tier that cannot be
// constructed is an error rather than a silent downgrade.
func selectEmbedder(cfg *embed.Config, logger *slog.Logger) (embed.Embedder, error) {
	switch cfg.ForceMethod {
	case embed.MethodOpenAI:
		return openai.NewCloudEmbedder(cfg)
	case embed.MethodLocal:
		return openai.NewLocalEmbedder(cfg)
	case embed.MethodHash:
		return embed.NewHashEmbedder(embed.HashDimension), nil
	case "":
	default:
		return nil, fmt.Errorf("unknown embedding method %q", cfg.ForceMethod)
	}

	if cfg.APIKey != "" {
		embedder, err := openai.NewCloudEmbedder(cfg)
		if err == nil {
			logger.Info("using cloud embeddings", "model", cfg.CloudModel)
			return embedder, nil
		}
		logger.Warn("cloud embedder unavailable, trying local tier", "err", err)
	}

	if embed.ProbeEndpoint(cfg.LocalHost, cfg.ProbeTimeout) {
		embedder, err := openai.NewLocalEmbedder(cfg)
		if err == nil {
			logger.Info("using local embeddings", "host", cfg.LocalHost, "model", cfg.LocalModel)
			return embedder, nil
		}
		logger.Warn("local embedder unavailable, using hash tier", "err", err)
	} else {
		logger.Info("no embedding endpoint reachable, using hash tier", "host", cfg.LocalHost)
	}

	return embed.NewHashEmbedder(embed.HashDimension), nil
}

// warnOnMethodMismatch compares the active embedding method with what the
// stored corpus was built with.
func (kb *KnowledgeBase) warnOnMethodMismatch(ctx context.Context) {
	state, err := kb.state.State(ctx)
	if err != nil {
		kb.logger.Warn("error reading corpus embedding state", "err", err)
		return
	}
	if state == nil {
		return
	}
	info := kb.service.Describe()
	if state.Method != info.Method || state.Dimension != info.Dimension {
		kb.logger.Warn("corpus embedding method differs from active method, run reembed",
			"corpus_method", state.Method, "corpus_dim", state.Dimension,
			"active_method", info.Method, "active_dim", info.Dimension)
	}
}

// Search runs vector-only retrieval: up to k chunks matching filter,
// ordered by ascending distance, each annotated with a relevance score.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, k int, filter core.Filter) ([]*core.SearchResult, error) {
	return kb.searcher.Search(ctx, query, k, filter)
}

// HybridSearch fuses vector and keyword retrieval. Weights of zero or
// less fall back to the defaults (0.7 vector, 0.3 keyword).
func (kb *KnowledgeBase) HybridSearch(ctx context.Context, query string, k int, vectorWeight, keywordWeight float64, filter core.Filter) ([]*core.SearchResult, error) {
	if vectorWeight <= 0 && keywordWeight <= 0 {
		vectorWeight = search.DefaultVectorWeight
		keywordWeight = search.DefaultKeywordWeight
	}
	return kb.searcher.HybridSearch(ctx, query, k, vectorWeight, keywordWeight, filter)
}

// AddDocuments ingests documents and returns the total number of chunks
// written. Unchanged documents contribute zero; changed ones are
// superseded.
func (kb *KnowledgeBase) AddDocuments(ctx context.Context, docs ...*ingestion.Document) (int, error) {
	total := 0
	for _, doc := range docs {
		n, err := kb.pipeline.IngestDocument(ctx, doc)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DeleteDocuments removes all chunks matching filter and returns how many
// were removed. A filter matching nothing reports zero without error.
func (kb *KnowledgeBase) DeleteDocuments(ctx context.Context, filter core.Filter) (int, error) {
	return kb.chunks.DeleteWhere(ctx, filter)
}

// Stats reports the corpus size and the active embedding method.
func (kb *KnowledgeBase) Stats(ctx context.Context) (*Stats, error) {
	count, err := kb.chunks.Count(ctx)
	if err != nil {
		return nil, err
	}
	info := kb.service.Describe()
	return &Stats{
		TotalChunks:     count,
		EmbeddingMethod: info.Method,
		Dimension:       info.Dimension,
		IsFree:          info.IsFree,
		Description:     info.Description,
		Path:            kb.path,
	}, nil
}

// ReembedCorpus rebuilds every stored vector with the active primary
// embedder and clears the query cache afterwards so no stale vectors
// serve queries.
func (kb *KnowledgeBase) ReembedCorpus(ctx context.Context, config *reembed.Config, progress io.Writer) error {
	reembedder, err := reembed.NewReembedder(kb.chunks, kb.state, kb.primary, config, progress)
	if err != nil {
		return err
	}
	if err := reembedder.Run(ctx); err != nil {
		return err
	}
	kb.service.ClearCache()
	return nil
}

// ChunkRepository exposes the underlying chunk store.
func (kb *KnowledgeBase) ChunkRepository() storage.ChunkRepository {
	return kb.chunks
}

// EmbedService exposes the embedding service shared by search and
// ingestion.
func (kb *KnowledgeBase) EmbedService() *embed.Service {
	return kb.service
}

// Close releases the pipeline's worker pool and closes the store.
func (kb *KnowledgeBase) Close() error {
	kb.pipeline.Release()
	if err := kb.backend.Close(); err != nil {
		kb.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
