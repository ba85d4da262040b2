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

package embed

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Service wraps a primary Embedder with a hash fallback and a bounded
// query cache. Its embedding methods never return an error: any failure
// of the primary embedder is logged and retried once against the hash
// tier, which cannot fail. Falling back silently keeps search available
// when a provider goes away mid-session, at the cost of meaningless
// vectors for the affected texts.
type Service struct {
	primary  Embedder
	fallback *HashEmbedder
	cache    *queryCache
	logger   *slog.Logger
}

// NewService wraps primary with fallback and caching behavior. cacheSize
// of zero or less uses DefaultCacheSize.
func NewService(primary Embedder, cacheSize int) *Service {
	return &Service{
		primary:  primary,
		fallback: NewHashEmbedder(primary.Describe().Dimension),
		cache:    newQueryCache(cacheSize),
		logger:   slog.Default().With("component", "embed-service"),
	}
}

// EmbedQuery returns the embedding for a search query, consulting the
// cache first. The error is always nil.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := s.cache.get(text); ok {
		return vec, nil
	}
	vec, _ := s.EmbedText(ctx, text)
	s.cache.put(text, vec)
	return vec, nil
}

// EmbedText embeds a single text through the primary embedder, falling
// back to the hash tier on failure. The error is always nil.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.primary.EmbedText(ctx, text)
	if err != nil {
		s.logger.Warn("primary embedder failed, using hash fallback",
			"method", s.primary.Describe().Method, "err", err)
		vec, _ = s.fallback.EmbedText(ctx, text)
	}
	return vec, nil
}

// EmbedTexts embeds a batch of document texts. Batches bypass the query
// cache: documents are embedded once at ingestion. The error is always
// nil.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := s.primary.EmbedTexts(ctx, texts)
	if err != nil {
		s.logger.Warn("primary embedder failed on batch, using hash fallback",
			"method", s.primary.Describe().Method, "count", len(texts), "err", err)
		vecs, _ = s.fallback.EmbedTexts(ctx, texts)
	}
	return vecs, nil
}

// Describe reports the primary embedding method. A fallback event does
// not change the reported method; callers inspect per-chunk metadata for
// that.
func (s *Service) Describe() MethodInfo {
	return s.primary.Describe()
}

// CacheLen returns the current query cache entry count.
func (s *Service) CacheLen() int {
	return s.cache.len()
}

// ClearCache drops all cached query embeddings. Called after a re-embed
// so stale vectors from the previous method cannot serve queries.
func (s *Service) ClearCache() {
	s.cache.clear()
}

// ProbeEndpoint reports whether host answers HTTP within timeout. Any
// response counts as reachable, including error statuses; only transport
// failures and timeouts fail the probe. Used during provider selection to
// fail closed to the hash tier when no local model server is running.
func ProbeEndpoint(host string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(host)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
