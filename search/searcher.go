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

package search

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/poiesic/chunksearch/core"
	"github.com/poiesic/chunksearch/storage"
)

// QueryEmbedder turns query text into an embedding vector. Satisfied by
// embed.Service, whose embedding calls never fail.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher provides vector and hybrid search over stored chunks.
type Searcher struct {
	chunks   storage.ChunkRepository
	embedder QueryEmbedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(chunks storage.ChunkRepository, embedder QueryEmbedder, opts ...Option) (*Searcher, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		chunks:   chunks,
		embedder: embedder,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs the vector path: embed the query, retrieve the k nearest
// chunks matching filter, and annotate each with a normalized relevance
// score. Results are ordered by ascending distance. An empty store yields
// an empty slice, never an error.
//
// When the first query returns fewer than k candidates, a second broader
// query up to min(count, 3k) is issued and new candidates are merged in,
// scored against the second batch's distance range.
func (s *Searcher) Search(ctx context.Context, query string, k int, filter core.Filter) ([]*core.SearchResult, error) {
	if k <= 0 {
		return []*core.SearchResult{}, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	candidates, err := s.chunks.NearestNeighbors(ctx, vector, k, filter)
	if err != nil {
		s.logger.Error("error querying nearest neighbours", "err", err)
		return nil, err
	}
	results := scoreCandidates(candidates)

	if len(results) < k {
		results = s.broaden(ctx, vector, k, filter, results)
	}
	return results, nil
}

// broaden issues the wider second query and merges new candidates into
// first. Broadening is best effort: on any error the first batch stands.
func (s *Searcher) broaden(ctx context.Context, vector []float32, k int, filter core.Filter, first []*core.SearchResult) []*core.SearchResult {
	total, err := s.chunks.Count(ctx)
	if err != nil {
		s.logger.Warn("count failed, skipping broadened query", "err", err)
		return first
	}
	limit := 3 * k
	if total < limit {
		limit = total
	}
	if limit <= len(first) {
		return first
	}

	candidates, err := s.chunks.NearestNeighbors(ctx, vector, limit, filter)
	if err != nil {
		s.logger.Warn("broadened query failed, keeping first batch", "err", err)
		return first
	}

	seen := make(map[string]struct{}, len(first))
	for _, r := range first {
		seen[r.Chunk.ID] = struct{}{}
	}
	merged := first
	for _, r := range scoreCandidates(candidates) {
		if _, ok := seen[r.Chunk.ID]; ok {
			continue
		}
		merged = append(merged, r)
	}

	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].Distance < merged[b].Distance
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}

// scoreCandidates applies the two-stage relevance normalization: min-max
// over this batch's distances, inverted, then clamped into a band chosen
// by absolute distance. The second stage keeps one very close or very far
// outlier from distorting the perceived quality of the rest of the batch.
func scoreCandidates(candidates []*core.Candidate) []*core.SearchResult {
	results := make([]*core.SearchResult, 0, len(candidates))
	if len(candidates) == 0 {
		return results
	}

	minD, maxD := candidates[0].Distance, candidates[0].Distance
	for _, c := range candidates[1:] {
		if c.Distance < minD {
			minD = c.Distance
		}
		if c.Distance > maxD {
			maxD = c.Distance
		}
	}

	for _, c := range candidates {
		relative := 0.5
		if maxD > minD {
			relative = float64(c.Distance-minD) / float64(maxD-minD)
		}
		results = append(results, &core.SearchResult{
			Chunk:     c.Chunk,
			Distance:  c.Distance,
			Relevance: clampRelevance(1-relative, c.Distance),
		})
	}
	return results
}

// clampRelevance clips a min-max relevance into the band implied by the
// candidate's absolute distance.
func clampRelevance(relevance float64, distance float32) float64 {
	var lo, hi float64
	switch {
	case distance > 2.0:
		lo, hi = 0.0, 0.3
	case distance > 1.5:
		lo, hi = 0.1, 0.5
	case distance < 0.3:
		lo, hi = 0.7, 1.0
	default:
		lo, hi = 0.2, 0.8
	}
	return math.Min(hi, math.Max(lo, relevance))
}
