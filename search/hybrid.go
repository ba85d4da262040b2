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
	"fmt"
	"math"
	"sort"

	"github.com/poiesic/chunksearch/core"
)

// Default fusion weights.
const (
	DefaultVectorWeight  = 0.7
	DefaultKeywordWeight = 0.3
)

// HybridSearch fans the query out to the vector path and a freshly built
// keyword index, fuses the two rankings, and returns up to k chunks
// ordered by descending combined score. vectorWeight and keywordWeight
// are the caller's baseline; per-candidate dynamic adjustment may
// override them. Any keyword or fusion failure silently degrades to
// vector-only results at the same k and filter.
func (s *Searcher) HybridSearch(ctx context.Context, query string, k int, vectorWeight, keywordWeight float64, filter core.Filter) ([]*core.SearchResult, error) {
	return s.HybridSearchWithMonitor(ctx, query, k, vectorWeight, keywordWeight, filter, nil)
}

// HybridSearchWithMonitor is HybridSearch with stage callbacks.
func (s *Searcher) HybridSearchWithMonitor(ctx context.Context, query string, k int, vectorWeight, keywordWeight float64, filter core.Filter, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if k <= 0 {
		return []*core.SearchResult{}, nil
	}

	monitor.Start(query)

	// Wider net than the final k so fusion has room to re-rank.
	vecResults, err := s.Search(ctx, query, k*2, filter)
	if err != nil {
		return nil, err
	}
	monitor.AfterVectorSearch(vecResults)

	results, err := s.fuse(ctx, query, k, vectorWeight, keywordWeight, filter, vecResults, monitor)
	if err != nil {
		s.logger.Warn("keyword fusion failed, falling back to vector-only search", "err", err)
		monitor.FusionFallback(err)
		fallback, err := s.Search(ctx, query, k, filter)
		if err != nil {
			return nil, err
		}
		for _, r := range fallback {
			r.VectorScore = r.Relevance
			r.CombinedScore = r.Relevance
		}
		monitor.Finish(fallback)
		return fallback, nil
	}

	monitor.Finish(results)
	return results, nil
}

// fuse merges vector and keyword rankings by content-hash identity and
// computes combined scores. A panic anywhere in the keyword path is
// converted into an error so the caller can fall back.
func (s *Searcher) fuse(ctx context.Context, query string, k int, vectorWeight, keywordWeight float64, filter core.Filter, vecResults []*core.SearchResult, monitor SearchMonitor) (results []*core.SearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrFusionFailed, r)
		}
	}()

	corpus, err := s.chunks.GetAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFusionFailed, err)
	}
	hits := buildKeywordIndex(corpus).search(query, k*2)
	monitor.AfterKeywordSearch(len(hits))

	// Merge by content hash: a chunk surfacing through both paths becomes
	// one record carrying both signals. A missing signal stays zero.
	merged := make(map[string]*core.SearchResult, len(vecResults)+len(hits))
	order := make([]string, 0, len(vecResults)+len(hits))

	for _, r := range vecResults {
		key := core.ContentHash(r.Chunk.Text)
		if _, ok := merged[key]; ok {
			continue
		}
		r.VectorScore = r.Relevance
		merged[key] = r
		order = append(order, key)
	}
	for _, h := range hits {
		key := core.ContentHash(h.chunk.Text)
		score := fusedKeywordScore(h)
		if rec, ok := merged[key]; ok {
			rec.KeywordScore = score
			continue
		}
		merged[key] = &core.SearchResult{Chunk: h.chunk, KeywordScore: score, Relevance: h.relevance}
		order = append(order, key)
	}

	results = make([]*core.SearchResult, 0, len(order))
	for _, key := range order {
		rec := merged[key]
		vw, kw := adjustWeights(vectorWeight, keywordWeight, rec.VectorScore, rec.KeywordScore)
		rec.CombinedScore = vw*rec.VectorScore + kw*rec.KeywordScore
		results = append(results, rec)
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].CombinedScore > results[b].CombinedScore
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// fusedKeywordScore renormalizes a raw BM25 score into [0,1] with banded
// scaling, then applies the filename floors. A filename match is strong
// independent evidence, not just another BM25 input, so it guarantees a
// minimum score even when the body text never mentions the query terms.
func fusedKeywordScore(h *keywordHit) float64 {
	var score float64
	switch {
	case h.raw > 10:
		score = math.Min(h.raw/15, 1.0)
	case h.raw > 5:
		score = math.Min(h.raw/10, 1.0)
	case h.raw > 0:
		score = math.Min(h.raw/5, 0.8)
	}

	switch h.filename {
	case filenameMatchPhrase:
		score = math.Min(math.Max(score, 0.85), 1.0)
	case filenameMatchToken:
		score = math.Min(math.Max(score, 0.7), 0.95)
	}
	return score
}

// adjustWeights is the per-candidate tie-break policy. A single static
// weight under-serves both the exact filename hit and the purely semantic
// match with no lexical overlap, so the weights shift toward whichever
// signal is decisively stronger.
func adjustWeights(vectorWeight, keywordWeight, vectorScore, keywordScore float64) (float64, float64) {
	switch {
	case keywordScore > 0.8 && vectorScore <= 0.3:
		// Strong lexical match, weak semantic signal: exact filename or
		// code-term hits land here. Inclusive of 0.3, the cap a far
		// candidate receives when it happens to be the batch minimum.
		return 0.1, 0.9
	case keywordScore > 0.8:
		kw := math.Min(keywordWeight*1.5, 0.5)
		return 1 - kw, kw
	case vectorScore > 0.8 && keywordScore < 0.1:
		return 0.8, 0.2
	default:
		return vectorWeight, keywordWeight
	}
}
