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
	"math"
	"sort"
	"strings"

	"github.com/poiesic/chunksearch/core"
)

// BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// filenameMatch classifies how a query relates to a chunk's filename.
type filenameMatch int

const (
	filenameMatchNone filenameMatch = iota
	// filenameMatchToken: some query token is a substring of the filename.
	filenameMatchToken
	// filenameMatchPhrase: the whole lowercased query is a substring.
	filenameMatchPhrase
)

// keywordHit is one chunk scored by the keyword index.
type keywordHit struct {
	chunk *core.Chunk

	// raw is the BM25 score after filename boosts have been applied.
	raw float64

	// relevance is min(raw/10, 1), the keyword path's own normalized
	// score. Fusion renormalizes raw with its own bands; relevance is
	// reported on results that only the keyword path produced.
	relevance float64

	filename filenameMatch
}

// keywordIndex is an ephemeral BM25 index over a chunk corpus. It is
// rebuilt from the current store contents for every query, so its cost is
// linear in corpus size; there is no incremental maintenance to get wrong,
// at the price of a hard scalability ceiling in the millions of chunks.
type keywordIndex struct {
	chunks    []*core.Chunk
	docTokens [][]string
	docFreq   map[string]int
	avgLen    float64
}

// buildKeywordIndex tokenizes every chunk and precomputes document
// frequencies. Each chunk's filename is prepended three times before
// tokenization so filename terms are heavily overweighted relative to
// body terms.
func buildKeywordIndex(chunks []*core.Chunk) *keywordIndex {
	idx := &keywordIndex{
		chunks:    chunks,
		docTokens: make([][]string, len(chunks)),
		docFreq:   make(map[string]int),
	}

	var totalLen int
	for i, chunk := range chunks {
		text := chunk.Text
		if filename := chunkFilename(chunk); filename != "" {
			text = strings.Repeat(filename+" ", 3) + text
		}
		tokens := tokenize(text)
		idx.docTokens[i] = tokens
		totalLen += len(tokens)

		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			idx.docFreq[tok]++
		}
	}
	if len(chunks) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(chunks))
	}
	return idx
}

// search scores the query against every indexed chunk and returns the top
// k hits by boosted score. An empty query yields no hits and no error. A
// chunk with a zero BM25 score still becomes a hit when its filename
// matches the query, so fusion can apply the filename score floors.
func (idx *keywordIndex) search(query string, k int) []*keywordHit {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 || len(idx.chunks) == 0 || k <= 0 {
		return nil
	}
	queryLower := strings.ToLower(strings.TrimSpace(query))

	hits := make([]*keywordHit, 0, len(idx.chunks))
	for i, chunk := range idx.chunks {
		score := idx.bm25(queryTokens, i)
		match := matchFilename(chunk, queryLower, queryTokens)
		switch match {
		case filenameMatchPhrase:
			score *= 3
		case filenameMatchToken:
			score *= 2
		}
		if score <= 0 && match == filenameMatchNone {
			continue
		}
		hits = append(hits, &keywordHit{
			chunk:     chunk,
			raw:       score,
			relevance: math.Min(score/10, 1.0),
			filename:  match,
		})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].raw > hits[b].raw
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// bm25 computes the Okapi BM25 score of the query against document doc.
func (idx *keywordIndex) bm25(queryTokens []string, doc int) float64 {
	tokens := idx.docTokens[doc]
	if len(tokens) == 0 {
		return 0
	}

	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}

	n := float64(len(idx.chunks))
	dl := float64(len(tokens))
	var score float64
	for _, q := range queryTokens {
		f := float64(tf[q])
		if f == 0 {
			continue
		}
		df := float64(idx.docFreq[q])
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)
		score += idf * (f * (bm25K1 + 1)) / (f + bm25K1*(1-bm25B+bm25B*dl/idx.avgLen))
	}
	return score
}

// matchFilename reports whether the query matches a chunk's filename as a
// full phrase, as a single token, or not at all. A user typing a filename
// fragment surfaces that document even when body content does not rank it.
func matchFilename(chunk *core.Chunk, queryLower string, queryTokens []string) filenameMatch {
	filename := strings.ToLower(chunkFilename(chunk))
	if filename == "" || queryLower == "" {
		return filenameMatchNone
	}
	if strings.Contains(filename, queryLower) {
		return filenameMatchPhrase
	}
	for _, tok := range queryTokens {
		if strings.Contains(filename, tok) {
			return filenameMatchToken
		}
	}
	return filenameMatchNone
}

func chunkFilename(chunk *core.Chunk) string {
	if chunk.Metadata == nil {
		return ""
	}
	filename, _ := chunk.Metadata[core.MetaFilename].(string)
	return filename
}
