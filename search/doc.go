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

// Package search provides hybrid semantic and keyword search over
// document chunks.
//
// The Searcher type implements a multi-stage search algorithm that combines:
//   - Semantic search using vector embeddings with two-stage relevance
//     normalization (batch min-max, then absolute-distance tier clamping)
//   - Keyword search using a BM25 index rebuilt per query, with filename
//     term overweighting and substring boosts
//   - Score fusion with per-candidate dynamic weight adjustment
//
// Keyword and fusion failures never fail a query: hybrid search silently
// falls back to vector-only results.
package search
