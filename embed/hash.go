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
	"encoding/binary"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// HashEmbedder derives vectors from per-dimension BLAKE2b hashes of the
// input text. It is fully deterministic, never fails, and needs no model
// or network. The vectors carry no semantic meaning; they exist so the
// rest of the system keeps working when no real embedding provider is
// reachable.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of the given
// dimension. A dimension of zero or less falls back to HashDimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = HashDimension
	}
	return &HashEmbedder{dimension: dimension}
}

// EmbedText generates a deterministic vector for text. Each component is
// an independent hash of the text and the component index, mapped into
// [0, 1). The error is always nil.
func (e *HashEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)
	for i := range vec {
		vec[i] = hashComponent(text, i)
	}
	return vec, nil
}

// EmbedTexts generates deterministic vectors for each text in order.
// The error is always nil.
func (e *HashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i], _ = e.EmbedText(ctx, text)
	}
	return vecs, nil
}

// Describe reports the hash method.
func (e *HashEmbedder) Describe() MethodInfo {
	return MethodInfo{
		Method:      MethodHash,
		Dimension:   e.dimension,
		IsFree:      true,
		Description: "deterministic text hash (no semantic similarity)",
	}
}

// hashComponent maps (text, index) to a value in [0, 1) by hashing the
// pair and bucketing the digest into 1000 steps.
func hashComponent(text string, index int) float32 {
	h, _ := blake2b.New(8, nil)
	fmt.Fprintf(h, "%s_%d", text, index)
	v := binary.BigEndian.Uint64(h.Sum(nil))
	return float32(v%1000) / 1000.0
}
