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


package core

import "fmt"

// NormalizeMetadata returns a copy of m constrained to scalar values.
//
// Normalization rules:
//   - nil values are stripped (not an error)
//   - all numeric types are canonicalized to float64
//   - strings and bools pass through unchanged
//   - anything else (maps, slices, structs) fails with ErrNonScalarValue
//
// A nil map normalizes to an empty Metadata.
func NormalizeMetadata(m Metadata) (Metadata, error) {
	out := make(Metadata, len(m))
	for key, value := range m {
		if value == nil {
			continue
		}
		scalar, ok := normalizeScalar(value)
		if !ok {
			return nil, fmt.Errorf("%w: %w: key %q has type %T", ErrInvalidMetadata, ErrNonScalarValue, key, value)
		}
		out[key] = scalar
	}
	return out, nil
}

// NormalizeFilter canonicalizes filter values with the same scalar rules
// as NormalizeMetadata, so filters compare correctly against stored
// metadata. Non-scalar filter values are an error.
func NormalizeFilter(f Filter) (Filter, error) {
	normalized, err := NormalizeMetadata(Metadata(f))
	if err != nil {
		return nil, err
	}
	return Filter(normalized), nil
}

// Matches reports whether every filter field is present in m with an equal
// value. Both sides are expected to be normalized.
func (m Metadata) Matches(f Filter) bool {
	for key, want := range f {
		got, ok := m[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Metadata must normalize (scalar values only)
//
// NOT validated (populated by the pipeline, or intentionally loose):
//   - Vector (can be empty until the embedder runs)
//   - ID (derived during storage when empty)
//   - presence of the well-known metadata keys (the store treats
//     metadata as opaque)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}
	if _, err := NormalizeMetadata(chunk.Metadata); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}
	return nil
}

func normalizeScalar(value any) (any, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return v, true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return nil, false
	}
}
