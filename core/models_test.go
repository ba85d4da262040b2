package core

import (
	"strings"
	"testing"
)

func TestContentHash(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "simple content",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "multibyte content",
			content: "Python装饰器是一种设计模式",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := ContentHash(tt.content)
			h2 := ContentHash(tt.content)

			if h1 != h2 {
				t.Errorf("ContentHash() produced different hashes for same content: %s vs %s", h1, h2)
			}
			if len(h1) != 16 {
				t.Errorf("ContentHash() length = %d, want 16 hex chars", len(h1))
			}
		})
	}
}

func TestContentHash_Different(t *testing.T) {
	if ContentHash("content1") == ContentHash("content2") {
		t.Errorf("ContentHash() produced same hash for different content")
	}
}

func TestChunkID(t *testing.T) {
	id := ChunkID("some chunk text", 3)

	if !strings.HasPrefix(id, "doc_") {
		t.Errorf("ChunkID() = %q, want doc_ prefix", id)
	}
	if !strings.HasSuffix(id, "_3") {
		t.Errorf("ChunkID() = %q, want _3 suffix", id)
	}
	if id != ChunkID("some chunk text", 3) {
		t.Errorf("ChunkID() is not deterministic")
	}
	if id == ChunkID("some chunk text", 4) {
		t.Errorf("ChunkID() ignored the sequence index")
	}
}

func TestMetadata_Matches(t *testing.T) {
	meta := Metadata{
		"filename": "python_notes.md",
		"category": "编程",
		"chunk_id": float64(0),
		"pinned":   true,
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{
			name:   "nil filter matches",
			filter: nil,
			want:   true,
		},
		{
			name:   "empty filter matches",
			filter: Filter{},
			want:   true,
		},
		{
			name:   "single field match",
			filter: Filter{"filename": "python_notes.md"},
			want:   true,
		},
		{
			name:   "multi field match",
			filter: Filter{"category": "编程", "pinned": true},
			want:   true,
		},
		{
			name:   "value mismatch",
			filter: Filter{"category": "生活"},
			want:   false,
		},
		{
			name:   "missing key",
			filter: Filter{"priority": "high"},
			want:   false,
		},
		{
			name:   "numeric match after canonicalization",
			filter: Filter{"chunk_id": float64(0)},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := meta.Matches(tt.filter); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}
