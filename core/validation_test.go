package core

import (
	"errors"
	"testing"
)

func TestNormalizeMetadata(t *testing.T) {
	tests := []struct {
		name    string
		input   Metadata
		want    Metadata
		wantErr error
	}{
		{
			name:  "nil map",
			input: nil,
			want:  Metadata{},
		},
		{
			name: "strings and bools pass through",
			input: Metadata{
				"filename": "notes.txt",
				"pinned":   true,
			},
			want: Metadata{
				"filename": "notes.txt",
				"pinned":   true,
			},
		},
		{
			name: "integers canonicalized to float64",
			input: Metadata{
				"chunk_id":     2,
				"total_chunks": int64(7),
				"file_size":    uint32(1024),
			},
			want: Metadata{
				"chunk_id":     float64(2),
				"total_chunks": float64(7),
				"file_size":    float64(1024),
			},
		},
		{
			name: "float32 widened",
			input: Metadata{
				"score": float32(0.5),
			},
			want: Metadata{
				"score": float64(0.5),
			},
		},
		{
			name: "nil values stripped",
			input: Metadata{
				"filename": "notes.txt",
				"category": nil,
			},
			want: Metadata{
				"filename": "notes.txt",
			},
		},
		{
			name: "nested map rejected",
			input: Metadata{
				"extra": map[string]string{"a": "b"},
			},
			wantErr: ErrNonScalarValue,
		},
		{
			name: "slice rejected",
			input: Metadata{
				"tags": []string{"a", "b"},
			},
			wantErr: ErrNonScalarValue,
		},
		{
			name: "rejection carries the metadata error",
			input: Metadata{
				"extra": map[string]string{"a": "b"},
			},
			wantErr: ErrInvalidMetadata,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeMetadata(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NormalizeMetadata() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeMetadata() unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("NormalizeMetadata() = %v, want %v", got, tt.want)
			}
			for k, want := range tt.want {
				if got[k] != want {
					t.Errorf("NormalizeMetadata()[%q] = %v (%T), want %v (%T)", k, got[k], got[k], want, want)
				}
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name: "valid chunk",
			chunk: &Chunk{
				Text:     "Python decorators wrap functions",
				Metadata: Metadata{"filename": "python_notes.md"},
			},
			wantErr: nil,
		},
		{
			name: "valid chunk with empty vector",
			chunk: &Chunk{
				Text:   "content",
				Vector: nil,
			},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name: "empty text",
			chunk: &Chunk{
				Text: "",
			},
			wantErr: ErrEmptyText,
		},
		{
			name: "non-scalar metadata",
			chunk: &Chunk{
				Text:     "content",
				Metadata: Metadata{"tags": []string{"x"}},
			},
			wantErr: ErrNonScalarValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeFilter(t *testing.T) {
	got, err := NormalizeFilter(Filter{"chunk_id": 3, "filename": "a.txt"})
	if err != nil {
		t.Fatalf("NormalizeFilter() unexpected error: %v", err)
	}
	if got["chunk_id"] != float64(3) {
		t.Errorf("NormalizeFilter() chunk_id = %v, want float64(3)", got["chunk_id"])
	}

	if _, err := NormalizeFilter(Filter{"bad": struct{}{}}); !errors.Is(err, ErrNonScalarValue) {
		t.Errorf("NormalizeFilter() error = %v, want ErrNonScalarValue", err)
	}
}
