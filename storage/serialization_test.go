package storage

import (
	"testing"

	"github.com/poiesic/chunksearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalChunk(t *testing.T) {
	tests := []struct {
		name  string
		chunk *core.Chunk
	}{
		{
			name: "full chunk",
			chunk: &core.Chunk{
				ID:     core.ChunkID("Python decorators wrap functions", 0),
				Text:   "Python decorators wrap functions",
				Vector: []float32{0.1, 0.2, 0.3},
				Metadata: core.Metadata{
					"filename":     "python_notes.md",
					"chunk_id":     float64(0),
					"total_chunks": float64(3),
					"file_type":    "md",
					"pinned":       true,
				},
			},
		},
		{
			name: "chunk without vector",
			chunk: &core.Chunk{
				ID:   "doc_abc_0",
				Text: "pending embedding",
			},
		},
		{
			name: "multibyte text",
			chunk: &core.Chunk{
				ID:       "doc_def_1",
				Text:     "Java注解提供元数据",
				Vector:   []float32{1},
				Metadata: core.Metadata{"filename": "java_notes.txt"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalChunk(tt.chunk)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalChunk(data)
			require.NoError(t, err)

			assert.Equal(t, tt.chunk.ID, decoded.ID)
			assert.Equal(t, tt.chunk.Text, decoded.Text)
			assert.Equal(t, tt.chunk.Vector, decoded.Vector)
			for k, v := range tt.chunk.Metadata {
				assert.Equal(t, v, decoded.Metadata[k], "metadata key %s", k)
			}
		})
	}
}

func TestUnmarshalChunk_Invalid(t *testing.T) {
	_, err := UnmarshalChunk([]byte("{not json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrBusy))
	assert.False(t, IsTransient(ErrNotFound))
	assert.False(t, IsTransient(nil))
}
