package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chunksearch/core"
	"github.com/poiesic/chunksearch/embed"
	"github.com/poiesic/chunksearch/embed/mock"
	"github.com/poiesic/chunksearch/storage"
	"github.com/poiesic/chunksearch/storage/badger"
)

// fixedQueryEmbedder returns the same vector for every query, so tests
// control distances exactly.
type fixedQueryEmbedder struct {
	vec []float32
}

func (f *fixedQueryEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return f.vec, nil
}

// stubRepo is a scriptable storage.ChunkRepository for exercising paths a
// real backend cannot easily trigger.
type stubRepo struct {
	firstBatch  []*core.Candidate
	secondBatch []*core.Candidate
	nnCalls     int
	total       int
	corpus      []*core.Chunk
	getAllErr   error
}

var _ storage.ChunkRepository = (*stubRepo)(nil)

func (s *stubRepo) AddChunks(_ context.Context, _ ...*core.Chunk) error { return nil }

func (s *stubRepo) NearestNeighbors(_ context.Context, _ []float32, limit int, _ core.Filter) ([]*core.Candidate, error) {
	s.nnCalls++
	batch := s.firstBatch
	if s.nnCalls > 1 && s.secondBatch != nil {
		batch = s.secondBatch
	}
	if len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

func (s *stubRepo) GetAll(_ context.Context, _ core.Filter) ([]*core.Chunk, error) {
	if s.getAllErr != nil {
		return nil, s.getAllErr
	}
	return s.corpus, nil
}

func (s *stubRepo) DeleteWhere(_ context.Context, _ core.Filter) (int, error) { return 0, nil }
func (s *stubRepo) Count(_ context.Context) (int, error)                      { return s.total, nil }
func (s *stubRepo) Close() error                                              { return nil }

func newTestSearcher(t *testing.T) (*Searcher, storage.ChunkRepository) {
	t.Helper()
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		backend.Close()
	})

	svc := embed.NewService(mock.NewMockEmbedder(), 0)
	searcher, err := NewSearcher(repo, svc)
	require.NoError(t, err)
	return searcher, repo
}

func TestNewSearcher(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	svc := embed.NewService(mock.NewMockEmbedder(), 0)

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(repo, svc)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with custom logger", func(t *testing.T) {
		searcher, err := NewSearcher(repo, svc, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(repo, svc, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("nil chunk repository", func(t *testing.T) {
		_, err := NewSearcher(nil, svc)
		assert.Equal(t, ErrChunkRepositoryRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(repo, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})
}

func TestSearchEmptyStore(t *testing.T) {
	searcher, _ := newTestSearcher(t)

	results, err := searcher.Search(context.Background(), "anything", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchZeroK(t *testing.T) {
	searcher, _ := newTestSearcher(t)

	results, err := searcher.Search(context.Background(), "anything", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchFilterCorrectness(t *testing.T) {
	searcher, repo := newTestSearcher(t)
	ctx := context.Background()

	require.NoError(t, repo.AddChunks(ctx,
		&core.Chunk{Text: "alpha", Vector: []float32{1, 0}, Metadata: core.Metadata{core.MetaCategory: "A"}},
		&core.Chunk{Text: "beta", Vector: []float32{0, 1}, Metadata: core.Metadata{core.MetaCategory: "B"}},
		&core.Chunk{Text: "gamma", Vector: []float32{1, 1}, Metadata: core.Metadata{core.MetaCategory: "A"}},
	))

	results, err := searcher.Search(ctx, "query", 10, core.Filter{core.MetaCategory: "A"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "A", r.Chunk.Metadata[core.MetaCategory])
	}
}

func TestSearchOrderingAndBounds(t *testing.T) {
	repo := &stubRepo{
		firstBatch: []*core.Candidate{
			{Chunk: &core.Chunk{ID: "a", Text: "a"}, Distance: 0.2},
			{Chunk: &core.Chunk{ID: "b", Text: "b"}, Distance: 1.0},
			{Chunk: &core.Chunk{ID: "c", Text: "c"}, Distance: 2.6},
		},
		total: 3,
	}
	searcher, err := NewSearcher(repo, &fixedQueryEmbedder{vec: []float32{0}})
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "q", 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Relevance, 0.0)
		assert.LessOrEqual(t, r.Relevance, 1.0)
	}

	// Closest candidate is under the 0.3 distance tier.
	assert.GreaterOrEqual(t, results[0].Relevance, 0.7)
	// Farthest is beyond the 2.0 tier.
	assert.LessOrEqual(t, results[2].Relevance, 0.3)
}

func TestSearchBroadensWhenUnderK(t *testing.T) {
	a := &core.Chunk{ID: "a", Text: "a"}
	b := &core.Chunk{ID: "b", Text: "b"}
	c := &core.Chunk{ID: "c", Text: "c"}
	repo := &stubRepo{
		firstBatch: []*core.Candidate{{Chunk: a, Distance: 1.0}},
		secondBatch: []*core.Candidate{
			{Chunk: b, Distance: 0.5},
			{Chunk: a, Distance: 1.0},
			{Chunk: c, Distance: 2.5},
		},
		total: 3,
	}
	searcher, err := NewSearcher(repo, &fixedQueryEmbedder{vec: []float32{0}})
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "q", 3, nil)
	require.NoError(t, err)
	require.Equal(t, 2, repo.nnCalls, "second broader query expected")
	require.Len(t, results, 3)

	// Merged and ordered by distance, no duplicate of chunk a.
	assert.Equal(t, "b", results[0].Chunk.ID)
	assert.Equal(t, "a", results[1].Chunk.ID)
	assert.Equal(t, "c", results[2].Chunk.ID)

	// First-batch candidate keeps its single-candidate score; merged
	// candidates are scored against the second batch's range.
	assert.InDelta(t, 0.5, results[1].Relevance, 1e-9)
	assert.InDelta(t, 0.8, results[0].Relevance, 1e-9)
	assert.InDelta(t, 0.0, results[2].Relevance, 1e-9)
}

func TestScoreCandidatesEqualDistances(t *testing.T) {
	results := scoreCandidates([]*core.Candidate{
		{Chunk: &core.Chunk{ID: "a"}, Distance: 1.0},
		{Chunk: &core.Chunk{ID: "b"}, Distance: 1.0},
	})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.InDelta(t, 0.5, r.Relevance, 1e-9)
	}
}

func TestClampRelevance(t *testing.T) {
	tests := []struct {
		name      string
		relevance float64
		distance  float32
		want      float64
	}{
		{"far candidates cap at 0.3", 1.0, 2.5, 0.3},
		{"far floor is zero", 0.0, 2.5, 0.0},
		{"mid-far band", 0.9, 1.8, 0.5},
		{"mid-far floor", 0.0, 1.8, 0.1},
		{"close floor is 0.7", 0.0, 0.1, 0.7},
		{"close cap is 1.0", 1.0, 0.1, 1.0},
		{"default band upper", 1.0, 1.0, 0.8},
		{"default band lower", 0.0, 1.0, 0.2},
		{"value inside band unchanged", 0.6, 1.0, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, clampRelevance(tt.relevance, tt.distance), 1e-9)
		})
	}
}
