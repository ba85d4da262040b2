package embed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chunksearch/embed"
	"github.com/poiesic/chunksearch/embed/mock"
)

func TestServiceFallbackNeverFails(t *testing.T) {
	primary := mock.NewMockEmbedder()
	primary.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}
	primary.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	}
	svc := embed.NewService(primary, 0)
	ctx := context.Background()

	vec, err := svc.EmbedText(ctx, "still works")
	require.NoError(t, err)
	assert.Len(t, vec, embed.HashDimension)

	vecs, err := svc.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], embed.HashDimension)
}

func TestServiceFallbackMatchesPrimaryDimension(t *testing.T) {
	primary := mock.NewMockEmbedder()
	primary.Info = embed.MethodInfo{Method: embed.MethodOpenAI, Dimension: 1536}
	primary.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return nil, errors.New("quota exceeded")
	}
	svc := embed.NewService(primary, 0)

	vec, err := svc.EmbedText(context.Background(), "dimension check")
	require.NoError(t, err)
	assert.Len(t, vec, 1536, "fallback vectors must match the configured dimension")
}

func TestServiceQueryCache(t *testing.T) {
	primary := mock.NewMockEmbedder()
	svc := embed.NewService(primary, 0)
	ctx := context.Background()

	first, err := svc.EmbedQuery(ctx, "repeated query")
	require.NoError(t, err)
	require.Equal(t, 1, primary.CallCount())

	second, err := svc.EmbedQuery(ctx, "repeated query")
	require.NoError(t, err)
	assert.Equal(t, 1, primary.CallCount(), "cached query must not hit the embedder again")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, svc.CacheLen())
}

func TestServiceDocumentBatchBypassesCache(t *testing.T) {
	primary := mock.NewMockEmbedder()
	svc := embed.NewService(primary, 0)
	ctx := context.Background()

	_, err := svc.EmbedTexts(ctx, []string{"doc one", "doc two"})
	require.NoError(t, err)
	assert.Equal(t, 0, svc.CacheLen())

	_, err = svc.EmbedTexts(ctx, []string{"doc one", "doc two"})
	require.NoError(t, err)
	assert.Equal(t, 2, primary.CallCount())
}

func TestServiceClearCache(t *testing.T) {
	primary := mock.NewMockEmbedder()
	svc := embed.NewService(primary, 0)
	ctx := context.Background()

	_, err := svc.EmbedQuery(ctx, "q")
	require.NoError(t, err)
	require.Equal(t, 1, svc.CacheLen())

	svc.ClearCache()
	assert.Equal(t, 0, svc.CacheLen())

	_, err = svc.EmbedQuery(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 2, primary.CallCount())
}

func TestProbeEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound) // any response counts as reachable
	}))
	defer srv.Close()

	assert.True(t, embed.ProbeEndpoint(srv.URL, time.Second))

	srv.Close()
	assert.False(t, embed.ProbeEndpoint(srv.URL, time.Second))
}
