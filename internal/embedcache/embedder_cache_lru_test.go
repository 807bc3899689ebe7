package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 2, 3}, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-model" }

func TestWrapLRU_SecondCallHitsCache(t *testing.T) {
	inner := &fakeEmbedder{}
	embedder := WrapLRU(inner, 16, time.Minute)

	first, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	second, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)

	require.Equal(t, 1, inner.calls)
	require.Equal(t, first, second)
}

func TestWrapLRU_KeyIncludesTaskType(t *testing.T) {
	inner := &fakeEmbedder{}
	embedder := WrapLRU(inner, 16, time.Minute)

	_, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	_, err = embedder.Embed(context.Background(), "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)

	require.Equal(t, 2, inner.calls)
}

func TestWrapLRU_CachedSliceIsIsolated(t *testing.T) {
	inner := &fakeEmbedder{}
	embedder := WrapLRU(inner, 16, time.Minute)

	first, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	first[0] = 99

	second, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.InDelta(t, 1.0, second[0], 1e-6)
}

func TestWrapLRU_ErrorsAreNotCached(t *testing.T) {
	inner := &fakeEmbedder{err: errors.New("down")}
	embedder := WrapLRU(inner, 16, time.Minute)

	_, err := embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.Error(t, err)

	inner.err = nil
	_, err = embedder.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestWrapLRU_DisabledReturnsInner(t *testing.T) {
	inner := &fakeEmbedder{}
	require.Equal(t, inner, WrapLRU(inner, 0, time.Minute))
	require.Equal(t, inner, WrapLRU(inner, 16, 0))
}

func TestCacheKey(t *testing.T) {
	keyA, hashA := CacheKey("m", "q", "text")
	keyB, hashB := CacheKey("m", "q", "text")
	require.Equal(t, keyA, keyB)
	require.Equal(t, hashA, hashB)

	keyC, _ := CacheKey("m", "d", "text")
	require.NotEqual(t, keyA, keyC)
	keyD, hashD := CacheKey("m", "q", "other")
	require.NotEqual(t, keyA, keyD)
	require.NotEqual(t, hashA, hashD)
}
