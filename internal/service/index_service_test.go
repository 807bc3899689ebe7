package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/readmate/readmate/internal/rag"
	"github.com/readmate/readmate/internal/vectorstore"
)

// stubEmbedder returns canned vectors keyed by exact text, or a constant
// vector when the map is nil. It counts every call.
type stubEmbedder struct {
	vectors map[string][]float32
	fixed   []float32
	calls   int
	err     error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if e.vectors != nil {
		if vec, ok := e.vectors[text]; ok {
			return vec, nil
		}
		return []float32{0, 0, 1}, nil
	}
	return e.fixed, nil
}

func (e *stubEmbedder) ModelName() string { return "stub-embed" }

func newTestIndexService(t *testing.T, embedder *stubEmbedder) (*IndexService, *vectorstore.MemoryStore) {
	t.Helper()
	chunker, err := rag.NewChunker(3, 1)
	require.NoError(t, err)
	store := vectorstore.NewMemoryStore()
	return NewIndexService(chunker, embedder, store, time.Second), store
}

func TestIndexService_ReindexEmbedsEveryChunkOnce(t *testing.T) {
	embedder := &stubEmbedder{fixed: []float32{1, 0}}
	svc, store := newTestIndexService(t, embedder)

	indexed, retired, err := svc.Reindex(context.Background(), "doc-1", "Chapter", "one two three four five six seven")
	require.NoError(t, err)
	require.Equal(t, 3, indexed)
	require.Zero(t, retired)
	require.Equal(t, 3, embedder.calls)
	require.Equal(t, 3, store.Len())
}

func TestIndexService_UnchangedContentIsANoOp(t *testing.T) {
	embedder := &stubEmbedder{fixed: []float32{1, 0}}
	svc, store := newTestIndexService(t, embedder)
	text := "one two three four five six seven"

	_, _, err := svc.Reindex(context.Background(), "doc-1", "Chapter", text)
	require.NoError(t, err)
	callsAfterFirst := embedder.calls

	indexed, retired, err := svc.Reindex(context.Background(), "doc-1", "Chapter", text)
	require.NoError(t, err)
	require.Zero(t, indexed)
	require.Zero(t, retired)
	require.Equal(t, callsAfterFirst, embedder.calls)
	require.Equal(t, 3, store.Len())
}

func TestIndexService_AppendOnlyEmbedsNewChunks(t *testing.T) {
	embedder := &stubEmbedder{fixed: []float32{1, 0}}
	svc, store := newTestIndexService(t, embedder)

	_, _, err := svc.Reindex(context.Background(), "doc-1", "Chapter", "one two three four five six seven")
	require.NoError(t, err)
	callsAfterFirst := embedder.calls

	// Appending text leaves all earlier windows byte-identical, so only
	// the new trailing window needs an embedding.
	indexed, retired, err := svc.Reindex(context.Background(), "doc-1", "Chapter", "one two three four five six seven eight nine")
	require.NoError(t, err)
	require.Equal(t, 1, indexed)
	require.Zero(t, retired)
	require.Equal(t, callsAfterFirst+1, embedder.calls)
	require.Equal(t, 4, store.Len())
}

func TestIndexService_EditRetiresReplacedChunks(t *testing.T) {
	embedder := &stubEmbedder{fixed: []float32{1, 0}}
	svc, store := newTestIndexService(t, embedder)

	_, _, err := svc.Reindex(context.Background(), "doc-1", "Chapter", "one two three four five six seven")
	require.NoError(t, err)

	indexed, retired, err := svc.Reindex(context.Background(), "doc-1", "Chapter", "one two three four five SIX seven")
	require.NoError(t, err)
	require.Positive(t, indexed)
	require.Positive(t, retired)
	require.Equal(t, 3, store.Len())
}

func TestIndexService_EmbedFailureLeavesIndexUntouched(t *testing.T) {
	embedder := &stubEmbedder{fixed: []float32{1, 0}}
	svc, store := newTestIndexService(t, embedder)

	_, _, err := svc.Reindex(context.Background(), "doc-1", "Chapter", "one two three four five six seven")
	require.NoError(t, err)

	embedder.err = errors.New("provider down")
	_, _, err = svc.Reindex(context.Background(), "doc-1", "Chapter", "totally different words that need new embeddings here")
	require.Error(t, err)

	// Old records survive a failed rebuild.
	require.Equal(t, 3, store.Len())
	ids, err := store.ListIDsByDoc(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, ids, 3)
}

func TestIndexService_RejectsEmptyDocument(t *testing.T) {
	embedder := &stubEmbedder{fixed: []float32{1, 0}}
	svc, _ := newTestIndexService(t, embedder)

	_, _, err := svc.Reindex(context.Background(), "doc-1", "Chapter", "   ")
	require.Error(t, err)
	require.Zero(t, embedder.calls)
}
