package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func record(id, docID string, seq int, embedding []float32) Record {
	return Record{
		ChunkID:       id,
		SourceDocID:   docID,
		SequenceIndex: seq,
		Content:       "content " + id,
		Embedding:     embedding,
	}
}

func TestMemoryStore_SearchRanksByCosineSimilarity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{
		record("sky", "doc-1", 0, []float32{1, 0, 0}),
		record("grass", "doc-1", 1, []float32{0, 1, 0}),
		record("sea", "doc-1", 2, []float32{0.7, 0.1, 0}),
	}))

	matches, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "sky", matches[0].Record.ChunkID)
	require.Equal(t, "sea", matches[1].Record.ChunkID)
	require.Greater(t, matches[0].Score, matches[1].Score)
}

func TestMemoryStore_SearchTieBreaksDeterministically(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Identical embeddings, so ordering falls to sequence index then id.
	require.NoError(t, store.Upsert(ctx, []Record{
		record("b", "doc-1", 1, []float32{1, 0}),
		record("a", "doc-1", 1, []float32{1, 0}),
		record("c", "doc-1", 0, []float32{1, 0}),
	}))

	matches, err := store.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Equal(t, "c", matches[0].Record.ChunkID)
	require.Equal(t, "a", matches[1].Record.ChunkID)
	require.Equal(t, "b", matches[2].Record.ChunkID)
}

func TestMemoryStore_UpsertRejectsDimensionMismatch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{record("a", "doc-1", 0, []float32{1, 0})}))
	err := store.Upsert(ctx, []Record{record("b", "doc-1", 1, []float32{1, 0, 0})})
	require.Error(t, err)
	require.Equal(t, 1, store.Len())
}

func TestMemoryStore_ListAndDeleteByDoc(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{
		record("b", "doc-1", 1, []float32{1, 0}),
		record("a", "doc-1", 0, []float32{0, 1}),
		record("x", "doc-2", 0, []float32{1, 1}),
	}))

	ids, err := store.ListIDsByDoc(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Replace(ctx, nil, []string{"a", "b"}))
	require.Equal(t, 1, store.Len())

	ids, err = store.ListIDsByDoc(ctx, "doc-1")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestMemoryStore_UpsertReplacesExistingRecord(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{record("a", "doc-1", 0, []float32{1, 0})}))
	updated := record("a", "doc-1", 0, []float32{0, 1})
	updated.Content = "updated"
	require.NoError(t, store.Upsert(ctx, []Record{updated}))

	require.Equal(t, 1, store.Len())
	matches, err := store.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Equal(t, "updated", matches[0].Record.Content)
}

func TestMemoryStore_ReplaceSwapsRecordsAtomically(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{
		record("a", "doc-1", 0, []float32{1, 0}),
		record("b", "doc-1", 1, []float32{0, 1}),
	}))

	require.NoError(t, store.Replace(ctx, []Record{record("c", "doc-1", 1, []float32{1, 1})}, []string{"b"}))
	ids, err := store.ListIDsByDoc(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, ids)
}

func TestMemoryStore_ReplaceRejectedBatchLeavesStoreUntouched(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{
		record("a", "doc-1", 0, []float32{1, 0}),
		record("b", "doc-1", 1, []float32{0, 1}),
	}))

	// A bad record anywhere in the batch must keep the retirements from
	// running too.
	err := store.Replace(ctx, []Record{record("c", "doc-1", 1, []float32{1, 0, 0})}, []string{"b"})
	require.Error(t, err)
	ids, err := store.ListIDsByDoc(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	require.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	require.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	require.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
