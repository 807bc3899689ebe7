package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/readmate/readmate/internal/vectorstore"
)

type stubGenerator struct {
	calls  int
	answer string
	err    error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func groundedContext(ids ...string) *GroundedContext {
	gc := &GroundedContext{IsGrounded: true, TopScore: 0.8}
	for i, id := range ids {
		gc.Chunks = append(gc.Chunks, vectorstore.Match{
			Record: vectorstore.Record{
				ChunkID:       id,
				SourceDocID:   "doc-1",
				ChapterTitle:  "Variables",
				SequenceIndex: i,
				Content:       "content of " + id,
			},
			Score: 0.8 - float32(i)*0.1,
		})
	}
	return gc
}

func TestComposer_RefusesWithoutCallingGenerator(t *testing.T) {
	gen := &stubGenerator{answer: "should never be used"}
	composer := NewComposer(gen, time.Second)

	record, err := composer.Compose(context.Background(), "Who won the cup?", &GroundedContext{
		IsGrounded:      false,
		RejectionReason: RejectionNoRelevantContent,
	})
	require.NoError(t, err)
	require.Equal(t, 0, gen.calls)
	require.False(t, record.Grounded)
	require.Equal(t, RefusalAnswer, record.Answer)
	require.Empty(t, record.Citations)
	require.Zero(t, record.Confidence)
	require.NotEmpty(t, record.ID)
}

func TestComposer_MapsCitationMarkersInFirstMentionOrder(t *testing.T) {
	gen := &stubGenerator{answer: "A variable stores a value [S2]. See also [S1] and again [S2]."}
	composer := NewComposer(gen, time.Second)

	record, err := composer.Compose(context.Background(), "What is a variable?", groundedContext("c1", "c2"))
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
	require.True(t, record.Grounded)
	require.Len(t, record.Citations, 2)
	require.Equal(t, "c2", record.Citations[0].ChunkID)
	require.Equal(t, "c1", record.Citations[1].ChunkID)
	require.InDelta(t, 0.8, record.Confidence, 1e-6)
}

func TestComposer_FallsBackToFullEvidenceWhenNoMarkers(t *testing.T) {
	gen := &stubGenerator{answer: "A variable stores a value."}
	composer := NewComposer(gen, time.Second)

	record, err := composer.Compose(context.Background(), "What is a variable?", groundedContext("c1", "c2"))
	require.NoError(t, err)
	require.Len(t, record.Citations, 2)
	require.Equal(t, "c1", record.Citations[0].ChunkID)
}

func TestComposer_DropsOutOfRangeMarkers(t *testing.T) {
	gen := &stubGenerator{answer: "Answer citing nothing real [S7]."}
	composer := NewComposer(gen, time.Second)

	record, err := composer.Compose(context.Background(), "What is a variable?", groundedContext("c1"))
	require.NoError(t, err)
	// Out-of-range markers are ignored, leaving the full-evidence fallback.
	require.Len(t, record.Citations, 1)
	require.Equal(t, "c1", record.Citations[0].ChunkID)
}

func TestComposer_WrapsGeneratorFailures(t *testing.T) {
	gen := &stubGenerator{err: errors.New("boom")}
	composer := NewComposer(gen, time.Second)

	_, err := composer.Compose(context.Background(), "What is a variable?", groundedContext("c1"))
	require.Error(t, err)
}

func TestComposer_StreamEndsWithFinalRecord(t *testing.T) {
	gen := &stubGenerator{answer: "A variable stores a value that can change during execution of the program [S1]."}
	composer := NewComposer(gen, time.Second)

	stream, err := composer.ComposeStream(context.Background(), "What is a variable?", groundedContext("c1"))
	require.NoError(t, err)

	var text string
	var final *Fragment
	for fragment := range stream {
		if fragment.Final != nil {
			f := fragment
			final = &f
			continue
		}
		require.Nil(t, final, "no text fragment may follow the final record")
		text += fragment.Text
	}
	require.NotNil(t, final)
	require.Equal(t, final.Final.Answer, text)
	require.True(t, final.Final.Grounded)
}
