package rag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readmate/readmate/internal/vectorstore"
)

func matchWithScore(id string, score float32) vectorstore.Match {
	return vectorstore.Match{
		Record: vectorstore.Record{ChunkID: id, SourceDocID: "doc-1"},
		Score:  score,
	}
}

func TestValidator_KeepsOnlyMatchesAboveThreshold(t *testing.T) {
	v := NewValidator(ValidatorConfig{MinRelevance: 0.55})
	res := &RetrievalResult{Matches: []vectorstore.Match{
		matchWithScore("a", 0.82),
		matchWithScore("b", 0.60),
		matchWithScore("c", 0.40),
	}}

	gc := v.Validate(res, "What is a variable?")
	require.True(t, gc.IsGrounded)
	require.Len(t, gc.Chunks, 2)
	require.Equal(t, RejectionNone, gc.RejectionReason)
	require.InDelta(t, 0.82, gc.TopScore, 1e-6)
}

func TestValidator_RejectsWhenNothingClearsThreshold(t *testing.T) {
	v := NewValidator(ValidatorConfig{MinRelevance: 0.55})
	res := &RetrievalResult{Matches: []vectorstore.Match{
		matchWithScore("a", 0.30),
		matchWithScore("b", 0.10),
	}}

	gc := v.Validate(res, "Who won the cup final?")
	require.False(t, gc.IsGrounded)
	require.Empty(t, gc.Chunks)
	require.Equal(t, RejectionNoRelevantContent, gc.RejectionReason)
}

func TestValidator_RejectsEmptyResult(t *testing.T) {
	v := NewValidator(ValidatorConfig{MinRelevance: 0.55})
	gc := v.Validate(&RetrievalResult{}, "anything")
	require.False(t, gc.IsGrounded)
	require.Equal(t, RejectionNoRelevantContent, gc.RejectionReason)
}

func TestValidator_MarginRejectsMarginalOpenEndedQuestions(t *testing.T) {
	v := NewValidator(ValidatorConfig{MinRelevance: 0.55, Margin: 0.05})
	res := &RetrievalResult{Matches: []vectorstore.Match{
		matchWithScore("a", 0.57),
	}}

	gc := v.Validate(res, "What do you think about recursion?")
	require.False(t, gc.IsGrounded)
	require.Equal(t, RejectionMarginalRelevance, gc.RejectionReason)
	require.InDelta(t, 0.57, gc.TopScore, 1e-6)

	// The same score passes for a factual question.
	gc = v.Validate(res, "What is recursion?")
	require.True(t, gc.IsGrounded)
}

func TestValidator_MarginIgnoredForStrongEvidence(t *testing.T) {
	v := NewValidator(ValidatorConfig{MinRelevance: 0.55, Margin: 0.05})
	res := &RetrievalResult{Matches: []vectorstore.Match{
		matchWithScore("a", 0.90),
	}}

	gc := v.Validate(res, "What do you think about recursion?")
	require.True(t, gc.IsGrounded)
}
