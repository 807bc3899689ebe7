package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	answer string
	err    error
	calls  int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	return g.answer, g.err
}

type scriptedEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (e *scriptedEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.calls++
	return e.vector, e.err
}

func (e *scriptedEmbedder) ModelName() string { return "scripted" }

func TestGroupGenerator_FallsBackInOrder(t *testing.T) {
	primary := &scriptedGenerator{err: errors.New("quota exceeded")}
	secondary := &scriptedGenerator{answer: "ok"}
	group := NewGroupGenerator([]GeneratorEntry{
		{Name: "primary", Generator: primary},
		{Name: "secondary", Generator: secondary},
	})

	res, err := group.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "ok", res)
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 1, secondary.calls)
}

func TestGroupGenerator_PrimarySuccessSkipsFallback(t *testing.T) {
	primary := &scriptedGenerator{answer: "first"}
	secondary := &scriptedGenerator{answer: "second"}
	group := NewGroupGenerator([]GeneratorEntry{
		{Name: "primary", Generator: primary},
		{Name: "secondary", Generator: secondary},
	})

	res, err := group.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "first", res)
	require.Zero(t, secondary.calls)
}

func TestGroupGenerator_AllFailReturnsLastError(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	group := NewGroupGenerator([]GeneratorEntry{
		{Name: "a", Generator: &scriptedGenerator{err: errA}},
		{Name: "b", Generator: &scriptedGenerator{err: errB}},
	})

	_, err := group.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, errB)
}

func TestGroupGenerator_EmptyIsNil(t *testing.T) {
	require.Nil(t, NewGroupGenerator(nil))
}

func TestGroupEmbedder_FallsBackInOrder(t *testing.T) {
	primary := &scriptedEmbedder{err: errors.New("down")}
	secondary := &scriptedEmbedder{vector: []float32{1, 2}}
	group := NewGroupEmbedder([]EmbedderEntry{
		{Name: "primary", Embedder: primary},
		{Name: "secondary", Embedder: secondary},
	})

	vec, err := group.Embed(context.Background(), "text", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, vec)
	require.Equal(t, "primary|secondary", group.ModelName())
}
