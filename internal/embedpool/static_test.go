package embedpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedderDeterministicAndNormalized(t *testing.T) {
	e := NewStaticEmbedder(256)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "func ParseFile(path string) error")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "func ParseFile(path string) error")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 256)

	var sumSquares float64
	for _, x := range v1 {
		sumSquares += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSquares, 0.01)
}

func TestStaticEmbedderEmptyTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(128)
	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Equal(t, float32(0), x)
	}
}

func TestStaticEmbedderDistinctTextsDiffer(t *testing.T) {
	e := NewStaticEmbedder(256)
	ctx := context.Background()

	v1, _ := e.Embed(ctx, "parseSymbols")
	v2, _ := e.Embed(ctx, "resolveReferences")
	assert.NotEqual(t, v1, v2)
}

func TestStaticEmbedderClosed(t *testing.T) {
	e := NewStaticEmbedder(64)
	require.NoError(t, e.Close())
	_, err := e.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}
