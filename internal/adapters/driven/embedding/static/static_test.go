package static

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_Deterministic(t *testing.T) {
	encoder := NewEncoder(384)
	ctx := context.Background()

	first, err := encoder.Embed(ctx, "same input")
	require.NoError(t, err)
	second, err := encoder.Embed(ctx, "same input")
	require.NoError(t, err)

	// Bitwise-identical across calls within one process.
	assert.Equal(t, first, second)
	assert.Len(t, first, 384)
}

func TestEmbed_UnitNorm(t *testing.T) {
	encoder := NewEncoder(64)

	vec, err := encoder.Embed(context.Background(), "normalize me")
	require.NoError(t, err)

	var mag float64
	for _, v := range vec {
		mag += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(mag), 1e-6)
}

func TestEmbed_DistinctInputsDiffer(t *testing.T) {
	encoder := NewEncoder(16)
	ctx := context.Background()

	a, err := encoder.Embed(ctx, "alpha")
	require.NoError(t, err)
	b, err := encoder.Embed(ctx, "beta")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFix_PinsVector(t *testing.T) {
	encoder := NewEncoder(3)
	encoder.Fix("pinned", []float32{1, 0, 0})

	vec, err := encoder.Embed(context.Background(), "pinned")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
}

func TestEmbedBatch(t *testing.T) {
	encoder := NewEncoder(8)

	vecs, err := encoder.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	single, err := encoder.Embed(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, single, vecs[0])
}

func TestMetadata(t *testing.T) {
	encoder := NewEncoder(8)
	assert.Equal(t, 8, encoder.Dimensions())
	assert.Equal(t, "static", encoder.ModelName())
	assert.NoError(t, encoder.Ping(context.Background()))
	assert.NoError(t, encoder.Close())
}
