package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func TestEmbed_Normalised(t *testing.T) {
	e := NewEmbedder(64)
	v, err := e.Embed(context.Background(), "The termination notice period is 30 days.")
	require.NoError(t, err)
	require.Len(t, v, 64)

	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestEmbed_Deterministic(t *testing.T) {
	a, err := NewEmbedder(0).Embed(context.Background(), "Payment is due within 30 days")
	require.NoError(t, err)
	b, err := NewEmbedder(0).Embed(context.Background(), "Payment is due within 30 days")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimension)
}

func TestEmbed_RelatedTextScoresHigher(t *testing.T) {
	e := NewEmbedder(DefaultDimension)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "What does the document say about termination notice?")
	hit, _ := e.Embed(ctx, "The termination notice period is 30 days.")
	miss, _ := e.Embed(ctx, "Confidential information must not be disclosed to third parties.")
	assert.Greater(t, cosine(q, hit), cosine(q, miss))
}

func TestEmbed_StopwordsOnly(t *testing.T) {
	v, err := NewEmbedder(16).Embed(context.Background(), "the and of to")
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 16), v)
}

func TestEmbed_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbedder(16).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbed_CollisionsSumInStableOrder(t *testing.T) {
	// Two buckets force most tokens to share one, so any change in summation
	// order would show up in the low bits.
	e := NewEmbedder(2)
	text := "payment termination confidentiality liability duration dispute arbitration indemnity governing notice invoice warranty"
	first, err := e.Embed(context.Background(), text)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		got, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
}
