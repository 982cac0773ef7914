package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashingEmbedQueryDeterministic(t *testing.T) {
	h := NewHashing(0)
	ctx := context.Background()

	a, err := h.EmbedQuery(ctx, "penalty for insider trading under SEBI act")
	require.NoError(t, err)
	b, err := h.EmbedQuery(ctx, "penalty for insider trading under SEBI act")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, h.Dimension())
}

func TestHashingEmbedQueryNormalized(t *testing.T) {
	h := NewHashing(64)
	vec, err := h.EmbedQuery(context.Background(), "nifty intraday margin rules")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHashingSimilarTextsScoreCloser(t *testing.T) {
	h := NewHashing(0)
	ctx := context.Background()

	base, err := h.EmbedQuery(ctx, "insider trading penalty sebi")
	require.NoError(t, err)
	near, err := h.EmbedQuery(ctx, "sebi insider trading fine")
	require.NoError(t, err)
	far, err := h.EmbedQuery(ctx, "mutual fund expense ratio disclosure")
	require.NoError(t, err)

	assert.Greater(t, dot(base, near), dot(base, far))
}

func TestHashingEmbedDocuments(t *testing.T) {
	h := NewHashing(0)
	vecs, err := h.EmbedDocuments(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, h.Dimension())
	}
}

func TestHashingRejectsEmptyInput(t *testing.T) {
	h := NewHashing(0)
	ctx := context.Background()

	_, err := h.EmbedQuery(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = h.EmbedDocuments(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestHashingHonorsCancelledContext(t *testing.T) {
	h := NewHashing(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.EmbedQuery(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
