package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashProvider_Deterministic(t *testing.T) {
	ctx := context.Background()
	p := NewHashProvider(0)

	a, err := p.Embed(ctx, "nil pointer dereference")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "nil pointer dereference")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultHashDimension)
}

func TestHashProvider_SharedTokensCorrelate(t *testing.T) {
	ctx := context.Background()
	p := NewHashProvider(128)

	a, err := p.Embed(ctx, "cannot read property id of undefined")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "cannot read property name of undefined")
	require.NoError(t, err)
	c, err := p.Embed(ctx, "certificate rotation stalled on ingress")
	require.NoError(t, err)

	assert.Greater(t, cosine(a, b), cosine(a, c))
}

func TestHashProvider_EmptyInput(t *testing.T) {
	p := NewHashProvider(64)
	_, err := p.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestHashProvider_BatchMatchesSingle(t *testing.T) {
	ctx := context.Background()
	p := NewHashProvider(64)

	single, err := p.Embed(ctx, "disk quota exceeded")
	require.NoError(t, err)

	batch, err := p.EmbedBatch(ctx, []string{"disk quota exceeded", "other text"})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, single, batch[0])
}

func cosine(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum // inputs are already L2-normalized
}
