package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider fails on a chosen call or returns malformed output.
type scriptedProvider struct {
	dim      int
	failCall int
	short    bool
	calls    int
	batches  [][]string
}

func (p *scriptedProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	p.batches = append(p.batches, texts)
	if p.calls == p.failCall {
		return nil, &ProviderError{Provider: "scripted", Kind: KindNetwork, Err: errors.New("connection reset")}
	}
	n := len(texts)
	if p.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, p.dim)
		out[i][0] = 1
	}
	return out, nil
}

func (p *scriptedProvider) Dimensions() int { return p.dim }
func (p *scriptedProvider) Name() string    { return "scripted" }
func (p *scriptedProvider) Close() error    { return nil }

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("text %d", i)
	}
	return out
}

func TestEmbedAll_batchesInOrder(t *testing.T) {
	p := &scriptedProvider{dim: 4}
	var hooks []int
	vecs, err := EmbedAll(context.Background(), p, texts(7), 3, WithBatchHook(func(b, total int) {
		assert.Equal(t, 3, total)
		hooks = append(hooks, b)
	}))
	require.NoError(t, err)
	assert.Len(t, vecs, 7)
	require.Len(t, p.batches, 3)
	assert.Equal(t, []string{"text 6"}, p.batches[2])
	assert.Equal(t, []int{1, 2, 3}, hooks)
}

func TestEmbedAll_failedBatchAborts(t *testing.T) {
	p := &scriptedProvider{dim: 4, failCall: 2}
	vecs, err := EmbedAll(context.Background(), p, texts(9), 3)
	require.Error(t, err)
	assert.Nil(t, vecs)
	assert.Equal(t, 2, p.calls, "no batch should be sent after a failure")

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 2, batchErr.Batch)
	assert.Equal(t, 3, batchErr.Total)
	assert.Equal(t, 3, batchErr.Start)
	assert.Equal(t, 6, batchErr.End)
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "batch 2/3")
}

func TestEmbedAll_countMismatchIsDecodeError(t *testing.T) {
	p := &scriptedProvider{dim: 4, short: true}
	_, err := EmbedAll(context.Background(), p, texts(2), 10)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindDecode, perr.Kind)
}

func TestEmbedAll_dimensionMismatch(t *testing.T) {
	p := &scriptedProvider{dim: 4}
	wrapped := &fixedDimProvider{Provider: p, dim: 8}
	_, err := EmbedAll(context.Background(), wrapped, texts(2), 10)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindDecode, perr.Kind)
}

type fixedDimProvider struct {
	Provider
	dim int
}

func (p *fixedDimProvider) Dimensions() int { return p.dim }

func TestEmbedAll_canceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &scriptedProvider{dim: 4}
	_, err := EmbedAll(ctx, p, texts(3), 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.calls)
}

func TestEmbedAll_empty(t *testing.T) {
	vecs, err := EmbedAll(context.Background(), &scriptedProvider{dim: 4}, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}
