package pcache

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/flywave/go3d/vec4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCount(t *testing.T) {
	tests := []struct {
		target, workers int
		want            []int
	}{
		{10, 1, []int{10}},
		{10, 3, []int{4, 3, 3}},
		{4, 4, []int{1, 1, 1, 1}},
		{7, 2, []int{4, 3}},
	}
	for _, tt := range tests {
		got := splitCount(tt.target, tt.workers)
		assert.Equal(t, tt.want, got)
	}
}

func TestDeriveSeeds(t *testing.T) {
	a := DeriveSeeds(42, 8)
	assert.Equal(t, a, DeriveSeeds(42, 8))
	assert.NotEqual(t, a, DeriveSeeds(43, 8))

	seen := map[int64]bool{}
	for _, s := range a {
		seen[s] = true
	}
	assert.Len(t, seen, 8)
}

func TestParallelCollectDeterministic(t *testing.T) {
	c := newCache(t, unitQuad(), BAKE_MODE_TRIANGLE)
	newCollector := func(seed int64) *ParallelCollector {
		return &ParallelCollector{
			Cache:        c,
			Distribution: DISTRIBUTION_RANDOM_UNIFORM_AREA,
			Mode:         BAKE_MODE_TRIANGLE,
			Seed:         seed,
			Workers:      4,
		}
	}

	a, err := newCollector(42).Collect(context.Background(), 1001)
	require.NoError(t, err)
	assert.Len(t, a, 1001)

	b, err := newCollector(42).Collect(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	d, err := newCollector(43).Collect(context.Background(), 1001)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

// TestParallelSequentialSingleWorker 顺序分布只用一个游标
func TestParallelSequentialSingleWorker(t *testing.T) {
	c := newCache(t, unitQuad(), BAKE_MODE_VERTEX)
	pc := &ParallelCollector{
		Cache:        c,
		Distribution: DISTRIBUTION_SEQUENTIAL,
		Mode:         BAKE_MODE_VERTEX,
		Workers:      8,
	}
	out, err := pc.Collect(context.Background(), 10)
	require.NoError(t, err)

	want, err := (&Collector{Picker: NewSequentialVertexPicker(c)}).Collect(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestParallelMoreWorkersThanPoints(t *testing.T) {
	c := newCache(t, unitQuad(), BAKE_MODE_TRIANGLE)
	pc := &ParallelCollector{
		Cache:        c,
		Distribution: DISTRIBUTION_RANDOM,
		Mode:         BAKE_MODE_TRIANGLE,
		Workers:      16,
	}
	out, err := pc.Collect(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestParallelMaskTimeout(t *testing.T) {
	c := newCache(t, unitQuad(), BAKE_MODE_TRIANGLE)
	pc := &ParallelCollector{
		Cache:        c,
		Distribution: DISTRIBUTION_RANDOM_UNIFORM_AREA,
		Mode:         BAKE_MODE_TRIANGLE,
		Workers:      2,
		Mask:         solidMask(vec4.T{0, 0, 0, 1}),
	}
	_, err := pc.Collect(context.Background(), 4)
	assert.ErrorIs(t, err, ErrSamplingTimeout)
}

func TestParallelCancel(t *testing.T) {
	c := newCache(t, unitQuad(), BAKE_MODE_TRIANGLE)
	var calls int32
	pc := &ParallelCollector{
		Cache:        c,
		Distribution: DISTRIBUTION_RANDOM_UNIFORM_AREA,
		Mode:         BAKE_MODE_TRIANGLE,
		Workers:      4,
		Progress: func(processed, target int) bool {
			atomic.AddInt32(&calls, 1)
			assert.Equal(t, 100000, target)
			return true
		},
	}
	out, err := pc.Collect(context.Background(), 100000)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Nil(t, out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
