package rptree

import (
	"context"
	"slices"
	"testing"

	"github.com/hupe1980/mrpt/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectMembers(t *Tree) []uint32 {
	var all []uint32
	for _, leaf := range t.Leaves() {
		all = append(all, leaf...)
	}
	slices.Sort(all)
	return all
}

func TestBuildTreePartitionsPopulation(t *testing.T) {
	vecs := testutil.NewRNG(1).UniformVectors(500, 16)

	for _, depth := range []int{1, 3, 6} {
		tree, err := BuildTree(context.Background(), vecs, depth, TreeSource(0, 0))
		require.NoError(t, err)

		all := collectMembers(tree)
		require.Len(t, all, len(vecs))
		for i, m := range all {
			assert.Equal(t, uint32(i), m)
		}
		assert.LessOrEqual(t, tree.Depth(), depth)
		for _, leaf := range tree.Leaves() {
			assert.NotEmpty(t, leaf)
		}
	}
}

func TestBuildTreeDepthOneHalves(t *testing.T) {
	vecs := make([][]float64, 100)
	for i := range vecs {
		vecs[i] = []float64{float64(i)}
	}

	tree, err := BuildTree(context.Background(), vecs, 1, TreeSource(0, 0))
	require.NoError(t, err)
	require.Equal(t, 1, tree.Depth())

	leaves := tree.Leaves()
	require.Len(t, leaves, 2)
	assert.Len(t, leaves[0], 50)
	assert.Len(t, leaves[1], 50)
}

func TestBuildTreeRouting(t *testing.T) {
	vecs := testutil.NewRNG(2).GaussianVectors(200, 8)

	tree, err := BuildTree(context.Background(), vecs, 4, TreeSource(3, 1))
	require.NoError(t, err)

	// Every population member routes to the leaf that holds it.
	for i, v := range vecs {
		assert.Contains(t, tree.Leaf(v), uint32(i))
	}
}

func TestBuildTreeIdenticalVectors(t *testing.T) {
	vecs := make([][]float64, 32)
	for i := range vecs {
		vecs[i] = []float64{1, 2, 3}
	}

	tree, err := BuildTree(context.Background(), vecs, 5, TreeSource(0, 0))
	require.NoError(t, err)

	require.Len(t, tree.Nodes, 1)
	assert.True(t, tree.Nodes[0].IsLeaf())
	assert.Len(t, tree.Nodes[0].Members, 32)
	assert.Equal(t, 0, tree.Depth())
}

func TestBuildTreeSingleVector(t *testing.T) {
	tree, err := BuildTree(context.Background(), [][]float64{{1, 1}}, 3, TreeSource(0, 0))
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, tree.Leaf([]float64{9, 9}))
}

func TestBuildTreeErrors(t *testing.T) {
	_, err := BuildTree(context.Background(), nil, 1, TreeSource(0, 0))
	assert.ErrorIs(t, err, ErrNoVectors)

	_, err = BuildTree(context.Background(), [][]float64{{1}}, 0, TreeSource(0, 0))
	assert.ErrorIs(t, err, ErrInvalidParams)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = BuildTree(ctx, [][]float64{{1}, {2}}, 1, TreeSource(0, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyTree(t *testing.T) {
	var tree Tree
	assert.Nil(t, tree.Leaf([]float64{1}))
	assert.Equal(t, 0, tree.Depth())
	assert.Empty(t, tree.Leaves())
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"single", []float64{4}, 4},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"equal", []float64{7, 7, 7, 7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := slices.Clone(tt.in)
			assert.Equal(t, tt.want, median(in))
			assert.Equal(t, tt.in, in)
		})
	}
}
