package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mrpt/descriptor"
	"github.com/hupe1980/mrpt/testutil"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "descriptors.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	descs := []descriptor.Descriptor{
		{ID: 3, Vector: []float64{3, 0.5}},
		{ID: 1, Vector: []float64{1, -1}},
		{ID: math.MaxUint64, Vector: []float64{math.Inf(1), math.SmallestNonzeroFloat64}},
	}
	require.NoError(t, s.AddMany(ctx, descs))

	t.Run("GetVector", func(t *testing.T) {
		v, err := s.GetVector(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, -1}, v)

		v, err = s.GetVector(ctx, math.MaxUint64)
		require.NoError(t, err)
		assert.Equal(t, descs[2].Vector, v)

		_, err = s.GetVector(ctx, 2)
		require.ErrorIs(t, err, descriptor.ErrNotFound)
	})

	t.Run("AllIdentifiers", func(t *testing.T) {
		ids, err := s.AllIdentifiers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []descriptor.ID{1, 3, math.MaxUint64}, ids)
	})

	t.Run("GetMany", func(t *testing.T) {
		vs, err := s.GetMany(ctx, []descriptor.ID{3, 1, 3})
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{3, 0.5}, {1, -1}, {3, 0.5}}, vs)

		_, err = s.GetMany(ctx, []descriptor.ID{1, 42})
		require.ErrorIs(t, err, descriptor.ErrNotFound)
	})

	t.Run("Replace", func(t *testing.T) {
		require.NoError(t, s.AddMany(ctx, []descriptor.Descriptor{{ID: 1, Vector: []float64{9, 9, 9}}}))
		v, err := s.GetVector(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{9, 9, 9}, v)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, 3))
		require.NoError(t, s.Delete(ctx, 3))
		n, err := s.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestStoreManyBatches(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	descs := testutil.NewRNG(1).UniformDescriptors(2*maxBatch+17, 4)
	require.NoError(t, s.AddMany(ctx, descs))

	loaded, err := descriptor.Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, descs, loaded)
}

func TestStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "d.sqlite")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.AddMany(ctx, []descriptor.Descriptor{{ID: 7, Vector: []float64{1, 2}}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.GetVector(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, v)
}

func TestStoreInMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AddMany(ctx, []descriptor.Descriptor{{ID: 1, Vector: []float64{1}}}))
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestDecodeVector(t *testing.T) {
	_, err := decodeVector(1, 2, make([]byte, 15))
	require.ErrorIs(t, err, ErrCorruptVector)

	v, err := decodeVector(1, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, v)
}
