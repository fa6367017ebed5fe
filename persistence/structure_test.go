package persistence

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/hupe1980/mrpt/internal/hash"
	"github.com/hupe1980/mrpt/internal/rptree"
	"github.com/hupe1980/mrpt/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildEnsemble(t *testing.T) *rptree.Ensemble {
	t.Helper()
	vecs := testutil.NewRNG(11).GaussianVectors(120, 5)
	e, err := rptree.BuildEnsemble(context.Background(), vecs, rptree.Params{NumTrees: 4, Depth: 3, Seed: 9})
	require.NoError(t, err)
	return e
}

func TestEnsembleRoundTrip(t *testing.T) {
	e := buildEnsemble(t)

	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			data, err := EncodeEnsemble(e, c)
			require.NoError(t, err)

			got, h, err := DecodeEnsemble(data)
			require.NoError(t, err)
			assert.Equal(t, e, got)
			assert.Equal(t, c, h.Compression)
			assert.Equal(t, uint32(4), h.NumTrees)
			assert.Equal(t, uint64(120), h.Size)
		})
	}
}

func TestEncodeEnsembleDeterministic(t *testing.T) {
	e := buildEnsemble(t)

	a, err := EncodeEnsemble(e, CompressionZstd)
	require.NoError(t, err)
	b, err := EncodeEnsemble(e, CompressionZstd)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeEnsembleTruncated(t *testing.T) {
	data, err := EncodeEnsemble(buildEnsemble(t), CompressionNone)
	require.NoError(t, err)

	for _, n := range []int{0, 10, HeaderSize - 1, HeaderSize, HeaderSize + 7, len(data) / 2, len(data) - 1} {
		_, _, err := DecodeEnsemble(data[:n])
		assert.Error(t, err, "length %d", n)
	}
}

func TestDecodeEnsembleCorrupted(t *testing.T) {
	e := buildEnsemble(t)

	t.Run("Magic", func(t *testing.T) {
		data, err := EncodeEnsemble(e, CompressionNone)
		require.NoError(t, err)
		data[0] = 'X'
		_, _, err = DecodeEnsemble(data)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("HeaderBitFlip", func(t *testing.T) {
		data, err := EncodeEnsemble(e, CompressionNone)
		require.NoError(t, err)
		data[9] ^= 0x01
		_, _, err = DecodeEnsemble(data)
		assert.True(t, IsChecksumMismatch(err))
	})

	t.Run("PayloadBitFlip", func(t *testing.T) {
		for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
			data, err := EncodeEnsemble(e, c)
			require.NoError(t, err)
			data[len(data)-3] ^= 0x40
			_, _, err = DecodeEnsemble(data)
			assert.True(t, IsChecksumMismatch(err), c.String())
		}
	})

	t.Run("Version", func(t *testing.T) {
		data, err := EncodeEnsemble(e, CompressionNone)
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(data[4:], 99)
		binary.LittleEndian.PutUint32(data[HeaderSize-4:], hash.CRC32C(data[:HeaderSize-4]))
		_, _, err = DecodeEnsemble(data)
		assert.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		data, err := EncodeEnsemble(e, CompressionNone)
		require.NoError(t, err)
		_, _, err = DecodeEnsemble(append(data, 0))
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestDecodeEnsembleRejectsBadStructure(t *testing.T) {
	leaf := func(ms ...uint32) rptree.Node {
		return rptree.Node{Left: rptree.NoChild, Right: rptree.NoChild, Members: ms}
	}
	split := func(l, r int32) rptree.Node {
		return rptree.Node{Projection: []float64{1}, Threshold: 0.5, Left: l, Right: r}
	}

	tests := []struct {
		name  string
		nodes []rptree.Node
		depth int
	}{
		{"ChildOutOfRange", []rptree.Node{split(1, 7), leaf(0), leaf(1)}, 1},
		{"SelfLoop", []rptree.Node{split(0, 1), leaf(0, 1, 2)}, 1},
		{"SharedChild", []rptree.Node{split(1, 1), leaf(0, 1, 2)}, 1},
		{"OrdinalOutOfRange", []rptree.Node{split(1, 2), leaf(0), leaf(5)}, 1},
		{"RepeatedOrdinal", []rptree.Node{split(1, 2), leaf(0), leaf(0)}, 1},
		{"MissingOrdinal", []rptree.Node{leaf(0)}, 1},
		{"EmptyLeaf", []rptree.Node{split(1, 2), leaf(0, 1, 2), leaf()}, 1},
		{"TooDeep", []rptree.Node{split(1, 2), leaf(0), split(3, 4), leaf(1), leaf(2)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &rptree.Ensemble{
				Trees:     []*rptree.Tree{{Nodes: tt.nodes}},
				Depth:     tt.depth,
				Dimension: 1,
				Size:      3,
			}
			data, err := EncodeEnsemble(e, CompressionNone)
			require.NoError(t, err)

			_, _, err = DecodeEnsemble(data)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEncodeEnsembleErrors(t *testing.T) {
	_, err := EncodeEnsemble(nil, CompressionNone)
	assert.ErrorIs(t, err, ErrMalformed)

	e := buildEnsemble(t)
	_, err = EncodeEnsemble(e, Compression(9))
	assert.ErrorIs(t, err, ErrUnknownCompression)

	e.Dimension = 7
	_, err = EncodeEnsemble(e, CompressionNone)
	assert.ErrorIs(t, err, ErrMalformed)
}
