package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeaderRoundTrip(t *testing.T) {
	h := FileHeader{
		NumTrees:    10,
		Depth:       5,
		Dimension:   256,
		Compression: CompressionZstd,
		Size:        10000,
		PayloadLen:  1234,
		RawLen:      5678,
		PayloadCRC:  0xdeadbeef,
	}

	data, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, HeaderSize)
	assert.Equal(t, "MRPT", string(data[:4]))

	var got FileHeader
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, h, got)
}

func TestFileHeaderUnknownCompression(t *testing.T) {
	h := FileHeader{NumTrees: 1, Depth: 1, Dimension: 1, Size: 1, Compression: Compression(7)}
	data, err := h.MarshalBinary()
	require.NoError(t, err)

	var got FileHeader
	assert.ErrorIs(t, got.UnmarshalBinary(data), ErrUnknownCompression)
}

func TestCompression(t *testing.T) {
	tests := []struct {
		in   string
		want Compression
	}{
		{"", CompressionNone},
		{"none", CompressionNone},
		{"ZSTD", CompressionZstd},
		{" lz4 ", CompressionLZ4},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseCompression(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c)
		})
	}

	_, err := ParseCompression("snappy")
	assert.ErrorIs(t, err, ErrUnknownCompression)

	var c Compression
	require.NoError(t, c.UnmarshalText([]byte("lz4")))
	text, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "lz4", string(text))

	_, err = Compression(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "unknown(42)", Compression(42).String())
}
