//go:build amd64 || arm64

package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint32(t *testing.T) {
	tests := []struct {
		name    string
		in      int
		want    uint32
		wantErr bool
	}{
		{name: "zero", in: 0, want: 0},
		{name: "positive", in: 123, want: 123},
		{name: "max", in: math.MaxUint32, want: math.MaxUint32},
		{name: "negative", in: -1, wantErr: true},
		{name: "too large", in: math.MaxUint32 + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IntToUint32(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntToInt32(t *testing.T) {
	got, err := IntToInt32(-5)
	require.NoError(t, err)
	assert.Equal(t, int32(-5), got)

	_, err = IntToInt32(math.MaxInt32 + 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = IntToInt32(math.MinInt32 - 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestUint64ToInt(t *testing.T) {
	got, err := Uint64ToInt(42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Uint64ToInt(math.MaxUint64)
	assert.ErrorIs(t, err, ErrOverflow)
}
