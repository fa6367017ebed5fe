package mrpt

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mrpt/blobstore"
	"github.com/hupe1980/mrpt/descriptor"
	"github.com/hupe1980/mrpt/persistence"
)

func TestErrDimensionMismatch(t *testing.T) {
	var err error = &ErrDimensionMismatch{Expected: 4, Actual: 3}

	assert.EqualError(t, err, "mrpt: dimension mismatch: expected 4, got 3")
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Nil(t, errors.Unwrap(err))

	wrapped := fmt.Errorf("query: %w", err)
	assert.ErrorIs(t, wrapped, ErrInvalidParameter)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, wrapped, &dm)
	assert.Equal(t, 3, dm.Actual)
}

func TestTranslateErrors(t *testing.T) {
	assert.NoError(t, translateStoreError(nil))
	assert.NoError(t, translateLoadError("x", nil))

	err := translateStoreError(fmt.Errorf("id 7: %w", descriptor.ErrNotFound))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, descriptor.ErrNotFound)

	other := errors.New("connection reset")
	assert.ErrorIs(t, translateStoreError(other), other)
	assert.NotErrorIs(t, translateStoreError(other), ErrNotFound)

	err = translateLoadError("idx.bin", blobstore.ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "idx.bin")

	err = translateLoadError("idx.bin", persistence.ErrInvalidMagic)
	assert.ErrorIs(t, err, ErrCorruptIndexState)
	assert.ErrorIs(t, err, persistence.ErrInvalidMagic)

	err = translateLoadError("idx.bin", other)
	assert.NotErrorIs(t, err, ErrCorruptIndexState)
	assert.ErrorIs(t, err, other)
}
