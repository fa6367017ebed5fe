package mrpt

import (
	"errors"
	"fmt"

	"github.com/hupe1980/mrpt/blobstore"
	"github.com/hupe1980/mrpt/descriptor"
	"github.com/hupe1980/mrpt/persistence"
)

var (
	// ErrReadOnlyIndex is returned when building an index configured read-only.
	ErrReadOnlyIndex = errors.New("mrpt: index is read-only")

	// ErrEmptyPopulation is returned when building over no descriptors.
	ErrEmptyPopulation = errors.New("mrpt: empty population")

	// ErrNotFound is returned when a descriptor or artifact does not exist.
	// It matches descriptor.ErrNotFound as well.
	ErrNotFound = fmt.Errorf("mrpt: %w", descriptor.ErrNotFound)

	// ErrCorruptIndexState is returned when persisted artifacts fail validation.
	ErrCorruptIndexState = errors.New("mrpt: corrupt index state")

	// ErrInvalidParameter is returned for invalid arguments and configuration.
	ErrInvalidParameter = errors.New("mrpt: invalid parameter")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
// It also matches ErrInvalidParameter.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("mrpt: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrInvalidParameter) hold.
func (e *ErrDimensionMismatch) Is(target error) bool {
	return target == ErrInvalidParameter
}

func invalidParameter(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// translateStoreError maps descriptor store failures onto package errors.
func translateStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, descriptor.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// translateLoadError maps artifact read and decode failures onto package errors.
func translateLoadError(name string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, blobstore.ErrNotFound):
		return fmt.Errorf("%w: artifact %s: %w", ErrNotFound, name, err)
	case isFormatError(err):
		return fmt.Errorf("%w: artifact %s: %w", ErrCorruptIndexState, name, err)
	default:
		return fmt.Errorf("mrpt: read %s: %w", name, err)
	}
}

func isFormatError(err error) bool {
	return errors.Is(err, persistence.ErrInvalidMagic) ||
		errors.Is(err, persistence.ErrInvalidVersion) ||
		errors.Is(err, persistence.ErrTruncated) ||
		errors.Is(err, persistence.ErrMalformed) ||
		errors.Is(err, persistence.ErrUnknownCompression) ||
		persistence.IsChecksumMismatch(err)
}
