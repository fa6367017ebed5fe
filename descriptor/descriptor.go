package descriptor

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when an identifier has no vector in the store.
var ErrNotFound = errors.New("descriptor not found")

// ID is the opaque, totally ordered descriptor identifier.
type ID uint64

// Descriptor pairs an identifier with its feature vector.
type Descriptor struct {
	ID     ID
	Vector []float64
}

// Store resolves identifiers to vectors.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetVector returns the vector for id, or an error satisfying
	// errors.Is(err, ErrNotFound) if the store does not hold it.
	GetVector(ctx context.Context, id ID) ([]float64, error)

	// AllIdentifiers returns every identifier in ascending order.
	AllIdentifiers(ctx context.Context) ([]ID, error)
}

// Writer is implemented by stores that accept new descriptors.
type Writer interface {
	// AddMany inserts or replaces the given descriptors.
	AddMany(ctx context.Context, descriptors []Descriptor) error
}

// BatchGetter is implemented by stores that resolve many identifiers at once.
// The returned slice is aligned with ids.
type BatchGetter interface {
	GetMany(ctx context.Context, ids []ID) ([][]float64, error)
}

// NotFoundError reports the identifier that could not be resolved.
type NotFoundError struct {
	ID ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("descriptor %d: %v", e.ID, ErrNotFound)
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// GetMany resolves ids through s, using BatchGetter when available.
func GetMany(ctx context.Context, s Store, ids []ID) ([][]float64, error) {
	if bg, ok := s.(BatchGetter); ok {
		return bg.GetMany(ctx, ids)
	}
	out := make([][]float64, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := s.GetVector(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Load reads every descriptor held by s.
func Load(ctx context.Context, s Store) ([]Descriptor, error) {
	ids, err := s.AllIdentifiers(ctx)
	if err != nil {
		return nil, err
	}
	vecs, err := GetMany(ctx, s, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Descriptor, len(ids))
	for i, id := range ids {
		out[i] = Descriptor{ID: id, Vector: vecs[i]}
	}
	return out, nil
}
