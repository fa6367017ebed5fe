// Package cache provides a read-through LRU cache in front of any
// descriptor.Store.
package cache

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hupe1980/mrpt/descriptor"
)

// ErrInvalidSize is returned for non-positive cache sizes.
var ErrInvalidSize = errors.New("cache: size must be positive")

// Store caches vectors resolved from an underlying store. The cache holds
// its own copies: vectors passed in or handed out are never shared with it.
type Store struct {
	inner  descriptor.Store
	cache  *lru.Cache[descriptor.ID, []float64]
	hits   atomic.Int64
	misses atomic.Int64
}

// WritableStore is a Store over an underlying descriptor.Writer.
// Writes go through to the underlying store and refresh the cache.
type WritableStore struct {
	*Store
	writer descriptor.Writer
}

// New wraps inner with an LRU cache holding up to size vectors.
// The result implements descriptor.Writer if and only if inner does.
func New(inner descriptor.Store, size int) (descriptor.Store, error) {
	s, err := newStore(inner, size)
	if err != nil {
		return nil, err
	}
	if w, ok := inner.(descriptor.Writer); ok {
		return &WritableStore{Store: s, writer: w}, nil
	}
	return s, nil
}

func newStore(inner descriptor.Store, size int) (*Store, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	c, err := lru.New[descriptor.ID, []float64](size)
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner, cache: c}, nil
}

// GetVector implements descriptor.Store.
func (s *Store) GetVector(ctx context.Context, id descriptor.ID) ([]float64, error) {
	if v, ok := s.cache.Get(id); ok {
		s.hits.Add(1)
		return slices.Clone(v), nil
	}
	s.misses.Add(1)

	v, err := s.inner.GetVector(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, slices.Clone(v))
	return v, nil
}

// GetMany implements descriptor.BatchGetter. Misses are resolved with one
// batch request to the underlying store.
func (s *Store) GetMany(ctx context.Context, ids []descriptor.ID) ([][]float64, error) {
	out := make([][]float64, len(ids))
	var (
		missIDs []descriptor.ID
		missPos []int
	)
	for i, id := range ids {
		if v, ok := s.cache.Get(id); ok {
			out[i] = slices.Clone(v)
			continue
		}
		missIDs = append(missIDs, id)
		missPos = append(missPos, i)
	}
	s.hits.Add(int64(len(ids) - len(missIDs)))
	s.misses.Add(int64(len(missIDs)))

	if len(missIDs) == 0 {
		return out, nil
	}
	vs, err := descriptor.GetMany(ctx, s.inner, missIDs)
	if err != nil {
		return nil, err
	}
	for j, v := range vs {
		out[missPos[j]] = v
		s.cache.Add(missIDs[j], slices.Clone(v))
	}
	return out, nil
}

// AllIdentifiers implements descriptor.Store. It is never cached.
func (s *Store) AllIdentifiers(ctx context.Context) ([]descriptor.ID, error) {
	return s.inner.AllIdentifiers(ctx)
}

// Invalidate drops ids from the cache.
func (s *Store) Invalidate(ids ...descriptor.ID) {
	for _, id := range ids {
		s.cache.Remove(id)
	}
}

// Purge empties the cache.
func (s *Store) Purge() {
	s.cache.Purge()
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits   int64
	Misses int64
	Len    int
}

// Stats returns hit and miss counts since creation.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Len:    s.cache.Len(),
	}
}

// AddMany implements descriptor.Writer.
func (w *WritableStore) AddMany(ctx context.Context, descriptors []descriptor.Descriptor) error {
	if err := w.writer.AddMany(ctx, descriptors); err != nil {
		// The underlying store may have applied part of the batch.
		for _, d := range descriptors {
			w.cache.Remove(d.ID)
		}
		return err
	}
	for _, d := range descriptors {
		w.cache.Add(d.ID, slices.Clone(d.Vector))
	}
	return nil
}

var (
	_ descriptor.Store       = (*Store)(nil)
	_ descriptor.BatchGetter = (*Store)(nil)
	_ descriptor.Writer      = (*WritableStore)(nil)
)
