package mrpt

import (
	"context"
	"time"

	"github.com/hupe1980/mrpt/descriptor"
	"github.com/hupe1980/mrpt/internal/queue"
)

// Neighbor is one query result.
type Neighbor struct {
	ID       descriptor.ID
	Distance float64
}

// Query returns up to k approximate nearest neighbors of vector, nearest
// first, ties broken by ascending ID. Fewer than k neighbors are returned
// when the union of the leaves vector falls into holds fewer than k
// descriptors. Before the first build or load the result is empty.
func (idx *Index) Query(ctx context.Context, vector []float64, k int) (neighbors []Neighbor, err error) {
	start := time.Now()
	candidates := 0
	defer func() {
		idx.opts.metrics.RecordQuery(k, candidates, time.Since(start), err)
		idx.opts.logger.LogQuery(ctx, k, candidates, len(neighbors), err)
	}()

	if k < 1 {
		return nil, invalidParameter("k must be at least 1, got %d", k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := idx.state.Load()
	if s == nil {
		return []Neighbor{}, nil
	}
	dim := s.ensemble.Dimension
	if len(vector) != dim {
		return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(vector)}
	}

	ordinals := s.ensemble.Candidates(vector).ToArray()
	candidates = len(ordinals)

	ids := make([]descriptor.ID, len(ordinals))
	for i, o := range ordinals {
		ids[i] = s.ids[o]
	}
	vectors, err := descriptor.GetMany(ctx, idx.store, ids)
	if err != nil {
		return nil, translateStoreError(err)
	}

	top := queue.NewTopK(k)
	for i, id := range ids {
		if len(vectors[i]) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(vectors[i])}
		}
		top.Offer(queue.Item{ID: uint64(id), Distance: s.dist(vector, vectors[i])})
	}

	items := top.Drain()
	neighbors = make([]Neighbor, len(items))
	for i, it := range items {
		neighbors[i] = Neighbor{ID: descriptor.ID(it.ID), Distance: it.Distance}
	}
	return neighbors, nil
}
