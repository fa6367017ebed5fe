package mrpt

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/mrpt/blobstore"
	"github.com/hupe1980/mrpt/descriptor"
	"github.com/hupe1980/mrpt/distance"
	"github.com/hupe1980/mrpt/internal/rptree"
	"github.com/hupe1980/mrpt/resource"
)

// Index is an approximate nearest-neighbor index over the descriptors of a
// descriptor.Store. It is safe for concurrent use.
type Index struct {
	store descriptor.Store
	opts  options
	blobs blobstore.Store

	// buildMu serializes builds and loads. Queries never take it.
	buildMu sync.Mutex
	state   atomic.Pointer[state]
}

// state is one published snapshot. It is never mutated after publication.
type state struct {
	ensemble *rptree.Ensemble
	ids      []descriptor.ID // ordinal -> identifier, ascending
	numTrees int
	depth    int
	seed     int64
	metric   distance.Metric
	dist     distance.Func
	reserved int64
}

// New creates an index over store. If both artifact paths are configured
// and both artifacts exist, they are loaded.
func New(ctx context.Context, store descriptor.Store, opts ...Option) (*Index, error) {
	if store == nil {
		return nil, invalidParameter("descriptor store is nil")
	}
	o := applyOptions(opts)
	if err := o.validate(); err != nil {
		return nil, err
	}

	idx := &Index{
		store: store,
		opts:  o,
		blobs: resource.ThrottleStore(o.blobs, o.controller),
	}

	if o.indexPath != "" {
		ok, err := idx.artifactsExist(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := idx.Load(ctx); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}

// BuildIndex builds a new ensemble over descriptors and publishes it,
// replacing any previous one. The descriptors are written to the store when
// it implements descriptor.Writer. When artifact paths are configured the
// new index is saved after it is published.
func (idx *Index) BuildIndex(ctx context.Context, descriptors []descriptor.Descriptor) error {
	if idx.opts.readOnly {
		return ErrReadOnlyIndex
	}
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()

	return idx.build(ctx, descriptors, true)
}

// BuildFromStore builds over every descriptor currently held by the store.
func (idx *Index) BuildFromStore(ctx context.Context) error {
	if idx.opts.readOnly {
		return ErrReadOnlyIndex
	}
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()

	descriptors, err := descriptor.Load(ctx, idx.store)
	if err != nil {
		return translateStoreError(err)
	}
	return idx.build(ctx, descriptors, false)
}

func (idx *Index) build(ctx context.Context, descriptors []descriptor.Descriptor, write bool) (err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		idx.opts.metrics.RecordBuild(len(descriptors), elapsed, err)
		idx.opts.logger.LogBuild(ctx, len(descriptors), idx.opts.numTrees, idx.opts.depth, elapsed, err)
	}()

	sorted, err := population(descriptors)
	if err != nil {
		return err
	}

	vectors := make([][]float64, len(sorted))
	ids := make([]descriptor.ID, len(sorted))
	for i, d := range sorted {
		vectors[i] = d.Vector
		ids[i] = d.ID
	}

	params := rptree.Params{
		NumTrees: idx.opts.numTrees,
		Depth:    idx.opts.depth,
		Seed:     idx.opts.seed,
		Workers:  idx.opts.buildWorkers,
	}
	if idx.opts.controller != nil {
		params.Slots = idx.opts.controller
	}
	ensemble, err := rptree.BuildEnsemble(ctx, vectors, params)
	if err != nil {
		return fmt.Errorf("mrpt: build ensemble: %w", err)
	}

	s, err := idx.newState(ensemble, ids, idx.opts.numTrees, idx.opts.depth, idx.opts.seed, idx.opts.metric)
	if err != nil {
		return err
	}

	// Nothing is published until every write has succeeded.
	if idx.opts.indexPath != "" {
		if err := idx.save(ctx, s); err != nil {
			idx.opts.controller.ReleaseMemory(s.reserved)
			return err
		}
	}
	if w, ok := idx.store.(descriptor.Writer); ok && write {
		if err := w.AddMany(ctx, sorted); err != nil {
			idx.opts.controller.ReleaseMemory(s.reserved)
			return fmt.Errorf("mrpt: write descriptors: %w", err)
		}
	}

	idx.publish(s)
	return nil
}

// population validates descriptors and returns them sorted by identifier.
func population(descriptors []descriptor.Descriptor) ([]descriptor.Descriptor, error) {
	if len(descriptors) == 0 {
		return nil, ErrEmptyPopulation
	}
	dim := len(descriptors[0].Vector)
	if dim == 0 {
		return nil, invalidParameter("descriptor %d has an empty vector", descriptors[0].ID)
	}

	sorted := slices.Clone(descriptors)
	slices.SortFunc(sorted, func(a, b descriptor.Descriptor) int {
		return cmp.Compare(a.ID, b.ID)
	})
	for i, d := range sorted {
		if len(d.Vector) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(d.Vector)}
		}
		if i > 0 && sorted[i-1].ID == d.ID {
			return nil, invalidParameter("duplicate descriptor id %d", d.ID)
		}
	}
	return sorted, nil
}

// newState reserves memory for a snapshot. The reservation is released when
// the snapshot is replaced.
func (idx *Index) newState(e *rptree.Ensemble, ids []descriptor.ID, numTrees, depth int, seed int64, metric distance.Metric) (*state, error) {
	dist, err := distance.Provider(metric)
	if err != nil {
		return nil, invalidParameter("%v", err)
	}
	reserved := estimateBytes(e)
	if err := idx.opts.controller.ReserveMemory(reserved); err != nil {
		return nil, fmt.Errorf("mrpt: reserve %d bytes: %w", reserved, err)
	}
	return &state{
		ensemble: e,
		ids:      ids,
		numTrees: numTrees,
		depth:    depth,
		seed:     seed,
		metric:   metric,
		dist:     dist,
		reserved: reserved,
	}, nil
}

func (idx *Index) publish(s *state) {
	if old := idx.state.Swap(s); old != nil {
		idx.opts.controller.ReleaseMemory(old.reserved)
	}
}

// nodeBytes approximates the fixed per-node cost of the arena.
const nodeBytes = 72

func estimateBytes(e *rptree.Ensemble) int64 {
	total := int64(e.Size) * 8
	for _, t := range e.Trees {
		for i := range t.Nodes {
			n := &t.Nodes[i]
			total += nodeBytes + int64(len(n.Projection))*8 + int64(len(n.Members))*4
		}
	}
	return total
}

// Count returns the number of indexed descriptors.
func (idx *Index) Count() int {
	s := idx.state.Load()
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Stats describes the published index.
type Stats struct {
	Size        int
	Dimension   int
	NumTrees    int
	Depth       int
	Leaves      int
	MinLeafSize int
	MaxLeafSize int
	AvgLeafSize float64
	MemoryBytes int64
}

// Stats returns statistics about the published index. The zero value is
// returned before the first build or load.
func (idx *Index) Stats() Stats {
	s := idx.state.Load()
	if s == nil {
		return Stats{}
	}
	es := s.ensemble.Stats()
	return Stats{
		Size:        len(s.ids),
		Dimension:   s.ensemble.Dimension,
		NumTrees:    es.Trees,
		Depth:       s.depth,
		Leaves:      es.Leaves,
		MinLeafSize: es.MinLeafSize,
		MaxLeafSize: es.MaxLeafSize,
		AvgLeafSize: es.AvgLeafSize,
		MemoryBytes: s.reserved,
	}
}

// Close drops the published index and releases its memory reservation.
// The index stays usable: queries return no neighbors until the next build
// or load.
func (idx *Index) Close() error {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()

	if old := idx.state.Swap(nil); old != nil {
		idx.opts.controller.ReleaseMemory(old.reserved)
	}
	return nil
}

func (idx *Index) artifactsExist(ctx context.Context) (bool, error) {
	for _, name := range []string{idx.opts.indexPath, idx.opts.parametersPath} {
		ok, err := blobstore.Exists(ctx, idx.blobs, name)
		if err != nil {
			return false, fmt.Errorf("mrpt: stat %s: %w", name, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
