package mrpt

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/mrpt/blobstore"
	"github.com/hupe1980/mrpt/descriptor"
	"github.com/hupe1980/mrpt/distance"
	"github.com/hupe1980/mrpt/internal/rptree"
	"github.com/hupe1980/mrpt/persistence"
)

// Save writes the published index to the configured artifact paths. The
// structural artifact is written first, then the parameters artifact that
// records its checksum.
func (idx *Index) Save(ctx context.Context) error {
	if idx.opts.indexPath == "" {
		return invalidParameter("no artifact paths configured")
	}
	s := idx.state.Load()
	if s == nil {
		return ErrEmptyPopulation
	}
	return idx.save(ctx, s)
}

func (idx *Index) save(ctx context.Context, s *state) (err error) {
	start := time.Now()
	total := 0
	defer func() {
		idx.opts.metrics.RecordSave(total, time.Since(start), err)
		idx.opts.logger.LogSave(ctx, idx.opts.indexPath, idx.opts.parametersPath, total, err)
	}()

	structure, err := persistence.EncodeEnsemble(s.ensemble, idx.opts.compression)
	if err != nil {
		return fmt.Errorf("mrpt: encode structure: %w", err)
	}

	ids := make([]uint64, len(s.ids))
	for i, id := range s.ids {
		ids[i] = uint64(id)
	}
	params, err := persistence.EncodeParameters(idx.opts.codec, &persistence.Parameters{
		NumTrees:          s.numTrees,
		Depth:             s.depth,
		RandomSeed:        s.seed,
		Metric:            s.metric.String(),
		Dimension:         s.ensemble.Dimension,
		Compression:       idx.opts.compression.String(),
		IDs:               ids,
		StructureChecksum: persistence.Checksum(structure),
	})
	if err != nil {
		return fmt.Errorf("mrpt: encode parameters: %w", err)
	}

	if err := idx.blobs.Put(ctx, idx.opts.indexPath, structure); err != nil {
		return fmt.Errorf("mrpt: write %s: %w", idx.opts.indexPath, err)
	}
	if err := idx.blobs.Put(ctx, idx.opts.parametersPath, params); err != nil {
		return fmt.Errorf("mrpt: write %s: %w", idx.opts.parametersPath, err)
	}
	total = len(structure) + len(params)
	return nil
}

// Load reads both artifacts, validates them against each other and
// publishes the result. The parameters recorded in the artifacts replace the
// configured tree count, depth, seed and metric. Missing artifacts are
// reported as ErrNotFound, invalid ones as ErrCorruptIndexState.
func (idx *Index) Load(ctx context.Context) (err error) {
	if idx.opts.indexPath == "" {
		return invalidParameter("no artifact paths configured")
	}
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()

	start := time.Now()
	size := 0
	defer func() {
		idx.opts.metrics.RecordLoad(time.Since(start), err)
		idx.opts.logger.LogLoad(ctx, idx.opts.indexPath, idx.opts.parametersPath, size, err)
	}()

	var params *persistence.Parameters
	err = blobstore.View(ctx, idx.blobs, idx.opts.parametersPath, func(data []byte) error {
		p, err := persistence.DecodeParameters(idx.opts.codec, data)
		params = p
		return err
	})
	if err != nil {
		return translateLoadError(idx.opts.parametersPath, err)
	}
	metric, err := distance.ParseMetric(params.Metric)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptIndexState, err)
	}

	var ensemble *rptree.Ensemble
	err = blobstore.View(ctx, idx.blobs, idx.opts.indexPath, func(data []byte) error {
		if got := persistence.Checksum(data); got != params.StructureChecksum {
			return &persistence.ChecksumMismatchError{Section: "structure", Expected: params.StructureChecksum, Actual: got}
		}
		e, h, err := persistence.DecodeEnsemble(data)
		if err != nil {
			return err
		}
		if err := params.Matches(h); err != nil {
			return err
		}
		ensemble = e
		return nil
	})
	if err != nil {
		return translateLoadError(idx.opts.indexPath, err)
	}

	ids := make([]descriptor.ID, len(params.IDs))
	for i, id := range params.IDs {
		ids[i] = descriptor.ID(id)
	}

	s, err := idx.newState(ensemble, ids, params.NumTrees, params.Depth, params.RandomSeed, metric)
	if err != nil {
		return err
	}
	idx.publish(s)
	size = len(ids)
	return nil
}
