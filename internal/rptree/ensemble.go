package rptree

import (
	"context"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoVectors is returned when a tree or ensemble is built over nothing.
	ErrNoVectors = errors.New("rptree: no vectors")

	// ErrInvalidParams is returned for non-positive tree counts or depths.
	ErrInvalidParams = errors.New("rptree: invalid parameters")
)

// Params configures ensemble construction.
type Params struct {
	NumTrees int
	Depth    int
	Seed     int64
	// Workers bounds concurrent tree builds. Zero means GOMAXPROCS.
	Workers int
	// Slots, when set, is acquired around every tree build so that
	// concurrent builds of different ensembles share one budget.
	Slots Slots
}

// Slots is a shared pool of build worker slots.
type Slots interface {
	AcquireBuild(ctx context.Context) error
	ReleaseBuild()
}

// Ensemble is an ordered set of trees built over the same population.
// It is immutable once returned by BuildEnsemble or assembled by a decoder.
type Ensemble struct {
	Trees     []*Tree
	Depth     int
	Dimension int
	Size      int
}

// TreeSource returns the random source for tree index i under seed.
// The stream is a pure function of (seed, i).
func TreeSource(seed int64, i int) rand.Source {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(i))

	d := xxhash.New()
	_, _ = d.Write(buf[:])
	hi := d.Sum64()
	_, _ = d.Write([]byte{0xff})
	lo := d.Sum64()
	return rand.NewPCG(hi, lo)
}

// BuildEnsemble builds p.NumTrees trees over vectors in parallel.
// All vectors must share one dimension.
func BuildEnsemble(ctx context.Context, vectors [][]float64, p Params) (*Ensemble, error) {
	if p.NumTrees < 1 || p.Depth < 1 {
		return nil, ErrInvalidParams
	}
	if len(vectors) == 0 {
		return nil, ErrNoVectors
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*Tree, p.NumTrees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			if p.Slots != nil {
				if err := p.Slots.AcquireBuild(gctx); err != nil {
					return err
				}
				defer p.Slots.ReleaseBuild()
			}
			t, err := BuildTree(gctx, vectors, p.Depth, TreeSource(p.Seed, i))
			if err != nil {
				return err
			}
			trees[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Ensemble{
		Trees:     trees,
		Depth:     p.Depth,
		Dimension: len(vectors[0]),
		Size:      len(vectors),
	}, nil
}

// Candidates unions the leaf reached in every tree.
func (e *Ensemble) Candidates(query []float64) *roaring.Bitmap {
	bm := roaring.New()
	for _, t := range e.Trees {
		bm.AddMany(t.Leaf(query))
	}
	return bm
}

// Stats summarizes leaf occupancy across the ensemble.
type Stats struct {
	Trees       int
	Leaves      int
	MinLeafSize int
	MaxLeafSize int
	AvgLeafSize float64
}

// Stats returns leaf occupancy statistics.
func (e *Ensemble) Stats() Stats {
	s := Stats{Trees: len(e.Trees), MinLeafSize: -1}
	total := 0
	for _, t := range e.Trees {
		for _, members := range t.Leaves() {
			n := len(members)
			s.Leaves++
			total += n
			if s.MinLeafSize < 0 || n < s.MinLeafSize {
				s.MinLeafSize = n
			}
			if n > s.MaxLeafSize {
				s.MaxLeafSize = n
			}
		}
	}
	if s.Leaves > 0 {
		s.AvgLeafSize = float64(total) / float64(s.Leaves)
	} else {
		s.MinLeafSize = 0
	}
	return s
}
