package testutil

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/mrpt/descriptor"
	"github.com/hupe1980/mrpt/distance"
)

// SearchResult represents a search result.
type SearchResult struct {
	ID       descriptor.ID
	Distance float64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Shuffle pseudo-randomizes the order of n elements.
func (r *RNG) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Shuffle(n, swap)
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dimensions)
	vectors := make([][]float64, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float64()
		}
		vectors[i] = vec
	}

	return vectors
}

// GaussianVectors generates random vectors with values from a standard normal distribution.
func (r *RNG) GaussianVectors(num int, dimensions int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dimensions)
	vectors := make([][]float64, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.NormFloat64()
		}
		vectors[i] = vec
	}

	return vectors
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
func (r *RNG) UnitVectors(num int, dimensions int) [][]float64 {
	vectors := r.GaussianVectors(num, dimensions)
	for _, vec := range vectors {
		var norm float64
		for _, v := range vec {
			norm += v * v
		}
		if norm == 0 {
			norm = 1
		}
		inv := 1 / math.Sqrt(norm)
		for j := range vec {
			vec[j] *= inv
		}
	}
	return vectors
}

// UniformDescriptors generates num descriptors with IDs 0..num-1 and
// uniform [0, 1) vectors.
func (r *RNG) UniformDescriptors(num int, dimensions int) []descriptor.Descriptor {
	return Descriptors(r.UniformVectors(num, dimensions))
}

// Descriptors pairs vectors with sequential IDs starting at 0.
func Descriptors(vectors [][]float64) []descriptor.Descriptor {
	out := make([]descriptor.Descriptor, len(vectors))
	for i, v := range vectors {
		out[i] = descriptor.Descriptor{ID: descriptor.ID(i), Vector: v}
	}
	return out
}

// ExactTopK computes the exact k nearest descriptors to query by brute force.
// Ties are broken by ID.
func ExactTopK(query []float64, descs []descriptor.Descriptor, k int, fn distance.Func) []SearchResult {
	results := make([]SearchResult, len(descs))
	for i, d := range descs {
		results[i] = SearchResult{ID: d.ID, Distance: fn(query, d.Vector)}
	}
	slices.SortFunc(results, func(a, b SearchResult) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return results[:min(k, len(results))]
}

// ComputeRecall computes recall@k by comparing approximate results against ground truth.
func ComputeRecall(groundTruth, approximate []SearchResult) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truthSet := make(map[descriptor.ID]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].ID] = struct{}{}
	}

	hits := 0
	for _, r := range approximate {
		if _, ok := truthSet[r.ID]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}
