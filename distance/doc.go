// Package distance provides the exact distance functions used to rank
// candidates after the projection trees have narrowed the search.
//
// # Supported Metrics
//
//   - MetricEuclidean: Euclidean (L2) distance (default)
//   - MetricCosine: Cosine distance (1 - cosine similarity)
//
// # Usage
//
//	fn, _ := distance.Provider(distance.MetricEuclidean)
//	d := fn(a, b)
package distance
