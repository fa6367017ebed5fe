// Package testutil provides testing utilities for mrpt.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random descriptors, computing exact
// nearest neighbors, and verifying search recall.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UniformVectors(1000, 128)    // uniform [0, 1)
//	descs := rng.UniformDescriptors(1000, 128)
//
// # Exact Search (Ground Truth)
//
//	results := testutil.ExactTopK(query, descs, k, distance.Euclidean)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(exactResults, approxResults)
package testutil
