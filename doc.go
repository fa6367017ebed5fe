// Package mrpt implements approximate nearest-neighbor search with Multiple
// Random Projection Trees.
//
// An Index builds an ensemble of randomized binary trees over a population
// of descriptors. Each tree recursively splits the population at the median
// of its projections onto a random Gaussian direction. A query is routed to
// one leaf per tree; the union of those leaves is the candidate set, which is
// then ranked with an exact distance function.
//
// # Quick Start
//
//	store := descriptor.NewMemoryStore()
//	idx, _ := mrpt.New(ctx, store, mrpt.WithNumTrees(10), mrpt.WithDepth(5))
//	_ = idx.BuildIndex(ctx, descriptors)
//	neighbors, _ := idx.Query(ctx, query, 10)
//	for _, n := range neighbors {
//	    fmt.Println(n.ID, n.Distance)
//	}
//
// # Choosing Parameters
//
// Leaves hold roughly n/2^depth descriptors. To gather at least k candidates
// choose num_trees so that num_trees*leaf_size comfortably exceeds k; about
// 3k/leaf_size trees is a good start. The index does not enforce this: with
// too few or too small leaves a query returns fewer than k neighbors, which is
// a valid result.
//
// # Persistence
//
// With WithIndexPath and WithParametersPath set, BuildIndex saves the index
// before publishing it, so a failed save leaves the previous index in place,
// and New loads existing artifacts. Artifacts are read
// and written through a blobstore.Store (the local file system by default,
// or S3 and MinIO via blobstore/s3 and blobstore/minio).
//
// # Concurrency
//
// Queries never block. A build constructs a new ensemble off to the side and
// publishes it with one atomic pointer swap; concurrent builds serialize.
package mrpt
