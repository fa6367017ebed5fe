// Package blobstore provides the storage abstraction for persisted index
// artifacts.
//
// A Store holds named, immutable blobs. Writers replace a blob wholesale with
// Put, which must be atomic: readers observe either the old or the new
// contents, never a torn write. Implementations must be safe for concurrent
// use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, reads via mmap
//   - MemoryStore: in-process map, for tests and ephemeral indexes
//   - s3.Store: Amazon S3 (blobstore/s3)
//   - minio.Store: MinIO and other S3-compatible servers (blobstore/minio)
//
// # Reading
//
// View hands the complete contents of a blob to a callback. Stores whose
// blobs implement Mappable pass the mapped bytes without copying; the slice
// is only valid inside the callback.
//
//	err := blobstore.View(ctx, store, "index.bin", func(data []byte) error {
//	    return decode(data)
//	})
package blobstore
