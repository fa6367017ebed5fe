// Package descriptor defines the Descriptor Store consumed by the index.
//
// A descriptor is an identifier plus a fixed-dimension feature vector. The
// store owns the vectors; the index keeps identifiers only and resolves them
// through the store at query time.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, safe for concurrent use
//   - sqlite.Store: durable SQLite table (package descriptor/sqlite)
//   - dynamodb.Store: DynamoDB table (package descriptor/dynamodb)
//   - cache.Store: read-through LRU in front of any Store (package descriptor/cache)
//
// # Custom Implementations
//
//	type Store interface {
//	    GetVector(ctx, id) ([]float64, error)   // ErrNotFound if absent
//	    AllIdentifiers(ctx) ([]ID, error)
//	}
//
// Stores that can be populated by a build implement Writer; stores that can
// resolve many identifiers in one round trip implement BatchGetter.
package descriptor
