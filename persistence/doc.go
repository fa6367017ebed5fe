// Package persistence defines the on-disk form of an index.
//
// An index is stored as two artifacts:
//
//   - the structural artifact, a binary file holding every tree of the
//     ensemble (projection vectors, thresholds, child links and leaf
//     ordinals);
//   - the parameters artifact, a JSON document holding the index parameters,
//     the population identifiers and the CRC32C of the structural artifact.
//
// # Structural Layout
//
//	+--------------------+ 0
//	| FileHeader (64 B)  |  magic "MRPT", version, counts, compression,
//	|                    |  payload length/CRC, header CRC
//	+--------------------+ 64
//	| payload            |  optionally zstd or lz4 compressed
//	+--------------------+
//
// The uncompressed payload is little-endian. For every tree it holds the
// node count followed by the nodes in arena order. A split node is tagged 1
// and carries its threshold, left and right child indices and the projection
// vector; a leaf is tagged 0 and carries its member count and ordinals.
//
// Decoding validates the header, both checksums, every child index and every
// ordinal, so a truncated or corrupted artifact is reported as an error
// rather than producing a wrong tree.
package persistence
