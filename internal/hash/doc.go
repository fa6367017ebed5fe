// Package hash provides the CRC32-Castagnoli checksums used to protect
// persisted index artifacts.
//
// One-shot:
//
//	sum := hash.CRC32C(data)
//
// Streaming:
//
//	h := hash.NewCRC32C()
//	h.Write(header)
//	h.Write(payload)
//	sum := h.Sum32()
//
// The standard library selects SSE4.2 or ARM CRC instructions when present.
package hash
