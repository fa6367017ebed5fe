// Package mmap provides read-only memory-mapped file access.
//
// Artifacts opened through the local blob store are mapped instead of read,
// so loading an index touches only the pages the decoder walks.
//
//	m, err := mmap.Open("index.bin")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// On Unix the mapping uses mmap(2) with madvise(2) hints; on Windows it uses
// CreateFileMapping/MapViewOfFile and hints are ignored.
//
// A Mapping may be read concurrently. Close is idempotent; callers must not
// touch Bytes() after Close returns.
package mmap
