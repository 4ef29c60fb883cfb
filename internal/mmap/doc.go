// Package mmap provides read-only memory-mapped file access.
//
// The row store maps a spill file once, decodes every segment from the
// mapping and unmaps it again; the whole file is read front to back exactly
// once, so the mapping is advised as sequential:
//
//	m, err := mmap.Open(path)
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (advice is a no-op)
package mmap
