// Package mmap maps tile files read-only into memory.
//
// Tile containers are parsed in place: chunk payloads returned by the parser
// alias the mapping, so a whole directory walk never copies file contents
// through the heap.
//
//	m, err := mmap.Open("Norder3/Dir0/Npix42.eph")
//	if err != nil { ... }
//	defer m.Close()
//
//	m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix uses mmap(2) and madvise(2). Windows uses CreateFileMapping and
// MapViewOfFile; Advise is a no-op there.
//
// A Mapping is safe for concurrent reads. Close is idempotent, but callers
// must not touch Bytes after Close returns.
package mmap
