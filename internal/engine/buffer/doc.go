// Package buffer provides a thread-safe byte-addressable text buffer with
// two storage modes: loaded (full content in memory, eager line index) and
// chunked (file-backed, lazy reads, a sparse modification map).
//
// The buffer package provides:
//
//   - Thread-safe read/write access via sync.RWMutex
//   - Byte-offset addressed edits; offsets are opaque to Insert/Delete/Replace
//   - An eagerly maintained line-start index in loaded mode
//   - Automatic promotion to chunked mode for files over a configured threshold
//   - Atomic, fsync'd saves that compose disk reads with the modification map
//   - UTF-8/grapheme boundary-safe cursor-advance helpers (via uniseg)
//   - Read-only snapshots for concurrent access
//
// Basic usage:
//
//	buf := buffer.NewBufferFromString("Hello, World!")
//	buf.Insert(7, []byte("Beautiful "))
//	buf.Delete(buffer.Range{Start: 0, End: 7})
//
// Thread Safety:
//
// All Buffer methods are thread-safe. Read operations acquire a read lock,
// while write operations acquire an exclusive write lock. Snapshot() gives a
// read-only view that is safe to hand to another goroutine.
package buffer
