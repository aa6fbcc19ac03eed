package buffer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ninelines/scribe/internal/engine/errs"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
	ErrWouldTruncate    = errors.New("save would truncate: unloaded range unreachable")
	ErrLineModeOnly     = errors.New("operation only defined for loaded-mode buffers")
)

// LineEnding specifies the line ending style.
type LineEnding uint8

const (
	LineEndingLF   LineEnding = iota // Unix: \n
	LineEndingCRLF                   // Windows: \r\n
	LineEndingCR                     // Old Mac: \r
)

func (le LineEnding) Sequence() string {
	switch le {
	case LineEndingCRLF:
		return "\r\n"
	case LineEndingCR:
		return "\r"
	default:
		return "\n"
	}
}

// segment is one piece of a chunked buffer's content: either a run of bytes
// still on disk at the given original offset, or a run of bytes held in
// memory because an edit touched it.
type segment struct {
	diskOffset int64 // valid when mem == nil
	length     int64
	mem        []byte // non-nil for in-memory runs
}

func diskSeg(offset, length int64) segment { return segment{diskOffset: offset, length: length} }
func memSeg(b []byte) segment              { return segment{length: int64(len(b)), mem: b} }

// Buffer is a byte-addressable text buffer with a loaded (in-memory) and a
// chunked (file-backed) representation behind one contract.
type Buffer struct {
	mu         sync.RWMutex
	mode       Mode
	revisionID RevisionID
	lineEnding LineEnding
	tabWidth   int
	threshold  int64

	// Loaded mode.
	data  []byte
	lines []int64 // ascending byte offsets of line starts; lines[0] == 0

	// Chunked mode.
	path     string
	origSize int64
	segs     []segment
}

// NewBuffer creates a new empty buffer in loaded mode.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		mode:       ModeLoaded,
		data:       []byte{},
		lines:      []int64{0},
		revisionID: NewRevisionID(),
		lineEnding: LineEndingLF,
		tabWidth:   4,
		threshold:  DefaultChunkThreshold,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBufferFromString creates a loaded-mode buffer with initial content.
func NewBufferFromString(s string, opts ...Option) *Buffer {
	b := NewBuffer(opts...)
	b.data = []byte(b.normalizeLineEndings(s))
	b.lines = computeLineStarts(b.data)
	return b
}

// NewBufferFromReader creates a loaded-mode buffer from an io.Reader.
func NewBufferFromReader(r io.Reader, opts ...Option) (*Buffer, error) {
	b := NewBuffer(opts...)
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b.data = []byte(b.normalizeLineEndings(string(data)))
	b.lines = computeLineStarts(b.data)
	return b, nil
}

// Open opens path, loading it fully if its size is at or below the
// configured threshold, or switching to chunked mode otherwise.
func Open(path string, opts ...Option) (*Buffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &errs.IoError{Path: path, Cause: err}
	}

	b := NewBuffer(opts...)
	b.path = path

	if info.Size() <= b.threshold {
		f, err := os.Open(path)
		if err != nil {
			return nil, &errs.IoError{Path: path, Cause: err}
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, &errs.IoError{Path: path, Cause: err}
		}
		b.data = []byte(b.normalizeLineEndings(string(data)))
		b.lines = computeLineStarts(b.data)
		return b, nil
	}

	b.mode = ModeChunked
	b.origSize = info.Size()
	b.segs = []segment{diskSeg(0, info.Size())}
	return b, nil
}

func (b *Buffer) normalizeLineEndings(s string) string {
	switch b.lineEnding {
	case LineEndingCRLF:
		s = crlfNormalize(s)
		return lfToCRLF(s)
	case LineEndingCR:
		s = crlfNormalize(s)
		return lfToCR(s)
	default:
		return crlfNormalize(s)
	}
}

func crlfNormalize(s string) string {
	return replaceAll(replaceAll(s, "\r\n", "\n"), "\r", "\n")
}
func lfToCRLF(s string) string { return replaceAll(s, "\n", "\r\n") }
func lfToCR(s string) string   { return replaceAll(s, "\n", "\r") }

func replaceAll(s, old, new string) string {
	if old == new || old == "" {
		return s
	}
	return string(bytes.ReplaceAll([]byte(s), []byte(old), []byte(new)))
}

// Mode reports which storage representation the buffer currently uses.
func (b *Buffer) Mode() Mode {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mode
}

// Len returns the total byte length of the buffer's final content.
func (b *Buffer) Len() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lenLocked()
}

func (b *Buffer) lenLocked() int64 {
	if b.mode == ModeLoaded {
		return int64(len(b.data))
	}
	var n int64
	for _, s := range b.segs {
		n += s.length
	}
	return n
}

// Slice returns a copy of the bytes in r.
func (b *Buffer) Slice(r Range) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sliceLocked(r)
}

func (b *Buffer) sliceLocked(r Range) ([]byte, error) {
	length := b.lenLocked()
	if !r.IsValid() || r.Start < 0 || r.End > length {
		return nil, &errs.OutOfBounds{Position: r.End, Len: length}
	}
	if b.mode == ModeLoaded {
		out := make([]byte, r.Len())
		copy(out, b.data[r.Start:r.End])
		return out, nil
	}
	return b.sliceChunked(r.Start, r.End)
}

func (b *Buffer) sliceChunked(start, end int64) ([]byte, error) {
	out := make([]byte, 0, end-start)
	var cursor int64
	for _, s := range b.segs {
		segStart, segEnd := cursor, cursor+s.length
		cursor = segEnd
		if segEnd <= start || segStart >= end {
			continue
		}
		lo, hi := max64(start, segStart), min64(end, segEnd)
		if s.mem != nil {
			out = append(out, s.mem[lo-segStart:hi-segStart]...)
			continue
		}
		buf := make([]byte, hi-lo)
		f, err := os.Open(b.path)
		if err != nil {
			return nil, &errs.IoError{Path: b.path, Cause: err}
		}
		_, err = f.ReadAt(buf, s.diskOffset+(lo-segStart))
		f.Close()
		if err != nil && err != io.EOF {
			return nil, &errs.IoError{Path: b.path, Cause: err}
		}
		out = append(out, buf...)
	}
	return out, nil
}

// Text returns the full buffer content as a string. Prefer Slice for large
// chunked buffers.
func (b *Buffer) Text() (string, error) {
	data, err := b.Slice(Range{Start: 0, End: b.Len()})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Insert inserts data at pos.
func (b *Buffer) Insert(pos int64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	length := b.lenLocked()
	if pos < 0 || pos > length {
		return &errs.OutOfBounds{Position: pos, Len: length}
	}
	data = []byte(b.normalizeLineEndings(string(data)))

	if b.mode == ModeLoaded {
		atEnd := pos == int64(len(b.data))
		newData := make([]byte, 0, len(b.data)+len(data))
		newData = append(newData, b.data[:pos]...)
		newData = append(newData, data...)
		newData = append(newData, b.data[pos:]...)
		b.data = newData
		b.lines = shiftLineStartsForInsert(b.lines, pos, data, atEnd)
	} else {
		b.segs = spliceInsert(b.segs, pos, data)
	}
	b.revisionID = NewRevisionID()
	return nil
}

// Delete removes the bytes in r and returns the removed content.
func (b *Buffer) Delete(r Range) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	length := b.lenLocked()
	if !r.IsValid() || r.Start < 0 || r.End > length {
		return nil, &errs.OutOfBounds{Position: r.End, Len: length}
	}

	removed, err := b.sliceLocked(r)
	if err != nil {
		return nil, err
	}

	if b.mode == ModeLoaded {
		newData := make([]byte, 0, len(b.data)-int(r.Len()))
		newData = append(newData, b.data[:r.Start]...)
		newData = append(newData, b.data[r.End:]...)
		b.data = newData
		b.lines = shiftLineStartsForDelete(b.lines, r.Start, r.End)
	} else {
		b.segs = spliceDelete(b.segs, r.Start, r.End)
	}
	b.revisionID = NewRevisionID()
	return removed, nil
}

// Replace replaces the bytes in r with data and returns the removed content.
func (b *Buffer) Replace(r Range, data []byte) ([]byte, error) {
	old, err := b.Delete(r)
	if err != nil {
		return nil, err
	}
	if err := b.Insert(r.Start, data); err != nil {
		return old, err
	}
	return old, nil
}

// LineCount returns the number of lines. Defined only for loaded-mode
// buffers.
func (b *Buffer) LineCount() (uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.mode != ModeLoaded {
		return 0, ErrLineModeOnly
	}
	n := len(b.lines)
	if len(b.data) > 0 && b.data[len(b.data)-1] == '\n' {
		n++ // trailing empty line after a final newline
	}
	return uint32(n), nil
}

// LineStart returns the byte offset at which line starts. Defined only for
// loaded-mode buffers.
func (b *Buffer) LineStart(line uint32) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.mode != ModeLoaded {
		return 0, ErrLineModeOnly
	}
	if int(line) >= len(b.lines) {
		if int(line) == len(b.lines) && len(b.data) > 0 && b.data[len(b.data)-1] == '\n' {
			return int64(len(b.data)), nil
		}
		return 0, &errs.OutOfBounds{Position: int64(line), Len: int64(len(b.lines))}
	}
	return b.lines[line], nil
}

// LineOf returns the line index containing pos. Defined only for
// loaded-mode buffers.
func (b *Buffer) LineOf(pos int64) (uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.mode != ModeLoaded {
		return 0, ErrLineModeOnly
	}
	if pos < 0 || pos > int64(len(b.data)) {
		return 0, &errs.OutOfBounds{Position: pos, Len: int64(len(b.data))}
	}
	// Binary search for the last line start <= pos.
	lo, hi := 0, len(b.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if b.lines[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return uint32(lo), nil
}

// LineEnding returns the buffer's configured line-ending style.
func (b *Buffer) LineEnding() LineEnding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lineEnding
}

// TabWidth returns the buffer's tab width.
func (b *Buffer) TabWidth() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tabWidth
}

// RevisionID returns the buffer's current revision.
func (b *Buffer) RevisionID() RevisionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revisionID
}

// Path returns the backing file path, or "" for a buffer with no file.
func (b *Buffer) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Save writes the buffer's full final content to its backing path using a
// write-temp-then-rename sequence, fsyncing the file and its parent
// directory before returning.
func (b *Buffer) Save(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if path == "" {
		path = b.path
	}
	if path == "" {
		return fmt.Errorf("save: %w", ErrOffsetOutOfRange)
	}

	content, err := b.sliceLocked(Range{Start: 0, End: b.lenLocked()})
	if err != nil {
		return err
	}
	if b.mode == ModeChunked {
		if err := b.verifyReachableLocked(); err != nil {
			return err
		}
	}

	if err := atomicWrite(path, content); err != nil {
		return err
	}

	if b.mode == ModeChunked {
		b.path = path
		b.origSize = int64(len(content))
		b.segs = []segment{diskSeg(0, int64(len(content)))}
	} else {
		b.path = path
	}
	return nil
}

// verifyReachableLocked checks that every disk segment's byte range still
// exists within the backing file, failing with ErrWouldTruncate otherwise.
func (b *Buffer) verifyReachableLocked() error {
	info, err := os.Stat(b.path)
	if err != nil {
		return &errs.IoError{Path: b.path, Cause: err}
	}
	for _, s := range b.segs {
		if s.mem == nil && s.diskOffset+s.length > info.Size() {
			return fmt.Errorf("save %s: %w", b.path, ErrWouldTruncate)
		}
	}
	return nil
}

// ReloadFromDisk discards in-memory edits and re-reads the backing file,
// re-evaluating loaded vs. chunked mode against the threshold.
func (b *Buffer) ReloadFromDisk() error {
	b.mu.Lock()
	path, threshold, le, tw := b.path, b.threshold, b.lineEnding, b.tabWidth
	b.mu.Unlock()

	if path == "" {
		return fmt.Errorf("reload: %w", ErrOffsetOutOfRange)
	}
	fresh, err := Open(path, WithLineEnding(le), WithTabWidth(tw), withThreshold(threshold))
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = fresh.mode
	b.revisionID = fresh.revisionID
	b.lineEnding = fresh.lineEnding
	b.tabWidth = fresh.tabWidth
	b.threshold = fresh.threshold
	b.data = fresh.data
	b.lines = fresh.lines
	b.path = fresh.path
	b.origSize = fresh.origSize
	b.segs = fresh.segs
	b.revisionID = NewRevisionID()
	return nil
}

// ModifiedChunks returns the buffer's in-memory modified regions expressed
// as final-offset chunks, suitable for recovery snapshotting. Only
// meaningful in chunked mode; loaded-mode buffers return a single full-
// content chunk.
func (b *Buffer) ModifiedChunks() []RecoveryChunk {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.mode == ModeLoaded {
		return []RecoveryChunk{{Offset: 0, OriginalLen: 0, NewBytes: append([]byte(nil), b.data...)}}
	}

	var chunks []RecoveryChunk
	var finalCursor, expectedOrig int64
	for _, s := range b.segs {
		if s.mem != nil {
			chunks = append(chunks, RecoveryChunk{Offset: finalCursor, OriginalLen: 0, NewBytes: append([]byte(nil), s.mem...)})
			finalCursor += s.length
			continue
		}
		if s.diskOffset > expectedOrig {
			chunks = append(chunks, RecoveryChunk{Offset: finalCursor, OriginalLen: s.diskOffset - expectedOrig})
		}
		expectedOrig = s.diskOffset + s.length
		finalCursor += s.length
	}
	return chunks
}

// RecoveryChunk is a modified-region chunk as described by the recovery
// metadata contract: the final-stream offset it occupies, the number of
// original bytes it replaces (0 for pure insertions), and its replacement
// content (empty for pure deletions).
type RecoveryChunk struct {
	Offset      int64
	OriginalLen int64
	NewBytes    []byte
}

func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmpName := path + ".tmp-" + strconv.Itoa(os.Getpid())
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return &errs.IoError{Path: path, Cause: err}
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &errs.IoError{Path: path, Cause: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &errs.IoError{Path: path, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &errs.IoError{Path: path, Cause: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &errs.IoError{Path: path, Cause: err}
	}
	fsyncParentDir(dir)
	return nil
}

// fsyncParentDir fsyncs the directory entry after a rename so the rename
// itself survives a crash. Best-effort: some filesystems/platforms don't
// support directory fsync, so failures are not fatal to the save.
func fsyncParentDir(dir string) {
	fd, err := unix.Open(dir, unix.O_RDONLY, 0)
	if err != nil {
		return
	}
	defer unix.Close(fd)
	_ = unix.Fsync(fd)
}

// computeLineStarts returns ascending byte offsets of line starts: 0, plus
// one entry per '\n' found (at its index + 1). A buffer ending in '\n' gets
// a trailing empty line, handled by LineCount/LineStart rather than kept as
// a redundant index entry here.
func computeLineStarts(data []byte) []int64 {
	lines := []int64{0}
	for i, c := range data {
		if c == '\n' && i+1 < len(data) {
			lines = append(lines, int64(i+1))
		}
	}
	return lines
}

// shiftLineStartsForInsert rebuilds the line-start index after inserting
// len(inserted) bytes at pos. atEnd is true when pos was the buffer's
// length before the insertion (a pure append), which matters for a final
// '\n' in inserted: a trailing newline at the very end of the whole buffer
// does not get its own index entry (see computeLineStarts).
func shiftLineStartsForInsert(lines []int64, pos int64, inserted []byte, atEnd bool) []int64 {
	out := make([]int64, 0, len(lines)+4)
	for _, ls := range lines {
		if ls > pos {
			out = append(out, ls+int64(len(inserted)))
		} else {
			out = append(out, ls)
		}
	}
	var newStarts []int64
	for i, c := range inserted {
		if c != '\n' {
			continue
		}
		if atEnd && i == len(inserted)-1 {
			continue
		}
		newStarts = append(newStarts, pos+int64(i)+1)
	}
	if len(newStarts) == 0 {
		return out
	}
	merged := append(out, newStarts...)
	sortInt64s(merged)
	return dedupe(merged)
}

func shiftLineStartsForDelete(lines []int64, start, end int64) []int64 {
	out := make([]int64, 0, len(lines))
	delta := end - start
	for _, ls := range lines {
		switch {
		case ls <= start:
			out = append(out, ls)
		case ls <= end:
			// this line start's newline fell inside the deleted range
		default:
			out = append(out, ls-delta)
		}
	}
	if len(out) == 0 {
		out = []int64{0}
	}
	return out
}

func dedupe(s []int64) []int64 {
	out := s[:0]
	var last int64 = -1
	for _, v := range s {
		if v != last {
			out = append(out, v)
			last = v
		}
	}
	return out
}

func spliceInsert(segs []segment, pos int64, data []byte) []segment {
	out := make([]segment, 0, len(segs)+2)
	var cursor int64
	inserted := false
	for _, s := range segs {
		segStart, segEnd := cursor, cursor+s.length
		cursor = segEnd
		if !inserted && pos >= segStart && pos <= segEnd {
			left, right := splitSegment(s, pos-segStart)
			if left.length > 0 {
				out = append(out, left)
			}
			out = append(out, memSeg(data))
			if right.length > 0 {
				out = append(out, right)
			}
			inserted = true
			continue
		}
		out = append(out, s)
	}
	if !inserted {
		out = append(out, memSeg(data))
	}
	return coalesce(out)
}

func spliceDelete(segs []segment, start, end int64) []segment {
	out := make([]segment, 0, len(segs))
	var cursor int64
	for _, s := range segs {
		segStart, segEnd := cursor, cursor+s.length
		cursor = segEnd
		if segEnd <= start || segStart >= end {
			out = append(out, s)
			continue
		}
		// Keep the part before the deleted range.
		if segStart < start {
			left, _ := splitSegment(s, start-segStart)
			out = append(out, left)
		}
		// Keep the part after the deleted range.
		if segEnd > end {
			_, right := splitSegment(s, end-segStart)
			out = append(out, right)
		}
	}
	return coalesce(out)
}

// splitSegment splits s at the given local offset into two segments whose
// lengths sum to s.length.
func splitSegment(s segment, at int64) (segment, segment) {
	if s.mem != nil {
		return memSeg(s.mem[:at]), memSeg(s.mem[at:])
	}
	return diskSeg(s.diskOffset, at), diskSeg(s.diskOffset+at, s.length-at)
}

// coalesce merges adjacent mem segments and drops zero-length segments.
func coalesce(segs []segment) []segment {
	out := make([]segment, 0, len(segs))
	for _, s := range segs {
		if s.length == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].mem != nil && s.mem != nil {
			out[n-1].mem = append(out[n-1].mem, s.mem...)
			out[n-1].length += s.length
			continue
		}
		out = append(out, s)
	}
	return out
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
