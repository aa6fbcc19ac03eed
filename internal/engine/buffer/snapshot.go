package buffer

// Snapshot is a read-only, immutable view of a buffer's content at the
// moment it was taken. Safe for concurrent access from other goroutines
// and unaffected by later edits to the source buffer.
type Snapshot struct {
	data       []byte
	lines      []int64
	revisionID RevisionID
	lineEnding LineEnding
	tabWidth   int
}

// Snapshot materializes the buffer's current final content into an
// immutable snapshot. For chunked buffers this reads any unloaded ranges
// from disk once, up front.
func (b *Buffer) Snapshot() (*Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := b.sliceLocked(Range{Start: 0, End: b.lenLocked()})
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		data:       data,
		lines:      computeLineStarts(data),
		revisionID: b.revisionID,
		lineEnding: b.lineEnding,
		tabWidth:   b.tabWidth,
	}, nil
}

func (s *Snapshot) Text() string { return string(s.data) }

func (s *Snapshot) TextRange(r Range) string {
	if r.Start < 0 || r.End > int64(len(s.data)) || !r.IsValid() {
		return ""
	}
	return string(s.data[r.Start:r.End])
}

func (s *Snapshot) Len() int64 { return int64(len(s.data)) }

func (s *Snapshot) LineCount() uint32 {
	n := len(s.lines)
	if len(s.data) > 0 && s.data[len(s.data)-1] == '\n' {
		n++
	}
	return uint32(n)
}

func (s *Snapshot) RevisionID() RevisionID { return s.revisionID }
func (s *Snapshot) LineEnding() LineEnding { return s.lineEnding }
func (s *Snapshot) TabWidth() int          { return s.tabWidth }
