package buffer

import (
	"fmt"
	"sync/atomic"
)

// ByteOffset is a byte position in the buffer. Byte offsets are the
// authoritative position type throughout the engine; line/column views
// are derived from the line index on demand.
type ByteOffset = int64

// Point is a derived line/column position, both 0-indexed, with the
// column measured in bytes from the line start.
type Point struct {
	Line   uint32
	Column uint32
}

func (p Point) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Column)
}

// Compare returns -1, 0, or 1 as p sorts before, equal to, or after
// other.
func (p Point) Compare(other Point) int {
	switch {
	case p.Line != other.Line:
		if p.Line < other.Line {
			return -1
		}
		return 1
	case p.Column != other.Column:
		if p.Column < other.Column {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// PointOf converts a byte offset to a line/column point. Loaded mode
// only.
func (b *Buffer) PointOf(pos ByteOffset) (Point, error) {
	line, err := b.LineOf(pos)
	if err != nil {
		return Point{}, err
	}
	start, err := b.LineStart(line)
	if err != nil {
		return Point{}, err
	}
	return Point{Line: line, Column: uint32(pos - start)}, nil
}

// RevisionID uniquely identifies a buffer revision; every mutation mints
// a new one. Subsystems holding derived data (syntax spans, search
// results) compare revisions to detect staleness.
type RevisionID uint64

var revisionCounter uint64

// NewRevisionID returns a process-unique revision id.
func NewRevisionID() RevisionID {
	return RevisionID(atomic.AddUint64(&revisionCounter, 1))
}
