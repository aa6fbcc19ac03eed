package buffer

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Boundary helpers for cursor movement. Edits themselves treat content as
// opaque bytes and trust the caller; only the cursor-advancing helpers
// here decode, and they step by grapheme cluster so a cursor never lands
// inside a combining sequence or a multi-byte rune.

// NextBoundary returns the byte offset of the next grapheme-cluster
// boundary strictly after pos, or Len() when pos is at or past the end.
func (b *Buffer) NextBoundary(pos ByteOffset) (ByteOffset, error) {
	length := b.Len()
	if pos >= length {
		return length, nil
	}
	if pos < 0 {
		pos = 0
	}

	// One cluster is at most a few runes; a short read past pos is enough
	// for uniseg.FirstGraphemeCluster to find the boundary without
	// decoding the rest of the buffer.
	end := pos + 64
	if end > length {
		end = length
	}
	window, err := b.Slice(Range{Start: pos, End: end})
	if err != nil {
		return 0, err
	}
	cluster, _, _, _ := uniseg.FirstGraphemeCluster(window, -1)
	if len(cluster) == 0 {
		return pos + 1, nil
	}
	return pos + ByteOffset(len(cluster)), nil
}

// PrevBoundary returns the byte offset of the previous grapheme-cluster
// boundary strictly before pos, or 0 when pos is at or before the start.
func (b *Buffer) PrevBoundary(pos ByteOffset) (ByteOffset, error) {
	if pos <= 0 {
		return 0, nil
	}
	length := b.Len()
	if pos > length {
		pos = length
	}

	// Walk clusters forward through a bounded window ending at pos; the
	// last boundary seen before pos is the answer. Grapheme clusters are
	// short, so a fixed window is safe.
	start := pos - 256
	if start < 0 {
		start = 0
	}
	window, err := b.Slice(Range{Start: start, End: pos})
	if err != nil {
		return 0, err
	}
	// Skip forward to a rune boundary so the walk doesn't begin mid-rune.
	off := 0
	for off < len(window) && !utf8.RuneStart(window[off]) {
		off++
	}

	prev := start + ByteOffset(off)
	rest := window[off:]
	state := -1
	for len(rest) > 0 {
		cluster, tail, _, newState := uniseg.FirstGraphemeCluster(rest, state)
		next := prev + ByteOffset(len(cluster))
		if next >= pos {
			return prev, nil
		}
		prev = next
		rest = tail
		state = newState
	}
	return prev, nil
}

// IsBoundary reports whether pos sits on a UTF-8 code-point boundary.
// Offsets at 0 or Len() are boundaries by definition.
func (b *Buffer) IsBoundary(pos ByteOffset) (bool, error) {
	length := b.Len()
	if pos <= 0 || pos >= length {
		return true, nil
	}
	window, err := b.Slice(Range{Start: pos, End: pos + 1})
	if err != nil {
		return false, err
	}
	return utf8.RuneStart(window[0]), nil
}
