package cursor

// AdjustOffset maps a byte offset across an edit at pos with delta bytes
// (positive for an insertion of delta bytes at pos, negative for a
// deletion of |delta| bytes starting at pos):
//
//   - offsets at or before pos are unchanged
//   - offsets past the edit shift by delta
//   - offsets inside a deleted range collapse to the deletion start
func AdjustOffset(off, pos, delta ByteOffset) ByteOffset {
	if delta >= 0 {
		if off > pos {
			return off + delta
		}
		return off
	}
	end := pos - delta
	switch {
	case off <= pos:
		return off
	case off >= end:
		return off + delta
	default:
		return pos
	}
}

// AdjustForEdit shifts every cursor in the set for an edit at pos with
// delta bytes. The cursor that made the edit (editing, if present in the
// set) is placed, collapsed to a bare cursor, at the edit's right edge:
// the end of inserted text, or the deletion start. All other cursors have
// anchor and head mapped independently through AdjustOffset, then
// overlapping selections are re-merged.
func (s *IDSet) AdjustForEdit(pos, delta ByteOffset, editing ID) {
	edge := pos
	if delta > 0 {
		edge = pos + delta
	}
	for id, sel := range s.selections {
		if id == editing {
			s.selections[id] = NewCursorSelection(edge)
			continue
		}
		s.selections[id] = Selection{
			Anchor: AdjustOffset(sel.Anchor, pos, delta),
			Head:   AdjustOffset(sel.Head, pos, delta),
		}
	}
	s.mergeOverlaps()
}
