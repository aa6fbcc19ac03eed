package cursor

import "sort"

// ID stably names one cursor across edits, independent of its position in
// any ordering. The dispatcher and event log address cursors by ID rather
// than by index so that AddCursor/RemoveCursor events remain well-defined
// even after a MoveCursor has reordered the underlying positions.
type ID uint64

// IDSet holds the document's cursors: a map from ID to Selection plus a
// designated primary id. Merging sorts selections by start and folds
// overlapping ones together, carrying the surviving id through the merge
// so event-log references stay valid.
type IDSet struct {
	selections map[ID]Selection
	primary    ID
	nextID     ID
}

// NewIDSet creates a set with a single cursor at offset, designated primary.
func NewIDSet(offset ByteOffset) *IDSet {
	s := &IDSet{selections: make(map[ID]Selection)}
	id := s.allocID()
	s.selections[id] = NewCursorSelection(offset)
	s.primary = id
	return s
}

func (s *IDSet) allocID() ID {
	s.nextID++
	return s.nextID
}

// Add inserts a new cursor, makes it primary, and returns its id. If the
// new selection overlaps an existing one, they are merged under the
// surviving (lower) id, which becomes primary and is returned instead of
// a freshly allocated one.
func (s *IDSet) Add(sel Selection) ID {
	id := s.allocID()
	s.selections[id] = sel
	s.primary = id
	survivor := s.mergeOverlaps()
	if winner, ok := survivor[id]; ok {
		return winner
	}
	return id
}

// Remove deletes a cursor by id. If it was primary, the lowest remaining
// id (by insertion order of surviving ids) becomes primary.
func (s *IDSet) Remove(id ID) {
	delete(s.selections, id)
	if s.primary == id {
		s.primary = s.lowestID()
	}
}

func (s *IDSet) lowestID() ID {
	var best ID
	first := true
	for id := range s.selections {
		if first || id < best {
			best = id
			first = false
		}
	}
	return best
}

// MoveTo updates the selection for an existing cursor id.
func (s *IDSet) MoveTo(id ID, sel Selection) {
	if _, ok := s.selections[id]; !ok {
		return
	}
	s.selections[id] = sel
	s.mergeOverlaps()
}

// Get returns the selection for id and whether it exists.
func (s *IDSet) Get(id ID) (Selection, bool) {
	sel, ok := s.selections[id]
	return sel, ok
}

// Primary returns the primary cursor's id and selection.
func (s *IDSet) Primary() (ID, Selection) {
	return s.primary, s.selections[s.primary]
}

// SetPrimary designates id as primary if it exists.
func (s *IDSet) SetPrimary(id ID) {
	if _, ok := s.selections[id]; ok {
		s.primary = id
	}
}

// Count returns the number of live cursors.
func (s *IDSet) Count() int { return len(s.selections) }

// IsMulti reports whether there is more than one cursor.
func (s *IDSet) IsMulti() bool { return len(s.selections) > 1 }

// All returns every (id, selection) pair, ordered by selection start
// ascending for deterministic iteration (e.g. rendering cursors in
// document order).
func (s *IDSet) All() []struct {
	ID ID
	Selection Selection
} {
	out := make([]struct {
		ID        ID
		Selection Selection
	}, 0, len(s.selections))
	for id, sel := range s.selections {
		out = append(out, struct {
			ID        ID
			Selection Selection
		}{id, sel})
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Selection.Start(), out[j].Selection.Start()
		if si != sj {
			return si < sj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Clamp clamps every selection to [0, maxOffset] and re-merges overlaps.
func (s *IDSet) Clamp(maxOffset ByteOffset) {
	for id, sel := range s.selections {
		s.selections[id] = sel.Clamp(maxOffset)
	}
	s.mergeOverlaps()
}

// CollapseAll collapses every selection to a cursor at its head.
func (s *IDSet) CollapseAll() {
	for id, sel := range s.selections {
		s.selections[id] = sel.Collapse()
	}
}

// mergeOverlaps sorts all (id, selection) pairs by start (ties broken by
// larger range first) and merges any whose
// ranges overlap or touch, keeping the lowest id of each merged group as
// the survivor. It returns a map from any id that was merged away to its
// surviving id, so callers that just inserted a specific id can discover
// whether it was absorbed into another cursor.
func (s *IDSet) mergeOverlaps() map[ID]ID {
	type entry struct {
		id  ID
		sel Selection
	}
	entries := make([]entry, 0, len(s.selections))
	for id, sel := range s.selections {
		entries = append(entries, entry{id, sel})
	}
	sort.Slice(entries, func(i, j int) bool {
		si, sj := entries[i].sel.Start(), entries[j].sel.Start()
		if si != sj {
			return si < sj
		}
		return entries[i].sel.End() > entries[j].sel.End()
	})

	redirect := make(map[ID]ID)
	if len(entries) == 0 {
		return redirect
	}

	merged := []entry{entries[0]}
	for _, e := range entries[1:] {
		last := &merged[len(merged)-1]
		if e.sel.Start() <= last.sel.End() {
			last.sel = last.sel.Merge(e.sel)
			if e.id < last.id {
				// The lower id survives; re-point ids already folded into
				// the previous survivor.
				for from, to := range redirect {
					if to == last.id {
						redirect[from] = e.id
					}
				}
				redirect[last.id] = e.id
				last.id = e.id
			} else {
				redirect[e.id] = last.id
			}
		} else {
			merged = append(merged, e)
		}
	}

	newSelections := make(map[ID]Selection, len(merged))
	for _, e := range merged {
		newSelections[e.id] = e.sel
	}
	s.selections = newSelections
	if target, ok := redirect[s.primary]; ok {
		s.primary = target
	}
	return redirect
}
