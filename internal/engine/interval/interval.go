// Package interval implements the order-statistic interval tree that
// anchors markers, overlays, and line-anchor bookmarks through edits. It is
// the position-tracking substrate described by the editing engine: every
// marker carries a stable id and an interval, and AdjustForEdit keeps
// those intervals correct as the buffer is mutated without ever reordering
// or silently dropping a marker.
package interval

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when an id does not name a live marker.
var ErrNotFound = errors.New("marker not found")

// ErrIDInUse is returned by InsertWithID for an id that already names a
// live marker.
var ErrIDInUse = errors.New("marker id in use")

// ID uniquely identifies a marker within a Tree.
type ID uint64

// Affinity controls which side of an edit point a zero-length point
// marker binds to. Per the documented, unresolved open question, the
// default Tree.AdjustForEdit behavior is interval-tree semantics (a point
// marker at the edit position shifts with an insertion); Affinity is
// recorded on the payload for callers that want to reason about it, but it
// is not consulted by AdjustForEdit itself.
type Affinity uint8

const (
	AffinityRight Affinity = iota
	AffinityLeft
)

// AnchorConfidence reports how trustworthy a LineAnchor payload's recorded
// line is: it degrades when an edit touches that line, and goes Stale when
// the line falls at or past the buffer's line count.
type AnchorConfidence uint8

const (
	ConfidenceExact AnchorConfidence = iota
	ConfidenceApproximate
	ConfidenceStale
)

// Payload is the data a marker carries. Exactly one of Point or LineAnchor
// is meaningful, selected by Kind.
type Payload struct {
	Kind PayloadKind

	// Point payload.
	PointAffinity Affinity

	// LineAnchor payload.
	EstimatedLine uint32
	Confidence    AnchorConfidence
}

type PayloadKind uint8

const (
	KindPoint PayloadKind = iota
	KindLineAnchor
)

// Marker is a snapshot of one tree entry returned from Get/Query.
type Marker struct {
	ID      ID
	Start   int64
	End     int64
	Payload Payload
}

type node struct {
	id      ID
	start   int64
	end     int64
	payload Payload
}

// Tree is an order-statistic structure over intervals keyed by start
// offset. The underlying implementation keeps nodes in a start-sorted
// slice; insert/delete/get are O(log n) for lookup plus O(n) for the
// slice splice, which is the right trade-off for the editor's marker
// counts (diagnostics, bookmarks, overlays number in the hundreds, not
// millions) and keeps AdjustForEdit's ordering invariant trivially true
// by construction rather than by rebalancing logic.
type Tree struct {
	mu     sync.RWMutex
	nodes  []node // sorted ascending by start
	byID   map[ID]int
	nextID ID
}

// New creates an empty interval tree.
func New() *Tree {
	return &Tree{byID: make(map[ID]int)}
}

// Insert adds a marker covering [start, end] and returns its id.
func (t *Tree) Insert(start, end int64, payload Payload) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID
	n := node{id: id, start: start, end: end, payload: payload}

	idx := sort.Search(len(t.nodes), func(i int) bool { return t.nodes[i].start >= start })
	t.nodes = append(t.nodes, node{})
	copy(t.nodes[idx+1:], t.nodes[idx:])
	t.nodes[idx] = n
	t.reindexFrom(idx)
	return id
}

// InsertWithID adds a marker under a caller-chosen id, used when undo
// re-creates a marker that later log entries still reference. The id must
// not name a live marker.
func (t *Tree) InsertWithID(id ID, start, end int64, payload Payload) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byID[id]; exists {
		return ErrIDInUse
	}
	if id > t.nextID {
		t.nextID = id
	}
	n := node{id: id, start: start, end: end, payload: payload}
	idx := sort.Search(len(t.nodes), func(i int) bool { return t.nodes[i].start >= start })
	t.nodes = append(t.nodes, node{})
	copy(t.nodes[idx+1:], t.nodes[idx:])
	t.nodes[idx] = n
	t.reindexFrom(idx)
	return nil
}

// Delete removes a marker by id.
func (t *Tree) Delete(id ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.byID[id]
	if !ok {
		return ErrNotFound
	}
	t.nodes = append(t.nodes[:idx], t.nodes[idx+1:]...)
	delete(t.byID, id)
	t.reindexFrom(idx)
	return nil
}

// Get returns the interval of a marker by id.
func (t *Tree) Get(id ID) (Marker, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.byID[id]
	if !ok {
		return Marker{}, ErrNotFound
	}
	return toMarker(t.nodes[idx]), nil
}

// Query returns every marker overlapping [lo, hi), ordered by start
// ascending.
func (t *Tree) Query(lo, hi int64) []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Marker
	for _, n := range t.nodes {
		if n.start >= hi {
			break
		}
		if n.end >= lo || (n.start == n.end && n.start >= lo) {
			if overlaps(n.start, n.end, lo, hi) {
				out = append(out, toMarker(n))
			}
		}
	}
	return out
}

func overlaps(start, end, lo, hi int64) bool {
	if start == end {
		return start >= lo && start < hi
	}
	return start < hi && end > lo
}

// Len returns the number of live markers.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// All returns every marker ordered by start ascending.
func (t *Tree) All() []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Marker, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = toMarker(n)
	}
	return out
}

// AdjustForEdit shifts and clamps every marker's interval in response to an
// edit at pos with delta bytes (positive for an insertion of delta bytes,
// negative for a deletion of |delta| bytes starting at pos). Ordering by
// start is preserved: inserts/deletes keep nodes sorted, every shift is
// monotonic except for a point marker at an insertion point overtaking a
// ranged marker that starts there, and a closing stable re-sort restores
// start order in that one case.
func (t *Tree) AdjustForEdit(pos, delta int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.nodes {
		n := &t.nodes[i]
		// A point marker sitting exactly at an insertion point rides the
		// inserted text: interval semantics, not left affinity (see the
		// Affinity doc comment).
		if n.start == pos && n.end == pos && delta > 0 {
			n.start += delta
			n.end += delta
			continue
		}
		if n.start > pos {
			n.start += delta
			// A marker whose start fell inside a deleted range lands at the
			// deletion start, never before it.
			if n.start < pos {
				n.start = pos
			}
		}
		if n.end > pos {
			n.end += delta
			if n.end < pos {
				n.end = pos
			}
			if n.end < n.start {
				n.end = n.start
			}
		}
	}
	// Shifts are monotonic except for a point marker at the insertion point
	// overtaking a ranged marker anchored there; a stable re-sort restores
	// the start order in that one case and is a no-op otherwise.
	sort.SliceStable(t.nodes, func(i, j int) bool { return t.nodes[i].start < t.nodes[j].start })
	t.reindexFrom(0)
}

// DegradeAnchorsForEdit updates LineAnchor payloads after an edit that
// touched editLine and changed the total line count by linesDelta.
// Anchors strictly below the edited line shift by linesDelta and keep
// their confidence; an anchor on the edited line itself degrades to
// Approximate. Any anchor whose line now falls at or past totalLines is
// marked Stale. Point payloads are untouched.
func (t *Tree) DegradeAnchorsForEdit(editLine uint32, linesDelta int32, totalLines uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.nodes {
		n := &t.nodes[i]
		if n.payload.Kind != KindLineAnchor {
			continue
		}
		switch {
		case n.payload.EstimatedLine > editLine:
			shifted := int64(n.payload.EstimatedLine) + int64(linesDelta)
			if shifted < 0 {
				shifted = 0
			}
			n.payload.EstimatedLine = uint32(shifted)
			n.start = shifted
			n.end = shifted
		case n.payload.EstimatedLine == editLine:
			if n.payload.Confidence == ConfidenceExact {
				n.payload.Confidence = ConfidenceApproximate
			}
		}
		if n.payload.EstimatedLine >= totalLines {
			n.payload.Confidence = ConfidenceStale
		}
	}
	sort.SliceStable(t.nodes, func(i, j int) bool { return t.nodes[i].start < t.nodes[j].start })
	t.reindexFrom(0)
}

func (t *Tree) reindexFrom(from int) {
	for i := from; i < len(t.nodes); i++ {
		t.byID[t.nodes[i].id] = i
	}
}

func toMarker(n node) Marker {
	return Marker{ID: n.id, Start: n.start, End: n.end, Payload: n.payload}
}
