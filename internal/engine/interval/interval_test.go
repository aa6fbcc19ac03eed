package interval

import (
	"math"
	"testing"
)

func point() Payload {
	return Payload{Kind: KindPoint}
}

func anchor(line uint32) Payload {
	return Payload{Kind: KindLineAnchor, EstimatedLine: line, Confidence: ConfidenceExact}
}

func assertSorted(t *testing.T, tree *Tree) {
	t.Helper()
	markers := tree.Query(0, math.MaxInt64)
	for i := 1; i < len(markers); i++ {
		if markers[i-1].Start > markers[i].Start {
			t.Fatalf("markers out of order at %d: %d > %d", i, markers[i-1].Start, markers[i].Start)
		}
	}
}

func TestInsertGetDelete(t *testing.T) {
	tree := New()

	id1 := tree.Insert(10, 20, point())
	id2 := tree.Insert(5, 5, point())
	id3 := tree.Insert(30, 45, point())

	if tree.Len() != 3 {
		t.Fatalf("Len = %d, want 3", tree.Len())
	}

	m, err := tree.Get(id1)
	if err != nil {
		t.Fatalf("Get(id1): %v", err)
	}
	if m.Start != 10 || m.End != 20 {
		t.Errorf("Get(id1) = [%d,%d], want [10,20]", m.Start, m.End)
	}

	if err := tree.Delete(id2); err != nil {
		t.Fatalf("Delete(id2): %v", err)
	}
	if _, err := tree.Get(id2); err != ErrNotFound {
		t.Errorf("Get(deleted) err = %v, want ErrNotFound", err)
	}
	if tree.Len() != 2 {
		t.Errorf("Len after delete = %d, want 2", tree.Len())
	}
	if err := tree.Delete(id2); err != ErrNotFound {
		t.Errorf("double Delete err = %v, want ErrNotFound", err)
	}

	_ = id3
	assertSorted(t, tree)
}

func TestQueryOverlapping(t *testing.T) {
	tree := New()
	tree.Insert(0, 10, point())
	tree.Insert(5, 15, point())
	tree.Insert(20, 30, point())
	tree.Insert(12, 12, point()) // point marker

	tests := []struct {
		name   string
		lo, hi int64
		want   int
	}{
		{"covers all", 0, 100, 4},
		{"first two only", 0, 11, 2},
		{"point marker hit", 12, 13, 2}, // the point at 12 and [5,15], which spans it
		{"gap between ranges", 16, 19, 0},
		{"touching end is exclusive", 15, 20, 0},
		{"last range", 25, 26, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tree.Query(tt.lo, tt.hi)
			if len(got) != tt.want {
				t.Errorf("Query(%d,%d) returned %d markers, want %d", tt.lo, tt.hi, len(got), tt.want)
			}
		})
	}
}

func TestAdjustForEdit(t *testing.T) {
	tests := []struct {
		name       string
		start, end int64
		pos, delta int64
		wantStart  int64
		wantEnd    int64
	}{
		{"insert before shifts both", 10, 20, 5, 3, 13, 23},
		{"insert after leaves alone", 10, 20, 25, 3, 10, 20},
		{"insert inside shifts end only", 10, 20, 15, 3, 10, 23},
		{"insert at start boundary leaves start", 10, 20, 10, 3, 10, 23},
		{"point marker at edit position shifts", 10, 10, 10, 3, 13, 13},
		{"point marker after insert shifts whole", 10, 10, 5, 3, 13, 13},
		{"delete before shifts both", 10, 20, 2, -3, 7, 17},
		{"delete inside shrinks", 10, 20, 12, -4, 10, 16},
		{"delete spanning start clamps start", 10, 20, 5, -8, 5, 12},
		{"delete subsuming clamps to deletion start", 10, 20, 5, -30, 5, 5},
		{"delete collapsing point clamps", 10, 10, 5, -10, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := New()
			id := tree.Insert(tt.start, tt.end, point())
			tree.AdjustForEdit(tt.pos, tt.delta)
			m, err := tree.Get(id)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if m.Start != tt.wantStart || m.End != tt.wantEnd {
				t.Errorf("after AdjustForEdit(%d,%d): [%d,%d], want [%d,%d]",
					tt.pos, tt.delta, m.Start, m.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

// Point markers at positions 10 and 20; deleting bytes [5,15) clamps the
// first to the deletion start and shifts the second, preserving order.
func TestAdjustForEditDeleteSpanningMultipleMarkers(t *testing.T) {
	tree := New()
	a := tree.Insert(10, 10, point())
	b := tree.Insert(20, 20, point())

	tree.AdjustForEdit(5, -10)

	ma, _ := tree.Get(a)
	mb, _ := tree.Get(b)
	if ma.Start != 5 || ma.End != 5 {
		t.Errorf("marker a = [%d,%d], want [5,5]", ma.Start, ma.End)
	}
	if mb.Start != 10 || mb.End != 10 {
		t.Errorf("marker b = [%d,%d], want [10,10]", mb.Start, mb.End)
	}
	assertSorted(t, tree)
}

// Ordering must hold at every step of an edit script, not just at the end.
func TestAdjustForEditScriptPreservesOrder(t *testing.T) {
	tree := New()
	for i := int64(0); i < 20; i++ {
		tree.Insert(i*10, i*10+5, point())
	}

	script := []struct{ pos, delta int64 }{
		{0, 7},
		{50, -12},
		{100, 3},
		{30, -45},
		{0, -5},
		{80, 80},
		{10, -200},
		{0, 1},
	}
	for step, edit := range script {
		tree.AdjustForEdit(edit.pos, edit.delta)
		markers := tree.Query(0, math.MaxInt64)
		for i := 1; i < len(markers); i++ {
			if markers[i-1].Start > markers[i].Start {
				t.Fatalf("step %d (pos=%d delta=%d): order broken at %d",
					step, edit.pos, edit.delta, i)
			}
		}
		if tree.Len() != 20 {
			t.Fatalf("step %d: marker lost, Len = %d", step, tree.Len())
		}
	}
}

func TestDegradeAnchorsForEdit(t *testing.T) {
	tree := New()
	above := tree.Insert(2, 2, anchor(2))
	onLine := tree.Insert(10, 10, anchor(10))
	below := tree.Insert(50, 50, anchor(50))

	// Edit on line 10 that adds 3 lines, 100 lines total.
	tree.DegradeAnchorsForEdit(10, 3, 100)

	m, _ := tree.Get(above)
	if m.Payload.EstimatedLine != 2 || m.Payload.Confidence != ConfidenceExact {
		t.Errorf("anchor above edit: line=%d conf=%d, want 2/Exact", m.Payload.EstimatedLine, m.Payload.Confidence)
	}
	m, _ = tree.Get(onLine)
	if m.Payload.Confidence != ConfidenceApproximate {
		t.Errorf("anchor on edited line: conf=%d, want Approximate", m.Payload.Confidence)
	}
	m, _ = tree.Get(below)
	if m.Payload.EstimatedLine != 53 || m.Payload.Confidence != ConfidenceExact {
		t.Errorf("anchor below edit: line=%d conf=%d, want 53/Exact", m.Payload.EstimatedLine, m.Payload.Confidence)
	}

	// A shrink that leaves the last anchor past the new line count marks it
	// stale (53 shifts to 43, still past 40 lines).
	tree.DegradeAnchorsForEdit(0, -10, 40)
	m, _ = tree.Get(below)
	if m.Payload.Confidence != ConfidenceStale {
		t.Errorf("anchor past line count: conf=%d, want Stale", m.Payload.Confidence)
	}
	assertSorted(t, tree)
}

func TestStableIDsAcrossAdjustments(t *testing.T) {
	tree := New()
	ids := make([]ID, 0, 10)
	for i := int64(0); i < 10; i++ {
		ids = append(ids, tree.Insert(i*100, i*100+10, point()))
	}
	tree.AdjustForEdit(250, -400)
	tree.AdjustForEdit(0, 33)

	for _, id := range ids {
		if _, err := tree.Get(id); err != nil {
			t.Errorf("id %d lost after adjustments: %v", id, err)
		}
	}
}
