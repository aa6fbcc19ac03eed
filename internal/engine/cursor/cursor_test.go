package cursor

import "testing"

func TestSelectionBasics(t *testing.T) {
	sel := NewSelection(10, 4)
	if sel.IsForward() {
		t.Error("backward selection reported forward")
	}
	if sel.Start() != 4 || sel.End() != 10 {
		t.Errorf("Start/End = %d/%d, want 4/10", sel.Start(), sel.End())
	}
	if sel.Len() != 6 {
		t.Errorf("Len = %d, want 6", sel.Len())
	}
	if got := sel.Collapse(); !got.Equals(NewCursorSelection(4)) {
		t.Errorf("Collapse = %v, want bare cursor at 4", got)
	}
	if got := sel.Merge(NewSelection(8, 20)); got.Start() != 4 || got.End() != 20 {
		t.Errorf("Merge = %v, want 4..20", got)
	}
	if got := sel.Clamp(6); got.Anchor != 6 || got.Head != 4 {
		t.Errorf("Clamp(6) = %v, want anchor 6 head 4", got)
	}
}

func TestAdjustOffset(t *testing.T) {
	tests := []struct {
		name            string
		off, pos, delta ByteOffset
		want            ByteOffset
	}{
		{"insert before shifts", 10, 5, 3, 13},
		{"insert at offset stays", 10, 10, 3, 10},
		{"insert after stays", 10, 15, 3, 10},
		{"delete before shifts", 20, 5, -5, 15},
		{"delete at offset stays", 5, 5, -5, 5},
		{"delete spanning clamps to start", 8, 5, -10, 5},
		{"delete after stays", 3, 5, -10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AdjustOffset(tt.off, tt.pos, tt.delta); got != tt.want {
				t.Errorf("AdjustOffset(%d, %d, %d) = %d, want %d", tt.off, tt.pos, tt.delta, got, tt.want)
			}
		})
	}
}

func TestIDSetAddRemovePrimary(t *testing.T) {
	s := NewIDSet(0)
	first, _ := s.Primary()

	second := s.Add(NewCursorSelection(10))
	if s.Count() != 2 {
		t.Fatalf("Count = %d, want 2", s.Count())
	}

	s.SetPrimary(second)
	if id, _ := s.Primary(); id != second {
		t.Errorf("primary = %d, want %d", id, second)
	}

	s.Remove(second)
	if id, _ := s.Primary(); id != first {
		t.Errorf("primary after removal = %d, want %d", id, first)
	}
	if s.IsMulti() {
		t.Error("IsMulti true with one cursor")
	}
}

func TestIDSetMergeOverlapping(t *testing.T) {
	s := NewIDSet(0)
	s.MoveTo(func() ID { id, _ := s.Primary(); return id }(), NewSelection(5, 15))

	// A cursor inside the existing selection is absorbed; the survivor id
	// is the existing cursor's.
	got := s.Add(NewCursorSelection(10))
	if primary, _ := s.Primary(); got != primary {
		t.Errorf("absorbed Add returned %d, want surviving id %d", got, primary)
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1 after merge", s.Count())
	}

	// A disjoint cursor stays separate.
	far := s.Add(NewCursorSelection(100))
	if s.Count() != 2 {
		t.Errorf("Count = %d, want 2", s.Count())
	}
	sel, ok := s.Get(far)
	if !ok || !sel.Equals(NewCursorSelection(100)) {
		t.Errorf("Get(far) = %v/%v", sel, ok)
	}
}

func TestIDSetAdjustForEditInsert(t *testing.T) {
	s := NewIDSet(0)
	editing, _ := s.Primary()
	s.MoveTo(editing, NewCursorSelection(5))
	before := s.Add(NewCursorSelection(2))
	after := s.Add(NewCursorSelection(9))

	// Editing cursor types 3 bytes at its own position.
	s.AdjustForEdit(5, 3, editing)

	if sel, _ := s.Get(editing); sel.Head != 8 {
		t.Errorf("editing cursor at %d, want 8", sel.Head)
	}
	if sel, _ := s.Get(before); sel.Head != 2 {
		t.Errorf("cursor before edit at %d, want 2", sel.Head)
	}
	if sel, _ := s.Get(after); sel.Head != 12 {
		t.Errorf("cursor after edit at %d, want 12", sel.Head)
	}
}

func TestIDSetAdjustForEditDelete(t *testing.T) {
	s := NewIDSet(0)
	editing, _ := s.Primary()
	s.MoveTo(editing, NewCursorSelection(10))
	inside := s.Add(NewCursorSelection(12))
	past := s.Add(NewCursorSelection(30))

	// Editing cursor deletes [10, 15).
	s.AdjustForEdit(10, -5, editing)

	if sel, _ := s.Get(editing); sel.Head != 10 {
		t.Errorf("editing cursor at %d, want 10", sel.Head)
	}
	// The cursor that sat inside the deleted range clamps onto the editing
	// cursor's position and merges with it.
	if _, ok := s.Get(inside); ok {
		t.Error("cursor inside deleted range survived merge")
	}
	if s.Count() != 2 {
		t.Errorf("Count = %d, want 2 after clamp merge", s.Count())
	}
	if sel, _ := s.Get(past); sel.Head != 25 {
		t.Errorf("cursor past deletion at %d, want 25", sel.Head)
	}
}

func TestIDSetAllSortedByStart(t *testing.T) {
	s := NewIDSet(50)
	s.Add(NewCursorSelection(10))
	s.Add(NewSelection(30, 20))

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("len(All) = %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Selection.Start() > all[i].Selection.Start() {
			t.Fatalf("All not sorted at %d", i)
		}
	}
}
