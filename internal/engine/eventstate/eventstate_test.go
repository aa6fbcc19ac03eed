package eventstate

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ninelines/scribe/internal/engine/buffer"
	"github.com/ninelines/scribe/internal/engine/cursor"
	"github.com/ninelines/scribe/internal/engine/event"
	"github.com/ninelines/scribe/internal/engine/overlay"
)

func TestApplyInsertThenUndo(t *testing.T) {
	s := New(buffer.NewBufferFromString("hello"))

	if err := s.Apply(event.NewInsert(5, " world")); err != nil {
		t.Fatal(err)
	}
	text, _ := s.Buf.Text()
	if text != "hello world" {
		t.Fatalf("got %q", text)
	}

	ok, err := s.Undo()
	if err != nil || !ok {
		t.Fatalf("undo failed: ok=%v err=%v", ok, err)
	}
	text, _ = s.Buf.Text()
	if text != "hello" {
		t.Fatalf("expected undo to restore original text, got %q", text)
	}

	ok, err = s.Redo()
	if err != nil || !ok {
		t.Fatalf("redo failed: ok=%v err=%v", ok, err)
	}
	text, _ = s.Buf.Text()
	if text != "hello world" {
		t.Fatalf("expected redo to reapply insert, got %q", text)
	}
}

func TestApplyDeleteCapturesOldTextForUndo(t *testing.T) {
	s := New(buffer.NewBufferFromString("abcdef"))

	if err := s.Apply(event.NewDelete(buffer.Range{Start: 1, End: 4})); err != nil {
		t.Fatal(err)
	}
	text, _ := s.Buf.Text()
	if text != "aef" {
		t.Fatalf("got %q", text)
	}

	if ok, err := s.Undo(); err != nil || !ok {
		t.Fatalf("undo failed: ok=%v err=%v", ok, err)
	}
	text, _ = s.Buf.Text()
	if text != "abcdef" {
		t.Fatalf("expected undo to restore deleted text, got %q", text)
	}
}

func TestInsertShiftsCursorsAndOverlays(t *testing.T) {
	s := New(buffer.NewBufferFromString("0123456789"))
	cursorID := s.Cursors.Add(cursor.NewCursorSelection(7))
	overlayID := s.Overlays.Add(buffer.Range{Start: 7, End: 9}, 0, overlay.Underline(colorful.Color{}, overlay.UnderlineStraight), "")

	if err := s.Apply(event.NewInsert(2, "XX")); err != nil {
		t.Fatal(err)
	}

	sel, _ := s.Cursors.Get(cursorID)
	if sel.Start() != 9 {
		t.Fatalf("expected cursor shifted to 9, got %d", sel.Start())
	}

	ov, _ := s.Overlays.Get(overlayID)
	if ov.Range.Start != 9 || ov.Range.End != 11 {
		t.Fatalf("expected overlay shifted to [9,11), got %s", ov.Range.String())
	}
}

func TestBatchAppliesAndUndoesAsOneStep(t *testing.T) {
	s := New(buffer.NewBufferFromString(""))

	batch := event.NewBatch(
		event.NewInsert(0, "foo"),
		event.NewInsert(3, "bar"),
	)
	if err := s.Apply(batch); err != nil {
		t.Fatal(err)
	}
	text, _ := s.Buf.Text()
	if text != "foobar" {
		t.Fatalf("got %q", text)
	}
	if s.Log.Len() != 1 {
		t.Fatalf("expected batch to log as a single entry, got %d", s.Log.Len())
	}

	ok, err := s.Undo()
	if err != nil || !ok {
		t.Fatalf("undo failed: ok=%v err=%v", ok, err)
	}
	text, _ = s.Buf.Text()
	if text != "" {
		t.Fatalf("expected batch undo to revert both inserts, got %q", text)
	}
}

// One undo reverts one edit: trailing cursor moves are skipped over, the
// last insert is reverted, and the editing cursor lands at the edit site.
func TestUndoSkipsCursorMoves(t *testing.T) {
	s := New(buffer.NewBufferFromString(""))
	primary, _ := s.Cursors.Primary()

	apply := func(e *event.Event) {
		t.Helper()
		if err := s.Apply(e); err != nil {
			t.Fatal(err)
		}
	}
	ins1 := event.NewInsert(0, "hell")
	ins1.CursorID = primary
	ins2 := event.NewInsert(4, "o")
	ins2.CursorID = primary
	apply(ins1)
	apply(ins2)
	apply(&event.Event{Kind: event.KindMoveCursor, CursorID: primary, Selection: cursor.NewCursorSelection(2)})
	apply(&event.Event{Kind: event.KindMoveCursor, CursorID: primary, Selection: cursor.NewCursorSelection(3)})

	ok, err := s.Undo()
	if err != nil || !ok {
		t.Fatalf("undo: ok=%v err=%v", ok, err)
	}

	text, _ := s.Buf.Text()
	if text != "hell" {
		t.Errorf("buffer = %q, want %q", text, "hell")
	}
	_, sel := s.Cursors.Primary()
	if sel.Head != 4 {
		t.Errorf("primary cursor at %d, want 4", sel.Head)
	}
	if s.Log.Cursor() != 1 {
		t.Errorf("log cursor = %d, want 1", s.Log.Cursor())
	}
}

// Undoing back across the save point flips the modified bit off, and one
// step further flips it back on.
func TestUndoToSavePointClearsModified(t *testing.T) {
	s := New(buffer.NewBufferFromString("initial"))

	if err := s.Apply(event.NewInsert(7, "X")); err != nil {
		t.Fatal(err)
	}
	if !s.Log.IsModified() {
		t.Fatal("expected dirty after insert")
	}
	s.Log.MarkSaved()
	if s.Log.IsModified() {
		t.Fatal("expected clean after save")
	}
	if err := s.Apply(event.NewInsert(8, "Y")); err != nil {
		t.Fatal(err)
	}

	if ok, _ := s.Undo(); !ok {
		t.Fatal("first undo failed")
	}
	text, _ := s.Buf.Text()
	if text != "initialX" || s.Log.IsModified() {
		t.Errorf("after first undo: %q modified=%v, want %q modified=false", text, s.Log.IsModified(), "initialX")
	}

	if ok, _ := s.Undo(); !ok {
		t.Fatal("second undo failed")
	}
	text, _ = s.Buf.Text()
	if text != "initial" || !s.Log.IsModified() {
		t.Errorf("after second undo: %q modified=%v, want %q modified=true", text, s.Log.IsModified(), "initial")
	}
}

func TestRemoveOverlayUndoRestoresIt(t *testing.T) {
	s := New(buffer.NewBufferFromString("0123456789"))

	add := &event.Event{Kind: event.KindAddOverlay, Overlay: event.OverlaySpec{Start: 2, End: 6, Priority: 10}}
	if err := s.Apply(add); err != nil {
		t.Fatal(err)
	}
	id := add.OverlayID

	if err := s.Apply(&event.Event{Kind: event.KindRemoveOverlay, OverlayID: id}); err != nil {
		t.Fatal(err)
	}
	if s.Overlays.Count() != 0 {
		t.Fatal("overlay not removed")
	}

	if ok, _ := s.Undo(); !ok {
		t.Fatal("undo failed")
	}
	ov, ok := s.Overlays.Get(id)
	if !ok {
		t.Fatal("undo did not restore the overlay under its original id")
	}
	if ov.Range.Start != 2 || ov.Range.End != 6 || ov.Priority != 10 {
		t.Errorf("restored overlay = %+v", ov)
	}
}

func TestClearOverlaysUndoRestoresAll(t *testing.T) {
	s := New(buffer.NewBufferFromString("0123456789"))
	for i := int64(0); i < 3; i++ {
		e := &event.Event{Kind: event.KindAddOverlay, Overlay: event.OverlaySpec{Start: i, End: i + 2, Priority: int32(i)}}
		if err := s.Apply(e); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Apply(&event.Event{Kind: event.KindClearOverlays}); err != nil {
		t.Fatal(err)
	}
	if s.Overlays.Count() != 0 {
		t.Fatal("clear left overlays behind")
	}

	if ok, _ := s.Undo(); !ok {
		t.Fatal("undo failed")
	}
	if s.Overlays.Count() != 3 {
		t.Errorf("Count after undo = %d, want 3", s.Overlays.Count())
	}
}

func TestHidePopupUndoRestoresIt(t *testing.T) {
	s := New(buffer.NewBufferFromString(""))

	show := &event.Event{Kind: event.KindShowPopup, PopupSpec: event.PopupSpec{Items: []string{"one", "two"}}}
	if err := s.Apply(show); err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(&event.Event{Kind: event.KindHidePopup, PopupID: show.PopupID}); err != nil {
		t.Fatal(err)
	}
	if s.Popups.Len() != 0 {
		t.Fatal("popup not hidden")
	}

	if ok, _ := s.Undo(); !ok {
		t.Fatal("undo failed")
	}
	top, ok := s.Popups.Top()
	if !ok || len(top.Items) != 2 {
		t.Errorf("restored popup = %+v/%v", top, ok)
	}
}

func TestMarginAnnotationTracksLineEdits(t *testing.T) {
	s := New(buffer.NewBufferFromString("line0\nline1\nline2\nline3\n"))

	add := &event.Event{Kind: event.KindAddMarginAnnotation, Annotation: event.MarginAnnotation{Line: 2, Glyph: "●"}}
	if err := s.Apply(add); err != nil {
		t.Fatal(err)
	}

	// Inserting a line above shifts the anchor down one line.
	if err := s.Apply(event.NewInsert(0, "inserted\n")); err != nil {
		t.Fatal(err)
	}
	m, err := s.Annotations.Get(add.AnnotationID)
	if err != nil {
		t.Fatal(err)
	}
	if m.Payload.EstimatedLine != 3 {
		t.Errorf("anchor line = %d, want 3", m.Payload.EstimatedLine)
	}
}

// Applying a script of write events, undoing all of them, and redoing
// all of them restores the exact content, overlay count, and modified
// bit at each end.
func TestUndoRedoRoundTrip(t *testing.T) {
	s := New(buffer.NewBufferFromString(""))

	script := []*event.Event{
		event.NewInsert(0, "the quick brown fox\n"),
		event.NewInsert(20, "jumps over\n"),
		{Kind: event.KindAddOverlay, Overlay: event.OverlaySpec{Start: 4, End: 9, Priority: 10}},
		event.NewReplace(buffer.Range{Start: 4, End: 9}, "slow"),
		event.NewDelete(buffer.Range{Start: 0, End: 4}),
	}
	for _, e := range script {
		if err := s.Apply(e); err != nil {
			t.Fatal(err)
		}
	}
	finalText, _ := s.Buf.Text()
	finalOverlays := s.Overlays.Count()

	steps := 0
	for {
		ok, err := s.Undo()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		steps++
	}
	if steps != len(script) {
		t.Fatalf("undo steps = %d, want %d", steps, len(script))
	}
	text, _ := s.Buf.Text()
	if text != "" {
		t.Fatalf("after full undo: %q", text)
	}
	if s.Overlays.Count() != 0 {
		t.Fatalf("overlays after full undo: %d", s.Overlays.Count())
	}

	for {
		ok, err := s.Redo()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
	}
	text, _ = s.Buf.Text()
	if text != finalText {
		t.Fatalf("after full redo: %q, want %q", text, finalText)
	}
	if s.Overlays.Count() != finalOverlays {
		t.Fatalf("overlays after full redo: %d, want %d", s.Overlays.Count(), finalOverlays)
	}
}

func TestBeforeHookCanVetoEvent(t *testing.T) {
	s := New(buffer.NewBufferFromString("abc"))
	s.AddBeforeHook(func(e *event.Event) bool { return false })

	if err := s.Apply(event.NewInsert(0, "X")); err != nil {
		t.Fatal(err)
	}
	text, _ := s.Buf.Text()
	if text != "abc" {
		t.Fatalf("expected vetoed event to have no effect, got %q", text)
	}
}
