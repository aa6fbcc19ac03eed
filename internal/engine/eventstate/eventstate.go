// Package eventstate aggregates the buffer, cursor set, overlay manager,
// margin annotation tree, and popup stack of one open document behind a
// single Apply(*Event) entry point. Every mutation of a document's state
// flows through Apply so the event log sees a complete, ordered record
// and hooks get one choke point to observe before/after every change.
package eventstate

import (
	"fmt"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ninelines/scribe/internal/engine/buffer"
	"github.com/ninelines/scribe/internal/engine/cursor"
	"github.com/ninelines/scribe/internal/engine/event"
	"github.com/ninelines/scribe/internal/engine/eventlog"
	"github.com/ninelines/scribe/internal/engine/interval"
	"github.com/ninelines/scribe/internal/engine/overlay"
	"github.com/ninelines/scribe/internal/engine/popup"
)

// BeforeHook is called before an event is applied; returning false vetoes
// the event entirely (it is not applied and not logged). AfterHook is
// called once the event has been applied successfully.
type BeforeHook func(e *event.Event) bool
type AfterHook func(e *event.Event)

// EditorState is the single-writer aggregate for one open document.
type EditorState struct {
	mu sync.Mutex

	Buf         *buffer.Buffer
	Cursors     *cursor.IDSet
	Overlays    *overlay.Manager
	Annotations *interval.Tree
	Popups      *popup.Stack
	Log         *eventlog.Log

	lineNumbers     bool
	recoveryPending bool

	before []BeforeHook
	after  []AfterHook
}

// New creates an EditorState over an already-constructed buffer.
func New(buf *buffer.Buffer) *EditorState {
	return &EditorState{
		Buf:         buf,
		Cursors:     cursor.NewIDSet(0),
		Overlays:    overlay.NewManager(),
		Annotations: interval.New(),
		Popups:      popup.New(),
		Log:         eventlog.New(),
	}
}

// AddBeforeHook registers a veto-capable hook run before every Apply.
func (s *EditorState) AddBeforeHook(h BeforeHook) { s.before = append(s.before, h) }

// AddAfterHook registers an observer hook run after every successful Apply.
func (s *EditorState) AddAfterHook(h AfterHook) { s.after = append(s.after, h) }

// Apply routes e to the right subsystem, in this fixed order for every
// event: run before-hooks (any false veto short-circuits with no effect
// and no log entry) -> mutate the owning subsystem -> adjust
// cursors/overlays/annotations for any buffer-length change -> append to
// the log -> run after-hooks. A Batch event's sub-events are mutated
// directly without going through this sequence individually, so hooks
// and the log see one notification for the whole group rather than one
// per primitive op, and Undo/Redo treats the batch as a single step.
func (s *EditorState) Apply(e *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(e)
}

func (s *EditorState) apply(e *event.Event) error {
	for _, h := range s.before {
		if !h(e) {
			return nil
		}
	}

	if err := s.mutate(e); err != nil {
		return err
	}
	if e.IsWrite() {
		s.recoveryPending = true
	}

	s.Log.Append(e)

	for _, h := range s.after {
		h(e)
	}
	return nil
}

func (s *EditorState) mutate(e *event.Event) error {
	switch e.Kind {
	case event.KindInsert:
		return s.applyInsert(e)
	case event.KindDelete:
		return s.applyDelete(e)
	case event.KindReplace:
		return s.applyReplace(e)
	case event.KindMoveCursor:
		s.Cursors.MoveTo(e.CursorID, e.Selection)
		s.Popups.ClearTransient()
	case event.KindAddCursor:
		e.CursorID = s.Cursors.Add(e.Selection)
	case event.KindRemoveCursor:
		s.Cursors.Remove(e.CursorID)
	case event.KindAddOverlay:
		r := buffer.Range{Start: buffer.ByteOffset(e.Overlay.Start), End: buffer.ByteOffset(e.Overlay.End)}
		if e.OverlayID != 0 {
			// Undo restoring an overlay that later log entries reference.
			return s.Overlays.AddWithID(e.OverlayID, r, e.Overlay.Priority, faceFromSpec(e.Overlay), "")
		}
		e.OverlayID = s.Overlays.Add(r, e.Overlay.Priority, faceFromSpec(e.Overlay), "")
	case event.KindRemoveOverlay:
		if ov, ok := s.Overlays.Get(e.OverlayID); ok {
			e.Overlay = specFromOverlay(ov)
		}
		s.Overlays.Remove(e.OverlayID)
	case event.KindClearOverlays:
		// Capture one AddOverlay per live overlay so Inverse can re-add
		// them all under their original ids.
		all := s.Overlays.QueryRange(0, buffer.ByteOffset(s.Buf.Len())+1)
		e.Batch = e.Batch[:0]
		for _, ov := range all {
			e.Batch = append(e.Batch, &event.Event{
				Kind:      event.KindAddOverlay,
				OverlayID: ov.ID,
				Overlay:   specFromOverlay(ov),
			})
		}
		s.Overlays.Clear()
	case event.KindAddMarginAnnotation:
		payload := interval.Payload{
			Kind:          interval.KindLineAnchor,
			EstimatedLine: e.Annotation.Line,
			Confidence:    interval.ConfidenceExact,
		}
		if e.AnnotationID != 0 {
			return s.Annotations.InsertWithID(e.AnnotationID, int64(e.Annotation.Line), int64(e.Annotation.Line), payload)
		}
		e.AnnotationID = s.Annotations.Insert(int64(e.Annotation.Line), int64(e.Annotation.Line), payload)
	case event.KindRemoveMarginAnnotation:
		if m, err := s.Annotations.Get(e.AnnotationID); err == nil {
			e.Annotation.Line = m.Payload.EstimatedLine
		}
		_ = s.Annotations.Delete(e.AnnotationID)
	case event.KindSetLineNumbers:
		s.lineNumbers = e.LineNumbersEnabled
	case event.KindShowPopup:
		if e.PopupID != 0 {
			s.Popups.PushWithID(popup.ID(e.PopupID), e.PopupSpec.Items, e.PopupSpec.Transient)
		} else {
			e.PopupID = uint64(s.Popups.Push(e.PopupSpec.Items, e.PopupSpec.Transient))
		}
	case event.KindHidePopup:
		if p, ok := s.Popups.PopByID(popup.ID(e.PopupID)); ok {
			e.PopupSpec = event.PopupSpec{Items: p.Items, Transient: p.Transient}
		}
	case event.KindPopupSelectNext:
		s.Popups.SelectNext()
	case event.KindPopupSelectPrev:
		s.Popups.SelectPrev()
	case event.KindBatch:
		// Sub-events are mutated directly, not through apply: the Batch
		// wrapper itself is the single unit the caller's apply() logs and
		// fires hooks for, so sub-events must not also hit the log or
		// hooks on their own.
		for _, sub := range e.Batch {
			if err := s.mutate(sub); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("eventstate: unhandled event kind %s", e.Kind)
	}
	return nil
}

func (s *EditorState) applyInsert(e *event.Event) error {
	pos := int64(e.Range.Start)
	if err := s.Buf.Insert(pos, []byte(e.NewText)); err != nil {
		return err
	}
	s.adjustForEdit(pos, int64(len(e.NewText)), e.CursorID, countNewlines(e.NewText))
	return nil
}

func (s *EditorState) applyDelete(e *event.Event) error {
	old, err := s.Buf.Delete(e.Range)
	if err != nil {
		return err
	}
	e.OldText = string(old)
	delta := -(int64(e.Range.End) - int64(e.Range.Start))
	s.adjustForEdit(int64(e.Range.Start), delta, e.CursorID, -countNewlines(e.OldText))
	return nil
}

func (s *EditorState) applyReplace(e *event.Event) error {
	old, err := s.Buf.Replace(e.Range, []byte(e.NewText))
	if err != nil {
		return err
	}
	e.OldText = string(old)
	delta := int64(len(e.NewText)) - (int64(e.Range.End) - int64(e.Range.Start))
	s.adjustForEdit(int64(e.Range.Start), delta, e.CursorID, countNewlines(e.NewText)-countNewlines(e.OldText))
	return nil
}

// adjustForEdit propagates a buffer edit at pos with delta bytes to every
// position-anchored sub-store: ranged overlays shift per the interval
// rule, line anchors shift/degrade per the line delta, and cursors move
// with the editing cursor landing at the edit's right edge. Transient
// popups are dismissed by any edit.
func (s *EditorState) adjustForEdit(pos, delta int64, editing cursor.ID, linesDelta int32) {
	s.Overlays.AdjustForEdit(pos, delta)

	if editLine, err := s.Buf.LineOf(min64(pos, s.Buf.Len())); err == nil {
		if total, err := s.Buf.LineCount(); err == nil {
			s.Annotations.DegradeAnchorsForEdit(editLine, linesDelta, total)
		}
	}

	// editing == 0 means no cursor made this edit (auto-revert, plugin,
	// recovery); every cursor then shifts by the plain offset rule.
	s.Cursors.AdjustForEdit(buffer.ByteOffset(pos), buffer.ByteOffset(delta), editing)
	s.Cursors.Clamp(buffer.ByteOffset(s.Buf.Len()))
	s.Popups.ClearTransient()
}

func countNewlines(text string) int32 {
	var n int32
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			n++
		}
	}
	return n
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func colorFromRGB(rgb [3]float64) colorful.Color {
	return colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}
}

// specFromOverlay captures a live overlay back into the wire-level spec an
// AddOverlay event carries, so removals can be inverted.
func specFromOverlay(ov overlay.Overlay) event.OverlaySpec {
	var kind uint8
	switch ov.Face.Kind {
	case overlay.FaceBackground:
		kind = 1
	case overlay.FaceForeground:
		kind = 2
	case overlay.FaceCombined:
		kind = 3
	}
	return event.OverlaySpec{
		Start:    int64(ov.Range.Start),
		End:      int64(ov.Range.End),
		Priority: ov.Priority,
		FaceKind: kind,
		FaceRGB:  [3]float64{ov.Face.Color.R, ov.Face.Color.G, ov.Face.Color.B},
	}
}

func faceFromSpec(spec event.OverlaySpec) overlay.Face {
	c := colorFromRGB(spec.FaceRGB)
	switch spec.FaceKind {
	case 1:
		return overlay.Background(c)
	case 2:
		return overlay.Foreground(c)
	case 3:
		return overlay.Combined(c, overlay.UnderlineSquiggly, c)
	default:
		return overlay.Underline(c, overlay.UnderlineStraight)
	}
}

// Undo reverts the most recent write event via its inverse, applied
// outside the normal Apply path so the inverse itself is not re-logged
// as a new entry (undo/redo move the log's cursor, they don't grow it).
func (s *EditorState) Undo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.Log.Undo()
	if !ok {
		return false, nil
	}
	if err := s.mutate(e.Inverse()); err != nil {
		return false, err
	}
	s.recoveryPending = true
	return true, nil
}

// Redo re-applies the next undone write event.
func (s *EditorState) Redo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.Log.Redo()
	if !ok {
		return false, nil
	}
	if err := s.mutate(e); err != nil {
		return false, err
	}
	s.recoveryPending = true
	return true, nil
}

// LineNumbersEnabled reports the current gutter line-number setting.
func (s *EditorState) LineNumbersEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lineNumbers
}

// RecoveryPending reports whether a write event has landed since the last
// save or recovery snapshot.
func (s *EditorState) RecoveryPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recoveryPending
}

// ClearRecoveryPending resets the pending flag. Called after a save and
// after a recovery snapshot has been written.
func (s *EditorState) ClearRecoveryPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recoveryPending = false
}

// MarkSaved records the save point and clears the recovery-pending flag;
// the on-disk file now matches the log position, so no snapshot is owed.
func (s *EditorState) MarkSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Log.MarkSaved()
	s.recoveryPending = false
}
