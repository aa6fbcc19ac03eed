// Package event defines the tagged Event union that every mutation of the
// editing engine's state flows through. Events are the unit the event log
// records, the unit EditorState.Apply consumes, and the unit hooks observe
// before and after. Every event knows whether it is a write (it changes
// buffer content, overlays, margin annotations or the popup stack, and is
// subject to undo) or read-only (cursor and selection moves, popup
// navigation, viewport-adjacent toggles) and, for write events, how to
// invert itself for undo.
package event

import (
	"fmt"

	"github.com/ninelines/scribe/internal/engine/buffer"
	"github.com/ninelines/scribe/internal/engine/cursor"
	"github.com/ninelines/scribe/internal/engine/interval"
)

// Kind discriminates the members of the Event union.
type Kind uint8

const (
	KindInsert Kind = iota
	KindDelete
	KindReplace
	KindMoveCursor
	KindAddCursor
	KindRemoveCursor
	KindAddOverlay
	KindRemoveOverlay
	KindClearOverlays
	KindAddMarginAnnotation
	KindRemoveMarginAnnotation
	KindSetLineNumbers
	KindShowPopup
	KindHidePopup
	KindPopupSelectNext
	KindPopupSelectPrev
	KindBatch
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "Insert"
	case KindDelete:
		return "Delete"
	case KindReplace:
		return "Replace"
	case KindMoveCursor:
		return "MoveCursor"
	case KindAddCursor:
		return "AddCursor"
	case KindRemoveCursor:
		return "RemoveCursor"
	case KindAddOverlay:
		return "AddOverlay"
	case KindRemoveOverlay:
		return "RemoveOverlay"
	case KindClearOverlays:
		return "ClearOverlays"
	case KindAddMarginAnnotation:
		return "AddMarginAnnotation"
	case KindRemoveMarginAnnotation:
		return "RemoveMarginAnnotation"
	case KindSetLineNumbers:
		return "SetLineNumbers"
	case KindShowPopup:
		return "ShowPopup"
	case KindHidePopup:
		return "HidePopup"
	case KindPopupSelectNext:
		return "PopupSelectNext"
	case KindPopupSelectPrev:
		return "PopupSelectPrev"
	case KindBatch:
		return "Batch"
	default:
		return "Unknown"
	}
}

// Event is a single mutation request against EditorState.
//
// Only one group of fields is meaningful for any given Kind; callers build
// Events through the New* constructors rather than populating the struct
// literal directly.
type Event struct {
	Kind Kind

	// Insert/Delete/Replace
	Range   buffer.Range
	NewText string
	OldText string // populated by EditorState.Apply for undo; ignored on input

	// MoveCursor/AddCursor/RemoveCursor; CursorID also marks the editing
	// cursor on Insert/Delete/Replace
	CursorID  cursor.ID
	Selection cursor.Selection

	// AddOverlay/RemoveOverlay
	OverlayID interval.ID
	Overlay   OverlaySpec

	// AddMarginAnnotation/RemoveMarginAnnotation
	AnnotationID interval.ID
	Annotation   MarginAnnotation

	// SetLineNumbers
	LineNumbersEnabled bool

	// ShowPopup/HidePopup
	PopupID   uint64
	PopupSpec PopupSpec

	// Batch; also holds the captured AddOverlay events a ClearOverlays
	// needs for its inverse
	Batch []*Event
}

// OverlaySpec carries the data needed to add an overlay. It mirrors the
// overlay package's Overlay type without importing it so that overlay can
// depend on the interval tree without the event union depending on faces.
type OverlaySpec struct {
	Start    int64
	End      int64
	Priority int32
	FaceKind uint8
	FaceRGB  [3]float64
}

// MarginAnnotation is a gutter-attached note (diagnostic severity icon,
// bookmark glyph) anchored to a line via a LineAnchor marker.
type MarginAnnotation struct {
	Line     uint32
	Glyph    string
	Severity uint8
}

// PopupSpec describes a popup to push onto the popup stack.
type PopupSpec struct {
	Items     []string
	Transient bool
}

func (e *Event) String() string {
	return fmt.Sprintf("%s%s", e.Kind, e.detail())
}

func (e *Event) detail() string {
	switch e.Kind {
	case KindInsert:
		return fmt.Sprintf("(%d, %q)", e.Range.Start, e.NewText)
	case KindDelete:
		return fmt.Sprintf("(%s)", e.Range.String())
	case KindReplace:
		return fmt.Sprintf("(%s, %q)", e.Range.String(), e.NewText)
	default:
		return ""
	}
}

// IsWrite reports whether this event mutates persistent document state
// (buffer content, overlays, margin annotations, or the popup stack) and
// is therefore an undo/redo step. Read-only events (cursor movement,
// popup navigation, viewport-adjacent toggles) are appended to the log
// for replay and audit but are skipped over by Undo/Redo: one undo
// reverts one edit, not a run of arrow-key presses sitting on top of it.
func (e *Event) IsWrite() bool {
	switch e.Kind {
	case KindInsert, KindDelete, KindReplace,
		KindAddOverlay, KindRemoveOverlay, KindClearOverlays,
		KindAddMarginAnnotation, KindRemoveMarginAnnotation,
		KindShowPopup, KindHidePopup:
		return true
	case KindBatch:
		for _, sub := range e.Batch {
			if sub.IsWrite() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Inverse returns the event that undoes e. It assumes e has already been
// applied and its Old*/captured fields populated by EditorState.Apply.
// Read-only events have no meaningful inverse and are never asked for one
// by the event log.
func (e *Event) Inverse() *Event {
	switch e.Kind {
	case KindInsert:
		end := e.Range.Start + buffer.ByteOffset(len(e.NewText))
		return &Event{Kind: KindDelete, Range: buffer.Range{Start: e.Range.Start, End: end}, OldText: e.NewText, CursorID: e.CursorID}
	case KindDelete:
		return &Event{Kind: KindInsert, Range: buffer.Range{Start: e.Range.Start, End: e.Range.Start}, NewText: e.OldText, CursorID: e.CursorID}
	case KindReplace:
		newEnd := e.Range.Start + buffer.ByteOffset(len(e.NewText))
		return &Event{
			Kind:     KindReplace,
			Range:    buffer.Range{Start: e.Range.Start, End: newEnd},
			NewText:  e.OldText,
			OldText:  e.NewText,
			CursorID: e.CursorID,
		}
	case KindAddOverlay:
		return &Event{Kind: KindRemoveOverlay, OverlayID: e.OverlayID}
	case KindRemoveOverlay:
		return &Event{Kind: KindAddOverlay, OverlayID: e.OverlayID, Overlay: e.Overlay}
	case KindClearOverlays:
		// Apply stashes one AddOverlay event per cleared overlay in Batch;
		// re-adding them all is the inverse.
		inv := make([]*Event, len(e.Batch))
		copy(inv, e.Batch)
		return &Event{Kind: KindBatch, Batch: inv}
	case KindAddMarginAnnotation:
		return &Event{Kind: KindRemoveMarginAnnotation, AnnotationID: e.AnnotationID}
	case KindRemoveMarginAnnotation:
		return &Event{Kind: KindAddMarginAnnotation, AnnotationID: e.AnnotationID, Annotation: e.Annotation}
	case KindShowPopup:
		return &Event{Kind: KindHidePopup, PopupID: e.PopupID}
	case KindHidePopup:
		return &Event{Kind: KindShowPopup, PopupID: e.PopupID, PopupSpec: e.PopupSpec}
	case KindBatch:
		inv := make([]*Event, len(e.Batch))
		for i, sub := range e.Batch {
			inv[len(e.Batch)-1-i] = sub.Inverse()
		}
		return &Event{Kind: KindBatch, Batch: inv}
	default:
		return &Event{Kind: e.Kind}
	}
}

// NewInsert builds an Insert event.
func NewInsert(pos buffer.ByteOffset, text string) *Event {
	return &Event{Kind: KindInsert, Range: buffer.Range{Start: pos, End: pos}, NewText: text}
}

// NewDelete builds a Delete event.
func NewDelete(r buffer.Range) *Event {
	return &Event{Kind: KindDelete, Range: r}
}

// NewReplace builds a Replace event.
func NewReplace(r buffer.Range, text string) *Event {
	return &Event{Kind: KindReplace, Range: r, NewText: text}
}

// NewBatch groups several events to be applied and undone as one unit.
func NewBatch(events ...*Event) *Event {
	return &Event{Kind: KindBatch, Batch: events}
}
