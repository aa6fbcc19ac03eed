// Package eventlog implements the linear, indexed history of events
// applied to an EditorState. Unlike a plain undo/redo stack of two
// separate slices, the log keeps every event ever appended in one slice
// and a single cursor index into it, because read-only events (popup
// navigation, and anything else Event.IsWrite reports false for) are
// recorded for replay and audit but must never themselves be undone or
// redone; they are skipped over rather than popped.
package eventlog

import (
	"github.com/ninelines/scribe/internal/engine/event"
)

// Log is the append-only, indexed record of events applied to one
// document, plus a cursor marking the current undo/redo position and a
// save-point marking the event index at which the document was last
// written to disk.
type Log struct {
	entries   []*event.Event
	cursor    int // number of entries currently "applied"; redo entries live at [cursor:]
	savePoint int // cursor value at the last save; 0 (empty history) for a new log
}

// New creates an empty log.
func New() *Log {
	return &Log{savePoint: 0}
}

// Append records an event as having just been applied and clears any
// pending redo history beyond the current cursor, exactly as a normal
// editor history works: making a new edit after an undo abandons the
// undone branch.
func (l *Log) Append(e *event.Event) {
	l.entries = append(l.entries[:l.cursor], e)
	l.cursor++
}

// Undo returns the most recent write event before the cursor and moves
// the cursor back past it, skipping any trailing read-only events (which
// stay recorded but are not themselves undoable). Returns nil, false if
// there is nothing left to undo.
func (l *Log) Undo() (*event.Event, bool) {
	i := l.cursor
	for i > 0 {
		i--
		// Read-only entries are transparent to the write-event undo
		// sequence: skipped here, preserved in the log.
		if l.entries[i].IsWrite() {
			l.cursor = i
			return l.entries[i], true
		}
	}
	// Only read-only entries (or nothing) precede the cursor. Leave the
	// cursor alone: moving it with no write undone would flip the
	// save-point comparison without any content change.
	return nil, false
}

// Redo returns the next write event after the cursor and advances the
// cursor past it, skipping any leading read-only events. Returns nil,
// false if there is nothing left to redo.
func (l *Log) Redo() (*event.Event, bool) {
	i := l.cursor
	for i < len(l.entries) {
		e := l.entries[i]
		i++
		if e.IsWrite() {
			l.cursor = i
			return e, true
		}
	}
	return nil, false
}

// CanUndo reports whether any write event precedes the cursor.
func (l *Log) CanUndo() bool {
	for i := l.cursor - 1; i >= 0; i-- {
		if l.entries[i].IsWrite() {
			return true
		}
	}
	return false
}

// CanRedo reports whether any write event follows the cursor.
func (l *Log) CanRedo() bool {
	for i := l.cursor; i < len(l.entries); i++ {
		if l.entries[i].IsWrite() {
			return true
		}
	}
	return false
}

// MarkSaved records the current cursor as the save point.
func (l *Log) MarkSaved() {
	l.savePoint = l.cursor
}

// IsModified reports whether the document has unsaved write events,
// i.e. the cursor has moved away from the save point via at least one
// write (undoing back to the exact save point makes this false again,
// matching the familiar "undo to clean" editor behavior).
func (l *Log) IsModified() bool {
	return l.cursor != l.savePoint
}

// Len returns the total number of recorded entries, including the
// not-yet-superseded redo tail.
func (l *Log) Len() int {
	return len(l.entries)
}

// Cursor returns the current position, for tests and diagnostics.
func (l *Log) Cursor() int {
	return l.cursor
}
