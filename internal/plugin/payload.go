package plugin

import (
	"github.com/tidwall/sjson"

	"github.com/ninelines/scribe/internal/engine/event"
	"github.com/ninelines/scribe/internal/engine/eventstate"
)

// Hook names plugins can subscribe to. Payload fields are stable API:
// plugins parse them by path, so fields are added, never renamed.
const (
	HookBeforeInsert = "before_insert"
	HookAfterInsert  = "after_insert"
	HookBeforeDelete = "before_delete"
	HookAfterDelete  = "after_delete"
	HookAfterBatch   = "after_batch"
	HookCursorMoved  = "cursor_moved"
	HookIdle         = "idle"
	HookFileOpened   = "file_opened"
)

// HookForEvent maps an applied event to its before/after hook names.
// Events without a plugin-visible hook return empty strings.
func HookForEvent(e *event.Event) (before, after string) {
	switch e.Kind {
	case event.KindInsert:
		return HookBeforeInsert, HookAfterInsert
	case event.KindDelete:
		return HookBeforeDelete, HookAfterDelete
	case event.KindReplace:
		// A replace is a delete-then-insert from the plugin's view; the
		// delete hooks carry the richer payload.
		return HookBeforeDelete, HookAfterDelete
	case event.KindMoveCursor:
		return "", HookCursorMoved
	case event.KindBatch:
		return "", HookAfterBatch
	default:
		return "", ""
	}
}

// BuildPayload serializes the plugin-visible view of an applied event.
// The JSON is assembled with sjson so the payload shape stays a flat,
// path-addressable document regardless of which optional fields apply.
func BuildPayload(bufferID string, e *event.Event, state *eventstate.EditorState) string {
	p := "{}"
	p, _ = sjson.Set(p, "buffer_id", bufferID)
	p, _ = sjson.Set(p, "kind", e.Kind.String())

	switch e.Kind {
	case event.KindInsert:
		p, _ = sjson.Set(p, "position", int64(e.Range.Start))
		p, _ = sjson.Set(p, "text", e.NewText)
		p, _ = sjson.Set(p, "affected_start", int64(e.Range.Start))
		p, _ = sjson.Set(p, "affected_end", int64(e.Range.Start)+int64(len(e.NewText)))
		p = addLineSpan(p, state, int64(e.Range.Start), int64(e.Range.Start)+int64(len(e.NewText)))
		p, _ = sjson.Set(p, "lines_added", countNewlines(e.NewText))
	case event.KindDelete, event.KindReplace:
		p, _ = sjson.Set(p, "position", int64(e.Range.Start))
		p, _ = sjson.Set(p, "deleted_text", e.OldText)
		p, _ = sjson.Set(p, "text", e.NewText)
		p, _ = sjson.Set(p, "affected_start", int64(e.Range.Start))
		p, _ = sjson.Set(p, "affected_end", int64(e.Range.End))
		p = addLineSpan(p, state, int64(e.Range.Start), int64(e.Range.Start))
		p, _ = sjson.Set(p, "lines_added", countNewlines(e.NewText)-countNewlines(e.OldText))
	case event.KindMoveCursor:
		p, _ = sjson.Set(p, "cursor_id", uint64(e.CursorID))
		p, _ = sjson.Set(p, "position", int64(e.Selection.Head))
		p, _ = sjson.Set(p, "anchor", int64(e.Selection.Anchor))
	case event.KindBatch:
		p, _ = sjson.Set(p, "event_count", len(e.Batch))
	}
	return p
}

func addLineSpan(p string, state *eventstate.EditorState, start, end int64) string {
	if state == nil {
		return p
	}
	if l, err := state.Buf.LineOf(min64(start, state.Buf.Len())); err == nil {
		p, _ = sjson.Set(p, "start_line", l)
	}
	if l, err := state.Buf.LineOf(min64(end, state.Buf.Len())); err == nil {
		p, _ = sjson.Set(p, "end_line", l)
	}
	return p
}

func countNewlines(text string) int {
	n := 0
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
