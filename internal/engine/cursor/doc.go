// Package cursor provides the multi-cursor selection set for the editing
// engine.
//
// Selections use an anchor/head model: Anchor is where the selection
// started, Head is where typing happens. Anchor == Head is a bare cursor.
// Direction (head before or after anchor) is preserved until a merge
// collapses it.
//
// IDSet is the multi-cursor container. Every cursor has a stable ID that
// events and the log address it by, one cursor is designated primary, and
// overlapping selections are merged automatically, keeping the lowest
// surviving ID. AdjustForEdit maps every cursor across a buffer edit: the
// editing cursor lands at the edit's right edge, all others shift or
// clamp per the offset-mapping rule in AdjustOffset.
//
// Selection is an immutable value type and safe for concurrent use. IDSet
// is not synchronized; EditorState owns one per document and mutates it
// only from the dispatcher goroutine.
package cursor
