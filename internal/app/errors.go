package app

import "errors"

// Editor lifecycle errors.
var (
	// ErrQuit signals a normal user-requested exit.
	ErrQuit = errors.New("quit requested")

	// ErrAlreadyRunning indicates Start was called on a running editor.
	ErrAlreadyRunning = errors.New("editor already running")

	// ErrNotRunning indicates Stop was called on a stopped editor.
	ErrNotRunning = errors.New("editor not running")

	// ErrNoActiveDocument indicates no document is currently active.
	ErrNoActiveDocument = errors.New("no active document")

	// ErrDocumentNotFound indicates the id names no open document.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentAlreadyOpen indicates the id is already open.
	ErrDocumentAlreadyOpen = errors.New("document already open")

	// ErrUnsavedChanges indicates a close would discard unsaved writes.
	ErrUnsavedChanges = errors.New("unsaved changes")
)
