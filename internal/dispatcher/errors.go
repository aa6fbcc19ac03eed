package dispatcher

import "errors"

// ErrNotRunning indicates an operation was attempted on a stopped dispatcher.
var ErrNotRunning = errors.New("dispatcher not running")

// ErrAlreadyRunning indicates Start was called on a running dispatcher.
var ErrAlreadyRunning = errors.New("dispatcher already running")

// ErrNoActiveState indicates the dispatcher has no EditorState to apply
// events against.
var ErrNoActiveState = errors.New("dispatcher has no active editor state")
