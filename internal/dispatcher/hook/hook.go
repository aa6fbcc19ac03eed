// Package hook provides extensible, priority-ordered before/after hooks
// around event application. Plugins and built-in editor features
// register hooks here rather than patching EditorState.Apply directly, so
// a runaway plugin hook can be unregistered without touching core code.
package hook

import "github.com/ninelines/scribe/internal/engine/event"

// Priority bands, matching the convention the dispatcher uses to decide
// whose veto wins when hooks disagree:
//
//	1000+   system/critical hooks (recovery, session lock)
//	500-999 framework hooks (auto-revert, LSP sync)
//	100-499 plugin hooks
//	0-99    user hooks (keybindings, custom scripts)
const (
	PrioritySystem   = 1000
	PriorityFramework = 500
	PriorityPlugin   = 100
	PriorityUser     = 0
)

// Hook is the base interface for all event hooks.
type Hook interface {
	// Name returns a unique identifier for this hook.
	Name() string

	// Priority returns the hook priority. Higher values run first for
	// Before hooks, last for After hooks.
	Priority() int
}

// BeforeHook is called before an event is applied to an EditorState. It
// may veto the event by returning false, in which case it is never
// applied and no later hook (of any priority) sees it.
type BeforeHook interface {
	Hook
	Before(e *event.Event) bool
}

// AfterHook is called once an event has been applied successfully.
type AfterHook interface {
	Hook
	After(e *event.Event)
}

// BeforeFunc adapts a plain function to a BeforeHook.
type BeforeFunc struct {
	name     string
	priority int
	fn       func(e *event.Event) bool
}

// NewBeforeFunc creates a BeforeHook from a function.
func NewBeforeFunc(name string, priority int, fn func(e *event.Event) bool) *BeforeFunc {
	return &BeforeFunc{name: name, priority: priority, fn: fn}
}

func (f *BeforeFunc) Name() string     { return f.name }
func (f *BeforeFunc) Priority() int    { return f.priority }
func (f *BeforeFunc) Before(e *event.Event) bool {
	if f.fn == nil {
		return true
	}
	return f.fn(e)
}

// AfterFunc adapts a plain function to an AfterHook.
type AfterFunc struct {
	name     string
	priority int
	fn       func(e *event.Event)
}

// NewAfterFunc creates an AfterHook from a function.
func NewAfterFunc(name string, priority int, fn func(e *event.Event)) *AfterFunc {
	return &AfterFunc{name: name, priority: priority, fn: fn}
}

func (f *AfterFunc) Name() string  { return f.name }
func (f *AfterFunc) Priority() int { return f.priority }
func (f *AfterFunc) After(e *event.Event) {
	if f.fn != nil {
		f.fn(e)
	}
}
