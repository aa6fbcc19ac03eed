// Package popup implements the LIFO stack of transient on-screen popups
// (completion lists, signature help, hover text) that plugins and the
// editor core push and pop as a unit so that, e.g., dismissing a
// completion list never accidentally dismisses a hover tooltip opened
// before it.
package popup

import "sync"

// ID uniquely identifies a popup on the stack.
type ID uint64

// Popup is a single entry on the popup stack.
type Popup struct {
	ID        ID
	Items     []string
	Selected  int
	Transient bool // auto-popped on the next cursor move or keystroke
}

// Stack is a LIFO stack of popups. Only the top popup is visible and
// receives SelectNext/SelectPrev navigation.
type Stack struct {
	mu     sync.Mutex
	items  []Popup
	nextID ID
}

// New creates an empty popup stack.
func New() *Stack {
	return &Stack{}
}

// Push adds a popup on top of the stack and returns its id.
func (s *Stack) Push(items []string, transient bool) ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.items = append(s.items, Popup{ID: id, Items: items, Transient: transient})
	return id
}

// PushWithID re-adds a popup under a previously allocated id, used when
// undo restores a popup that later log entries still reference.
func (s *Stack) PushWithID(id ID, items []string, transient bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id > s.nextID {
		s.nextID = id
	}
	s.items = append(s.items, Popup{ID: id, Items: items, Transient: transient})
}

// Pop removes the top popup, if any, and returns it.
func (s *Stack) Pop() (Popup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return Popup{}, false
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, true
}

// PopByID removes a specific popup wherever it sits in the stack and
// returns it. Used when a plugin explicitly hides a popup it previously
// pushed rather than relying on LIFO dismissal order.
func (s *Stack) PopByID(id ID) (Popup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.items {
		if p.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return p, true
		}
	}
	return Popup{}, false
}

// Top returns the topmost (visible) popup without removing it.
func (s *Stack) Top() (Popup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return Popup{}, false
	}
	return s.items[len(s.items)-1], true
}

// Len returns the number of popups on the stack.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// SelectNext advances the top popup's selection, wrapping at the end.
func (s *Stack) SelectNext() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return
	}
	top := &s.items[len(s.items)-1]
	if len(top.Items) == 0 {
		return
	}
	top.Selected = (top.Selected + 1) % len(top.Items)
}

// SelectPrev retreats the top popup's selection, wrapping at the start.
func (s *Stack) SelectPrev() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return
	}
	top := &s.items[len(s.items)-1]
	if len(top.Items) == 0 {
		return
	}
	top.Selected = (top.Selected - 1 + len(top.Items)) % len(top.Items)
}

// ClearTransient pops every transient popup from the top of the stack,
// stopping at the first non-transient one. Called on cursor movement and
// ordinary keystrokes so completion lists and hover popups don't linger
// past the interaction that opened them.
func (s *Stack) ClearTransient() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.items) > 0 && s.items[len(s.items)-1].Transient {
		s.items = s.items[:len(s.items)-1]
	}
}

// Clear empties the stack entirely.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}
