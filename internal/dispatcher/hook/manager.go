package hook

import (
	"sort"
	"sync"

	"github.com/ninelines/scribe/internal/engine/event"
)

// Manager manages event hooks with priority-based ordering.
type Manager struct {
	mu     sync.RWMutex
	before []BeforeHook
	after  []AfterHook
}

// NewManager creates a new hook manager.
func NewManager() *Manager {
	return &Manager{}
}

// RegisterBefore adds a before-hook, replacing any existing hook of the
// same name, and keeps the list sorted by priority descending (highest
// runs first, so a system-priority veto always has the last word).
func (m *Manager) RegisterBefore(h BeforeHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.before {
		if existing.Name() == h.Name() {
			m.before[i] = h
			m.sortBefore()
			return
		}
	}
	m.before = append(m.before, h)
	m.sortBefore()
}

// RegisterAfter adds an after-hook, replacing any existing hook of the
// same name, sorted by priority ascending (lowest first, so a
// system-priority observer sees the fully-settled final state last).
func (m *Manager) RegisterAfter(h AfterHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.after {
		if existing.Name() == h.Name() {
			m.after[i] = h
			m.sortAfter()
			return
		}
	}
	m.after = append(m.after, h)
	m.sortAfter()
}

// Register adds a hook that implements either or both interfaces.
func (m *Manager) Register(h Hook) {
	if before, ok := h.(BeforeHook); ok {
		m.RegisterBefore(before)
	}
	if after, ok := h.(AfterHook); ok {
		m.RegisterAfter(after)
	}
}

// UnregisterBefore removes a before-hook by name.
func (m *Manager) UnregisterBefore(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, h := range m.before {
		if h.Name() == name {
			m.before = append(m.before[:i], m.before[i+1:]...)
			return true
		}
	}
	return false
}

// UnregisterAfter removes an after-hook by name.
func (m *Manager) UnregisterAfter(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, h := range m.after {
		if h.Name() == name {
			m.after = append(m.after[:i], m.after[i+1:]...)
			return true
		}
	}
	return false
}

// Unregister removes a hook by name from both lists.
func (m *Manager) Unregister(name string) bool {
	before := m.UnregisterBefore(name)
	after := m.UnregisterAfter(name)
	return before || after
}

// RunBefore runs every before-hook in priority order, short-circuiting
// and returning false on the first veto.
func (m *Manager) RunBefore(e *event.Event) bool {
	m.mu.RLock()
	hooks := make([]BeforeHook, len(m.before))
	copy(hooks, m.before)
	m.mu.RUnlock()

	for _, h := range hooks {
		if !h.Before(e) {
			return false
		}
	}
	return true
}

// RunAfter runs every after-hook in priority order.
func (m *Manager) RunAfter(e *event.Event) {
	m.mu.RLock()
	hooks := make([]AfterHook, len(m.after))
	copy(hooks, m.after)
	m.mu.RUnlock()

	for _, h := range hooks {
		h.After(e)
	}
}

// BeforeCount returns the number of registered before-hooks.
func (m *Manager) BeforeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.before)
}

// AfterCount returns the number of registered after-hooks.
func (m *Manager) AfterCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.after)
}

func (m *Manager) sortBefore() {
	sort.Slice(m.before, func(i, j int) bool {
		return m.before[i].Priority() > m.before[j].Priority()
	})
}

func (m *Manager) sortAfter() {
	sort.Slice(m.after, func(i, j int) bool {
		return m.after[i].Priority() < m.after[j].Priority()
	})
}

// Clear removes all hooks.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.before = nil
	m.after = nil
}
