// Package overlay renders ranged, prioritized annotations over buffer
// content: diagnostic underlines, bookmark highlights, search-match
// backgrounds. Overlays are anchored to byte ranges via the interval
// tree so they move correctly as the buffer is edited, and are composited
// for display in ascending priority order so a higher-priority overlay
// (e.g. an error diagnostic) visually wins over a lower-priority one
// (e.g. a search highlight) covering the same span.
package overlay

import (
	"sort"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ninelines/scribe/internal/engine/buffer"
	"github.com/ninelines/scribe/internal/engine/interval"
)

// FaceKind discriminates the members of the Face union.
type FaceKind uint8

const (
	FaceUnderline FaceKind = iota
	FaceBackground
	FaceForeground
	FaceCombined
)

// UnderlineStyle distinguishes squiggly diagnostic underlines from plain
// ones.
type UnderlineStyle uint8

const (
	UnderlineStraight UnderlineStyle = iota
	UnderlineSquiggly
	UnderlineDouble
)

// Face is the visual treatment applied to an overlay's span. Exactly one
// shape is meaningful per Kind; Combined carries all three at once for
// overlays that both underline and shade their range (e.g. an error
// diagnostic: squiggly red underline plus faint red background).
type Face struct {
	Kind  FaceKind
	Color colorful.Color

	UnderlineStyle UnderlineStyle

	// Backing holds the background color for a Combined face. Nil for the
	// single-shape faces (Underline/Background/Foreground).
	Backing *colorful.Color
}

// Underline builds a Face that underlines its range.
func Underline(c colorful.Color, style UnderlineStyle) Face {
	return Face{Kind: FaceUnderline, Color: c, UnderlineStyle: style}
}

// Background builds a Face that shades its range.
func Background(c colorful.Color) Face {
	return Face{Kind: FaceBackground, Color: c}
}

// Foreground builds a Face that recolors its range's text.
func Foreground(c colorful.Color) Face {
	return Face{Kind: FaceForeground, Color: c}
}

// Combined builds a Face carrying an underline and a background, which is
// the common diagnostic treatment.
func Combined(underline colorful.Color, style UnderlineStyle, background colorful.Color) Face {
	return Face{Kind: FaceCombined, Color: underline, UnderlineStyle: style}.withBackground(background)
}

// since Face can only hold one Color field for the simple kinds, Combined
// faces carry their background in the separate Backing color.
func (f Face) withBackground(bg colorful.Color) Face {
	f.Backing = &bg
	return f
}

// Overlay is a single ranged annotation. Priority orders composition:
// lower values are painted first, higher values paint on top.
type Overlay struct {
	ID       interval.ID
	Range    buffer.Range
	Priority int32
	Face     Face
	Message  string // diagnostic hover text, empty for pure highlights
}

// Manager owns the interval tree of live overlays and exposes the
// query/composite operations the viewport needs to render a visible
// region.
type Manager struct {
	mu   sync.RWMutex
	tree *interval.Tree
	meta map[interval.ID]Overlay
}

// NewManager creates an empty overlay manager.
func NewManager() *Manager {
	return &Manager{tree: interval.New(), meta: make(map[interval.ID]Overlay)}
}

// Add registers an overlay and returns its id.
func (m *Manager) Add(r buffer.Range, priority int32, face Face, message string) interval.ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.tree.Insert(int64(r.Start), int64(r.End), interval.Payload{Kind: interval.KindPoint})
	m.meta[id] = Overlay{ID: id, Range: r, Priority: priority, Face: face, Message: message}
	return id
}

// AddWithID registers an overlay under a caller-chosen id, used when undo
// re-creates an overlay that later log entries still reference by id.
func (m *Manager) AddWithID(id interval.ID, r buffer.Range, priority int32, face Face, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.tree.InsertWithID(id, int64(r.Start), int64(r.End), interval.Payload{Kind: interval.KindPoint}); err != nil {
		return err
	}
	m.meta[id] = Overlay{ID: id, Range: r, Priority: priority, Face: face, Message: message}
	return nil
}

// Remove deletes an overlay by id.
func (m *Manager) Remove(id interval.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.tree.Delete(id)
	delete(m.meta, id)
}

// Clear removes every overlay.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tree = interval.New()
	m.meta = make(map[interval.ID]Overlay)
}

// Count returns the number of live overlays.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.meta)
}

// AdjustForEdit shifts every overlay's anchored range in response to an
// edit, keeping metadata ranges in sync with the interval tree.
func (m *Manager) AdjustForEdit(pos, delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tree.AdjustForEdit(pos, delta)
	for _, mk := range m.tree.All() {
		ov := m.meta[mk.ID]
		ov.Range = buffer.Range{Start: buffer.ByteOffset(mk.Start), End: buffer.ByteOffset(mk.End)}
		m.meta[mk.ID] = ov
	}
}

// QueryRange returns every overlay overlapping [lo, hi), ordered by
// Priority ascending (ties broken by ID for determinism) so callers can
// composite in paint order directly.
func (m *Manager) QueryRange(lo, hi buffer.ByteOffset) []Overlay {
	m.mu.RLock()
	defer m.mu.RUnlock()

	markers := m.tree.Query(int64(lo), int64(hi))
	out := make([]Overlay, 0, len(markers))
	for _, mk := range markers {
		out = append(out, m.meta[mk.ID])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns an overlay by id.
func (m *Manager) Get(id interval.ID) (Overlay, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ov, ok := m.meta[id]
	return ov, ok
}
