// Package lsp covers the editor-side half of the language-server
// boundary the engine consumes: diagnostics arrive as arrays keyed by
// document URI and leave as prioritized overlay events the dispatcher
// applies like any other edit. Transport (the server process, JSON-RPC)
// is an external collaborator and not implemented here.
package lsp

import (
	"sort"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ninelines/scribe/internal/engine/event"
)

// DocumentURI identifies a document as the language server names it.
type DocumentURI string

// Severity follows the protocol's 1-4 scale.
type Severity int

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
	SeverityInfo    Severity = 3
	SeverityHint    Severity = 4
)

// Diagnostic is one server-reported finding, with its range already
// resolved to byte offsets by the document-sync layer.
type Diagnostic struct {
	Start    int64
	End      int64
	Severity Severity
	Source   string
	Message  string
}

// Store aggregates the latest diagnostics per document. Each publish
// replaces the document's previous set, matching the protocol's
// full-replace semantics.
type Store struct {
	mu    sync.RWMutex
	byURI map[DocumentURI][]Diagnostic

	// overlays holds the AddOverlay events of the last published batch
	// per document. Apply assigns each event its overlay id in place, so
	// these same pointers carry the ids the next publish must remove.
	overlays map[DocumentURI][]*event.Event
}

// NewStore creates an empty diagnostics store.
func NewStore() *Store {
	return &Store{
		byURI:    make(map[DocumentURI][]Diagnostic),
		overlays: make(map[DocumentURI][]*event.Event),
	}
}

// Publish replaces the diagnostics for uri and returns the stored copy,
// sorted by start offset.
func (s *Store) Publish(uri DocumentURI, diags []Diagnostic) []Diagnostic {
	sorted := make([]Diagnostic, len(diags))
	copy(sorted, diags)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	s.mu.Lock()
	s.byURI[uri] = sorted
	s.mu.Unlock()
	return sorted
}

// Get returns the current diagnostics for uri.
func (s *Store) Get(uri DocumentURI) []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byURI[uri]
}

// Clear drops a document's diagnostics, e.g. when its buffer closes.
func (s *Store) Clear(uri DocumentURI) {
	s.mu.Lock()
	delete(s.byURI, uri)
	s.mu.Unlock()
}

// Counts returns the number of diagnostics per severity for uri.
func (s *Store) Counts(uri DocumentURI) (errors, warnings, infos, hints int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.byURI[uri] {
		switch d.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			infos++
		default:
			hints++
		}
	}
	return
}

// Overlay priorities per severity. Errors paint over warnings, warnings
// over the informational tiers, and all of them over ordinary search or
// selection highlights (which live below 100).
const (
	priorityHint    int32 = 100
	priorityInfo    int32 = 110
	priorityWarning int32 = 120
	priorityError   int32 = 130
)

func severityColor(sev Severity) colorful.Color {
	switch sev {
	case SeverityError:
		return colorful.Color{R: 0.86, G: 0.20, B: 0.18}
	case SeverityWarning:
		return colorful.Color{R: 0.90, G: 0.68, B: 0.08}
	case SeverityInfo:
		return colorful.Color{R: 0.23, G: 0.51, B: 0.96}
	default:
		return colorful.Color{R: 0.55, G: 0.55, B: 0.55}
	}
}

func severityPriority(sev Severity) int32 {
	switch sev {
	case SeverityError:
		return priorityError
	case SeverityWarning:
		return priorityWarning
	case SeverityInfo:
		return priorityInfo
	default:
		return priorityHint
	}
}

// OverlayEvents converts a document's just-published diagnostics into one
// atomic batch: remove the overlays from the document's previous publish
// (by the ids Apply assigned them), then add one overlay per finding. The
// caller submits the batch on the dispatcher's LSP channel; it applies as
// a single step and never touches overlays other subsystems own.
func (s *Store) OverlayEvents(uri DocumentURI, diags []Diagnostic) *event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []*event.Event
	for _, prev := range s.overlays[uri] {
		if prev.OverlayID != 0 {
			events = append(events, &event.Event{Kind: event.KindRemoveOverlay, OverlayID: prev.OverlayID})
		}
	}

	adds := make([]*event.Event, 0, len(diags))
	for _, d := range diags {
		c := severityColor(d.Severity)
		adds = append(adds, &event.Event{
			Kind: event.KindAddOverlay,
			Overlay: event.OverlaySpec{
				Start:    d.Start,
				End:      d.End,
				Priority: severityPriority(d.Severity),
				FaceRGB:  [3]float64{c.R, c.G, c.B},
			},
		})
	}
	s.overlays[uri] = adds
	return event.NewBatch(append(events, adds...)...)
}
