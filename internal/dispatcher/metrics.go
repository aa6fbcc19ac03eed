package dispatcher

import (
	"sort"
	"sync"
	"time"

	"github.com/ninelines/scribe/internal/engine/event"
)

// Metrics collects event-application statistics, keyed by event kind.
type Metrics struct {
	mu sync.RWMutex

	kindMetrics map[string]*KindMetrics

	totalApplied uint64
	totalErrors  uint64
	totalPanics  uint64

	totalDuration time.Duration
}

// KindMetrics holds metrics for one event.Kind.
type KindMetrics struct {
	Kind          string
	AppliedCount  uint64
	ErrorCount    uint64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	LastApplied   time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{kindMetrics: make(map[string]*KindMetrics)}
}

// RecordApply records one event application.
func (m *Metrics) RecordApply(e *event.Event, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalApplied++
	m.totalDuration += duration
	if err != nil {
		m.totalErrors++
	}

	kind := e.Kind.String()
	km := m.kindMetrics[kind]
	if km == nil {
		km = &KindMetrics{Kind: kind, MinDuration: duration, MaxDuration: duration}
		m.kindMetrics[kind] = km
	}
	km.AppliedCount++
	km.TotalDuration += duration
	km.LastApplied = time.Now()
	if duration < km.MinDuration {
		km.MinDuration = duration
	}
	if duration > km.MaxDuration {
		km.MaxDuration = duration
	}
	if err != nil {
		km.ErrorCount++
	}
}

// RecordPanic records a panic recovered while applying an event of kind.
func (m *Metrics) RecordPanic(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalPanics++
	if km := m.kindMetrics[kind]; km != nil {
		km.ErrorCount++
	}
}

// TotalApplied returns the total number of events applied.
func (m *Metrics) TotalApplied() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalApplied
}

// TotalErrors returns the total number of apply errors.
func (m *Metrics) TotalErrors() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalErrors
}

// TotalPanics returns the total number of panics recovered.
func (m *Metrics) TotalPanics() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalPanics
}

// AverageDuration returns the mean apply duration across all kinds.
func (m *Metrics) AverageDuration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.totalApplied == 0 {
		return 0
	}
	return m.totalDuration / time.Duration(m.totalApplied)
}

// KindStats returns a copy of the metrics for one kind, or nil if unseen.
func (m *Metrics) KindStats(kind string) *KindMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	km := m.kindMetrics[kind]
	if km == nil {
		return nil
	}
	cp := *km
	return &cp
}

// TopKinds returns the n most frequently applied kinds, most first.
func (m *Metrics) TopKinds(n int) []*KindMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*KindMetrics, 0, len(m.kindMetrics))
	for _, km := range m.kindMetrics {
		cp := *km
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedCount > out[j].AppliedCount })
	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// Snapshot is a point-in-time view of the aggregate counters.
type Snapshot struct {
	TotalApplied    uint64
	TotalErrors     uint64
	TotalPanics     uint64
	AverageDuration time.Duration
	KindCount       int
	Timestamp       time.Time
}

// Snapshot returns the current aggregate counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		TotalApplied: m.totalApplied,
		TotalErrors:  m.totalErrors,
		TotalPanics:  m.totalPanics,
		KindCount:    len(m.kindMetrics),
		Timestamp:    time.Now(),
	}
	if m.totalApplied > 0 {
		s.AverageDuration = m.totalDuration / time.Duration(m.totalApplied)
	}
	return s
}

// Reset clears all collected metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kindMetrics = make(map[string]*KindMetrics)
	m.totalApplied = 0
	m.totalErrors = 0
	m.totalPanics = 0
	m.totalDuration = 0
}
