// Package marker accumulates the run-level instrumentation counters that
// become a job's debug_counts.json: one increment per (kind, reason) pair
// observed while the pipeline runs, plus a bounded trail of the
// individual events for post-hoc debugging. Adapted from the teacher's
// Marker interface (Mark/GetMarkers), generalized from a single
// signal-annotation call into the closed rejection/detection taxonomy
// this engine actually produces.
package marker

import (
	"sync"
	"time"
)

// Mark is one instrumentation event: a counter increment with enough
// context to locate it in a run's log.
type Mark struct {
	Ts     time.Time `json:"ts"`
	Symbol string    `json:"symbol"`
	Kind   string    `json:"kind"`
	Reason string    `json:"reason"`
}

// Marker records Marks and keeps a running count per (kind, reason).
type Marker interface {
	Mark(ts time.Time, symbol, kind, reason string)
	Counts() map[string]int
	Marks() []Mark
}

const maxTrail = 5000

type memoryMarker struct {
	mu     sync.Mutex
	counts map[string]int
	trail  []Mark
}

// New creates an in-memory Marker, scoped to one job run.
func New() Marker {
	return &memoryMarker{counts: map[string]int{}}
}

func (m *memoryMarker) Mark(ts time.Time, symbol, kind, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := kind + "." + reason
	m.counts[key]++

	if len(m.trail) < maxTrail {
		m.trail = append(m.trail, Mark{Ts: ts, Symbol: symbol, Kind: kind, Reason: reason})
	}
}

func (m *memoryMarker) Counts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}

	return out
}

func (m *memoryMarker) Marks() []Mark {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Mark, len(m.trail))
	copy(out, m.trail)

	return out
}
