package ingest

import (
	"sync"
	"time"
)

// Phase is the loading phase of the ingestion pipeline.
type Phase string

const (
	PhaseInitial Phase = "initial"
	PhaseReady   Phase = "ready"
)

// LoadState moves from initial to ready exactly once: on the first
// end-of-stored-events signal, or once enough goals arrived and the minimum
// loading time passed.
type LoadState struct {
	mu         sync.Mutex
	start      time.Time
	minElapsed time.Duration
	minGoals   int
	phase      Phase
	ready      chan struct{}
}

// NewLoadState starts the clock at start.
func NewLoadState(start time.Time, minElapsed time.Duration, minGoals int) *LoadState {
	return &LoadState{
		start:      start,
		minElapsed: minElapsed,
		minGoals:   minGoals,
		phase:      PhaseInitial,
		ready:      make(chan struct{}),
	}
}

// MarkEOSE records the completion signal. It reports whether this call made
// the state ready.
func (l *LoadState) MarkEOSE() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transition()
}

// Observe re-evaluates the goal count rule. It reports whether this call made
// the state ready.
func (l *LoadState) Observe(goals int, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == PhaseReady {
		return false
	}
	if goals < l.minGoals || now.Sub(l.start) < l.minElapsed {
		return false
	}
	return l.transition()
}

func (l *LoadState) transition() bool {
	if l.phase == PhaseReady {
		return false
	}
	l.phase = PhaseReady
	close(l.ready)
	return true
}

// Phase returns the current phase.
func (l *LoadState) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Ready is closed when the state becomes ready.
func (l *LoadState) Ready() <-chan struct{} {
	return l.ready
}
