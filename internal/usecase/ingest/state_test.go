package ingest

import (
	"testing"
	"time"
)

func TestLoadStateEOSE(t *testing.T) {
	start := time.Unix(0, 0)
	st := NewLoadState(start, time.Second, 100)
	if st.Phase() != PhaseInitial {
		t.Fatalf("unexpected phase %s", st.Phase())
	}
	if !st.MarkEOSE() {
		t.Fatalf("first EOSE must make the state ready")
	}
	if st.MarkEOSE() {
		t.Fatalf("second EOSE must not transition again")
	}
	select {
	case <-st.Ready():
	default:
		t.Fatalf("ready channel must be closed")
	}
}

func TestLoadStateGoalThreshold(t *testing.T) {
	start := time.Unix(0, 0)
	st := NewLoadState(start, time.Second, 100)

	if st.Observe(150, start.Add(500*time.Millisecond)) {
		t.Fatalf("must wait for the minimum loading time")
	}
	if st.Observe(99, start.Add(2*time.Second)) {
		t.Fatalf("must wait for the minimum goal count")
	}
	if !st.Observe(100, start.Add(time.Second)) {
		t.Fatalf("both thresholds met, expected ready")
	}
	if st.Observe(0, start) || st.Phase() != PhaseReady {
		t.Fatalf("ready is terminal")
	}
}
