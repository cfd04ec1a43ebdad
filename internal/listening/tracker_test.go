package listening

import (
	"context"
	"testing"
	"time"
)

// chanReporter delivers reported segments on a channel so tests can wait
// for the fire-and-forget goroutine.
type chanReporter struct {
	segments chan Segment
	err      error
}

func newChanReporter() *chanReporter {
	return &chanReporter{segments: make(chan Segment, 8)}
}

func (r *chanReporter) LogSegment(_ context.Context, seg Segment) error {
	r.segments <- seg
	return r.err
}

func (r *chanReporter) recv(t *testing.T) Segment {
	t.Helper()
	select {
	case seg := <-r.segments:
		return seg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reported segment")
		return Segment{}
	}
}

func (r *chanReporter) expectNone(t *testing.T) {
	t.Helper()
	select {
	case seg := <-r.segments:
		t.Fatalf("unexpected segment reported: %+v", seg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTrackerReportsLongEnoughSegment(t *testing.T) {
	r := newChanReporter()
	tr := NewTracker(r, 0)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tr.Open(7, start)
	tr.Close(start.Add(5 * time.Second))

	seg := r.recv(t)
	if seg.TrackID != 7 {
		t.Errorf("TrackID = %d, want 7", seg.TrackID)
	}
	if !seg.Start.Equal(start) {
		t.Errorf("Start = %v, want %v", seg.Start, start)
	}
	if seg.Duration != 5*time.Second {
		t.Errorf("Duration = %v, want 5s", seg.Duration)
	}
}

func TestTrackerMinimumIsInclusive(t *testing.T) {
	r := newChanReporter()
	tr := NewTracker(r, 0)
	start := time.Now()

	// Exactly the minimum counts.
	tr.Open(1, start)
	tr.Close(start.Add(DefaultMinDuration))
	if seg := r.recv(t); seg.Duration != DefaultMinDuration {
		t.Errorf("Duration = %v, want %v", seg.Duration, DefaultMinDuration)
	}

	// One millisecond under does not.
	tr.Open(1, start)
	tr.Close(start.Add(DefaultMinDuration - time.Millisecond))
	r.expectNone(t)
}

func TestTrackerCloseWithoutOpenIsNoop(t *testing.T) {
	r := newChanReporter()
	tr := NewTracker(r, 0)

	tr.Close(time.Now())

	r.expectNone(t)
	if tr.HasOpen() {
		t.Error("HasOpen() = true after bare close")
	}
}

func TestTrackerInterruptSplitsSegment(t *testing.T) {
	r := newChanReporter()
	tr := NewTracker(r, 0)
	start := time.Now()

	tr.Open(3, start)
	tr.Interrupt(start.Add(10 * time.Second))

	seg := r.recv(t)
	if seg.TrackID != 3 || seg.Duration != 10*time.Second {
		t.Errorf("first segment = %+v, want track 3 over 10s", seg)
	}
	if !tr.HasOpen() {
		t.Fatal("no interval reopened after interrupt")
	}

	tr.Close(start.Add(18 * time.Second))
	seg = r.recv(t)
	if seg.TrackID != 3 || seg.Duration != 8*time.Second {
		t.Errorf("second segment = %+v, want track 3 over 8s", seg)
	}
}

func TestTrackerInterruptWithoutOpenIsNoop(t *testing.T) {
	r := newChanReporter()
	tr := NewTracker(r, 0)

	tr.Interrupt(time.Now())

	if tr.HasOpen() {
		t.Error("interrupt opened an interval out of nothing")
	}
}

func TestTrackerShortSliceAroundSeekDiscarded(t *testing.T) {
	r := newChanReporter()
	tr := NewTracker(r, 0)
	start := time.Now()

	tr.Open(3, start)
	tr.Interrupt(start.Add(500 * time.Millisecond))
	tr.Close(start.Add(800 * time.Millisecond))

	r.expectNone(t)
}

func TestTrackerOpenClosesMissedInterval(t *testing.T) {
	r := newChanReporter()
	tr := NewTracker(r, 0)
	start := time.Now()

	tr.Open(1, start)
	tr.Open(2, start.Add(6*time.Second))

	seg := r.recv(t)
	if seg.TrackID != 1 || seg.Duration != 6*time.Second {
		t.Errorf("missed interval = %+v, want track 1 over 6s", seg)
	}

	tr.Close(start.Add(10 * time.Second))
	seg = r.recv(t)
	if seg.TrackID != 2 || seg.Duration != 4*time.Second {
		t.Errorf("second interval = %+v, want track 2 over 4s", seg)
	}
}

func TestTrackerReporterFailureIsSwallowed(t *testing.T) {
	r := newChanReporter()
	r.err = context.DeadlineExceeded
	tr := NewTracker(r, 0)
	start := time.Now()

	tr.Open(1, start)
	tr.Close(start.Add(5 * time.Second))
	r.recv(t)

	// The tracker keeps working after a failed report.
	tr.Open(2, start)
	tr.Close(start.Add(5 * time.Second))
	if seg := r.recv(t); seg.TrackID != 2 {
		t.Errorf("TrackID = %d, want 2", seg.TrackID)
	}
}

func TestTrackerCustomMinimum(t *testing.T) {
	r := newChanReporter()
	tr := NewTracker(r, 4*time.Second)
	start := time.Now()

	tr.Open(1, start)
	tr.Close(start.Add(3 * time.Second))
	r.expectNone(t)

	tr.Open(1, start)
	tr.Close(start.Add(4 * time.Second))
	if seg := r.recv(t); seg.Duration != 4*time.Second {
		t.Errorf("Duration = %v, want 4s", seg.Duration)
	}
}
