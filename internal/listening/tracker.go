// Package listening derives continuous audible playback intervals and
// reports them to the marketplace analytics endpoint. A segment covers
// linear, unmuted, audible playback of a single track; anything shorter
// than the minimum is scrubbing noise and is discarded.
package listening

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMinDuration is the shortest interval worth reporting.
const DefaultMinDuration = 2 * time.Second

const reportTimeout = 10 * time.Second

// Segment is one closed listening interval.
type Segment struct {
	TrackID  int64
	Start    time.Time
	Duration time.Duration
}

// Reporter transmits closed segments. Implementations must be safe for
// concurrent use and must fail soft: a reporting problem can never be
// allowed to affect playback.
type Reporter interface {
	LogSegment(ctx context.Context, seg Segment) error
}

// Tracker keeps at most one open interval at a time.
type Tracker struct {
	mu       sync.Mutex
	reporter Reporter
	min      time.Duration
	open     *Segment
	log      *logrus.Entry
}

// NewTracker creates a tracker reporting through r. A non-positive min
// falls back to DefaultMinDuration.
func NewTracker(r Reporter, min time.Duration) *Tracker {
	if min <= 0 {
		min = DefaultMinDuration
	}
	return &Tracker{
		reporter: r,
		min:      min,
		log:      logrus.WithField("component", "listening"),
	}
}

// Open starts a new interval for trackID. An interval already open at
// this point is a missed transition; it is closed (and conditionally
// reported) first rather than silently overwritten.
func (t *Tracker) Open(trackID int64, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open != nil {
		t.closeLocked(at)
	}
	t.open = &Segment{TrackID: trackID, Start: at}
}

// Close ends the open interval, reporting it when long enough. A close
// with no open interval is a no-op.
func (t *Tracker) Close(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked(at)
}

// Interrupt models a playback discontinuity (a seek) while audible: the
// interval closes at the discontinuity and a new one opens immediately,
// so each segment represents continuous linear playback.
func (t *Tracker) Interrupt(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open == nil {
		return
	}
	trackID := t.open.TrackID
	t.closeLocked(at)
	t.open = &Segment{TrackID: trackID, Start: at}
}

// HasOpen reports whether an interval is currently open.
func (t *Tracker) HasOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open != nil
}

func (t *Tracker) closeLocked(at time.Time) {
	if t.open == nil {
		return
	}
	seg := *t.open
	t.open = nil
	seg.Duration = at.Sub(seg.Start)
	if seg.Duration < t.min {
		return
	}
	go t.report(seg)
}

// report runs fire-and-forget: failures are logged, never retried, and
// never block the caller.
func (t *Tracker) report(seg Segment) {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	if err := t.reporter.LogSegment(ctx, seg); err != nil {
		t.log.WithError(err).WithField("track_id", seg.TrackID).
			Warn("failed to report listening segment")
	}
}
