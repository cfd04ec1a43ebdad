package listening

import (
	"time"

	"github.com/lmeynard/chorus/internal/playback"
)

// Observer drains an engine subscription and drives a Tracker. The engine
// already splits audibility across track changes, so the observer only
// needs the audibility and seek channels.
type Observer struct {
	tracker *Tracker
	sub     *playback.Subscription
}

// NewObserver wires a tracker to an engine subscription.
func NewObserver(tracker *Tracker, sub *playback.Subscription) *Observer {
	return &Observer{tracker: tracker, sub: sub}
}

// Run consumes events until the subscription closes, then force-closes
// any open interval. Call on its own goroutine.
func (o *Observer) Run() {
	for {
		select {
		case a := <-o.sub.Audibility:
			if a.Audible {
				o.tracker.Open(a.TrackID, a.At)
			} else {
				o.tracker.Close(a.At)
			}
		case sc := <-o.sub.SeekPerformed:
			o.tracker.Interrupt(sc.At)
		case <-o.sub.Done:
			o.tracker.Close(time.Now())
			return
		}
	}
}
