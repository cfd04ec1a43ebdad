package state

import "github.com/lmeynard/chorus/internal/playback"

// Observer watches engine events and writes snapshots. Transport-shaping
// mutations (queue, track, state, seek) persist the live position; volume
// and mode changes preserve the stored one; progress ticks go through the
// debounced path.
type Observer struct {
	mgr    *Manager
	engine *playback.Engine
	sub    *playback.Subscription
}

// NewObserver wires a state manager to an engine subscription.
func NewObserver(mgr *Manager, engine *playback.Engine, sub *playback.Subscription) *Observer {
	return &Observer{mgr: mgr, engine: engine, sub: sub}
}

// Run consumes events until the subscription closes, then performs the
// final synchronous write. Call on its own goroutine.
func (o *Observer) Run() {
	for {
		select {
		case <-o.sub.QueueChanged:
			o.mgr.Save(o.engine.Snapshot(), false)
		case <-o.sub.TrackChanged:
			o.mgr.Save(o.engine.Snapshot(), false)
		case <-o.sub.StateChanged:
			o.mgr.Save(o.engine.Snapshot(), false)
		case <-o.sub.SeekPerformed:
			o.mgr.Save(o.engine.Snapshot(), false)
		case <-o.sub.ModeChanged:
			o.mgr.Save(o.engine.Snapshot(), true)
		case <-o.sub.VolumeChanged:
			o.mgr.Save(o.engine.Snapshot(), true)
		case <-o.sub.Progressed:
			o.mgr.SavePosition(o.engine.Snapshot())
		case <-o.sub.Done:
			o.mgr.Save(o.engine.Snapshot(), false)
			return
		}
	}
}
