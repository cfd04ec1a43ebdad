package playback

import (
	"time"

	"github.com/lmeynard/chorus/internal/sink"
)

// seekTolerance is the largest drift between the transport clock and the
// sink's actual position that is reconciled without forcing a sink seek.
// Smaller deltas are natural decoder drift; seeking on them would make the
// two clocks oscillate.
const seekTolerance = 650 * time.Millisecond

// startCurrentLocked points the sink at the current track. A changed URL
// triggers a reload and resets the transport clock; an unchanged URL only
// re-issues play if intent says so (repeat-one on the same track).
func (e *Engine) startCurrentLocked() {
	t := e.queue.Current()
	if t == nil {
		return
	}
	if t.AudioURL != e.loadedURL {
		e.loadedURL = t.AudioURL
		e.position = 0
		e.duration = t.Duration // catalog hint; sink metadata refines it
		e.restorePos = 0
		e.sink.Load(t.AudioURL)
	}
	e.honorIntentLocked()
}

// honorIntentLocked nudges the sink toward the current intent. It is
// idempotent: with unchanged state it issues no further sink calls. A
// rejected play (platform autoplay policy) fails soft by forcing intent
// back to paused instead of leaving state and sink out of sync.
func (e *Engine) honorIntentLocked() {
	if e.playing {
		if e.sink.State() == sink.Playing || e.sink.ReadyState() < sink.ReadyEnough {
			return
		}
		if err := e.sink.Play(); err != nil {
			e.playing = false
			e.log.WithError(err).WithField("url", e.loadedURL).
				Warn("audio backend rejected play")
			e.broadcast(func(s *Subscription) {
				s.sendError(ErrorEvent{Operation: "play", URL: e.loadedURL, Err: err})
			})
		}
	} else if e.sink.State() == sink.Playing {
		e.sink.Pause()
	}
}

// SeekTo moves the transport clock to an absolute position. The sink is
// only seeked when the drift exceeds the tolerance.
func (e *Engine) SeekTo(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seekToLocked(pos)
}

func (e *Engine) seekToLocked(pos time.Duration) {
	if e.queue.Current() == nil {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if e.duration > 0 && pos > e.duration {
		pos = e.duration
	}
	e.position = pos

	delta := pos - e.sink.Position()
	if delta < 0 {
		delta = -delta
	}
	if delta > seekTolerance {
		e.sink.Seek(pos)
	}
	ev := SeekChange{Position: pos, At: e.now()}
	e.broadcast(func(s *Subscription) {
		s.sendSeek(ev)
	})
}

// BeginSeek marks the start of a seek gesture. Sink progress is ignored
// until EndSeek so the handle does not fight the playback clock.
func (e *Engine) BeginSeek() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seeking = true
}

// EndSeek completes a seek gesture at the released position and resumes
// the sink if intent says playing.
func (e *Engine) EndSeek(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seeking = false
	e.seekToLocked(pos)
	e.honorIntentLocked()
}

// restartCurrentLocked rewinds the current track to zero without moving
// the queue index.
func (e *Engine) restartCurrentLocked() {
	e.position = 0
	e.sink.Seek(0)
	ev := SeekChange{At: e.now()}
	e.broadcast(func(s *Subscription) {
		s.sendSeek(ev)
	})
	e.honorIntentLocked()
}

// handleSinkEvent applies one asynchronous sink signal. Redundant
// delivery is harmless: every branch reconciles toward current state
// rather than assuming a transition.
func (e *Engine) handleSinkEvent(ev sink.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prevState := e.stateLocked()

	switch ev.Kind {
	case sink.EventReady:
		e.honorIntentLocked()

	case sink.EventMetadata:
		e.duration = ev.Duration
		if e.restorePos > 0 {
			pos := e.restorePos
			e.restorePos = 0
			if pos >= ev.Duration {
				// Persisted clock at or past the end: land just before it.
				pos = ev.Duration - time.Second
				if pos < 0 {
					pos = 0
				}
			}
			if !e.seeking {
				e.sink.Seek(pos)
				e.position = pos
			}
		}
		e.honorIntentLocked()

	case sink.EventProgress:
		if e.seeking {
			return
		}
		e.position = ev.Position
		e.broadcast(func(s *Subscription) {
			s.sendProgress(ev.Position)
		})

	case sink.EventEnded:
		e.handleTrackEndLocked()
		return // handleTrackEndLocked emits its own state/audibility

	case sink.EventError:
		e.playing = false
		e.log.WithError(ev.Err).WithField("url", e.loadedURL).
			Error("audio backend error")
		e.broadcast(func(s *Subscription) {
			s.sendError(ErrorEvent{Operation: "playback", URL: e.loadedURL, Err: ev.Err})
		})
	}

	e.emitStateIfChangedLocked(prevState)
	e.syncAudibilityLocked()
}

// handleTrackEndLocked reacts to the sink finishing a track: repeat-one
// restarts it from zero, anything else advances through the queue.
func (e *Engine) handleTrackEndLocked() {
	if e.repeat == RepeatOne {
		prevState := e.stateLocked()
		e.position = 0
		e.sink.Seek(0)
		ev := SeekChange{At: e.now()}
		e.broadcast(func(s *Subscription) {
			s.sendSeek(ev)
		})
		e.honorIntentLocked()
		e.emitStateIfChangedLocked(prevState)
		e.syncAudibilityLocked()
		return
	}
	e.nextLocked()
}
