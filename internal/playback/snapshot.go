package playback

import (
	"time"

	"github.com/lmeynard/chorus/internal/catalog"
)

// Snapshot captures everything that survives a restart. Playing intent
// deliberately does not: playback never auto-resumes across a reload.
type Snapshot struct {
	Tracks   []catalog.Track
	Index    int
	Position time.Duration
	Volume   float64
	Muted    bool
	Repeat   RepeatMode
	Shuffle  bool
}

// Snapshot returns the current persistable state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Tracks:   e.queue.Tracks(),
		Index:    e.queue.current,
		Position: e.position,
		Volume:   e.volume,
		Muted:    e.muted,
		Repeat:   e.repeat,
		Shuffle:  e.queue.shuffle,
	}
}

// Restore rebuilds engine state from a persisted snapshot. The current
// track's source is loaded paused; the persisted position is applied once
// the sink reports metadata. Invalid fields fall back to defaults rather
// than failing.
func (e *Engine) Restore(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queue.tracks = make([]catalog.Track, len(snap.Tracks))
	copy(e.queue.tracks, snap.Tracks)

	idx := snap.Index
	if idx < 0 || idx >= len(e.queue.tracks) {
		idx = -1
	}
	e.queue.current = idx

	vol := snap.Volume
	if vol < 0 || vol > 1 {
		vol = defaultVolume
	}
	e.volume = vol
	e.muted = snap.Muted
	e.repeat = snap.Repeat
	e.playing = false

	e.queue.shuffle = false
	e.queue.order = nil
	e.queue.cursor = 0
	if snap.Shuffle {
		e.queue.SetShuffle(true) // refused below the minimum length
	}

	e.sink.SetVolume(e.volume)
	e.sink.SetMuted(e.muted)

	if t := e.queue.Current(); t != nil {
		e.loadedURL = t.AudioURL
		e.duration = t.Duration
		pos := snap.Position
		if pos < 0 {
			pos = 0
		}
		e.position = pos
		e.restorePos = pos
		e.sink.Load(t.AudioURL)
	} else {
		e.position = 0
		e.duration = 0
		e.loadedURL = ""
	}

	e.emitQueueLocked()
	e.emitModeLocked()
	e.emitVolumeLocked()
	if t, i := e.currentLocked(); t != nil {
		e.broadcast(func(s *Subscription) {
			s.sendTrack(TrackChange{Previous: nil, Current: t, PreviousIndex: -1, Index: i})
		})
	}
}
