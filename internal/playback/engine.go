// Package playback implements the player engine: the queue and transport
// state container and the driver logic keeping one audio sink consistent
// with it. The engine is the single writer of its state; callers invoke
// operations, observers subscribe to change events.
package playback

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lmeynard/chorus/internal/catalog"
	"github.com/lmeynard/chorus/internal/sink"
)

const (
	defaultVolume = 0.75
	// restartThreshold: Previous restarts the current track instead of
	// moving back once this much has elapsed.
	restartThreshold = 3 * time.Second
)

// Engine owns the play queue and transport state and drives one sink.
type Engine struct {
	mu    sync.Mutex
	sink  sink.Sink
	queue *playQueue

	playing    bool // intent, decoupled from the sink's actual state
	position   time.Duration
	duration   time.Duration
	volume     float64
	muted      bool
	repeat     RepeatMode
	loadedURL  string
	seeking    bool          // a seek gesture is in progress
	restorePos time.Duration // persisted position to apply on next metadata

	lastAudible  bool
	audibleTrack int64
	now          func() time.Time

	subs       []*Subscription
	subsClosed bool
	subsMu     sync.RWMutex

	log    *logrus.Entry
	done   chan struct{}
	closed bool
}

// New creates an engine driving the given sink. The sink's volume is
// aligned with the engine's defaults immediately.
func New(s sink.Sink) *Engine {
	e := &Engine{
		sink:   s,
		queue:  newPlayQueue(rand.New(rand.NewSource(time.Now().UnixNano()))),
		volume: defaultVolume,
		now:    time.Now,
		log:    logrus.WithField("component", "playback"),
		done:   make(chan struct{}),
	}
	s.SetVolume(e.volume)
	s.SetMuted(false)
	return e
}

// Run starts pumping sink events into the engine. Call once.
func (e *Engine) Run() {
	go func() {
		for {
			select {
			case ev, ok := <-e.sink.Events():
				if !ok {
					return
				}
				e.handleSinkEvent(ev)
			case <-e.done:
				return
			}
		}
	}()
}

// SetQueueAndPlay atomically replaces the queue and starts playback at
// startIndex (clamped; out of range falls back to 0). An empty track list
// tears the player down.
func (e *Engine) SetQueueAndPlay(tracks []catalog.Track, startIndex int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(tracks) == 0 {
		e.clearLocked()
		return
	}

	prevState := e.stateLocked()
	prevTrack, prevIdx := e.currentLocked()

	e.queue.Replace(tracks, startIndex)
	if e.queue.EnforceShuffleInvariant() {
		e.emitModeLocked()
	}
	e.playing = true
	e.startCurrentLocked()

	e.emitQueueLocked()
	e.emitTrackLocked(prevTrack, prevIdx)
	e.emitStateIfChangedLocked(prevState)
	e.syncAudibilityLocked()
}

// PlayTrack plays exactly this one track now: shuffle is deactivated and
// the queue replaced with a single entry.
func (e *Engine) PlayTrack(t catalog.Track) {
	e.mu.Lock()
	if e.queue.shuffle {
		e.queue.SetShuffle(false)
		e.emitModeLocked()
	}
	e.mu.Unlock()

	e.SetQueueAndPlay([]catalog.Track{t}, 0)
}

// AddToQueue appends a track unless one with the same id is already
// queued. If nothing is current, playback starts on the appended track.
func (e *Engine) AddToQueue(t catalog.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.queue.Contains(t.ID) {
		return
	}

	prevState := e.stateLocked()
	prevTrack, prevIdx := e.currentLocked()

	idx := e.queue.Append(t)

	// Become current before the shuffle order regenerates, so the new
	// permutation is re-homed to the track that starts playing.
	startPlayback := e.queue.Current() == nil
	if startPlayback {
		e.queue.current = idx
	}
	if e.queue.EnforceShuffleInvariant() {
		e.emitModeLocked()
	}
	if startPlayback {
		e.playing = true
		e.startCurrentLocked()
		e.emitTrackLocked(prevTrack, prevIdx)
	}

	e.emitQueueLocked()
	e.emitStateIfChangedLocked(prevState)
	e.syncAudibilityLocked()
}

// RemoveFromQueue removes the track at index. Out-of-range indices are
// silently ignored. Removing the current track picks a replacement at the
// same position (wrapping to 0 from the last slot); removing the last
// remaining track fully resets the player.
func (e *Engine) RemoveFromQueue(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wasCurrent := index == e.queue.current
	prevState := e.stateLocked()
	prevTrack, prevIdx := e.currentLocked()

	if !e.queue.RemoveAt(index) {
		return
	}
	if e.queue.IsEmpty() {
		e.clearLocked()
		return
	}

	if wasCurrent {
		next := index
		if next >= e.queue.Len() {
			next = 0
		}
		e.queue.current = next
		// Replacement loads with the current intent; a paused player
		// stays paused with the new track current.
		e.startCurrentLocked()
		e.emitTrackLocked(prevTrack, prevIdx)
	} else if index < e.queue.current {
		e.queue.current--
	}

	if e.queue.EnforceShuffleInvariant() {
		e.emitModeLocked()
	}

	e.emitQueueLocked()
	e.emitStateIfChangedLocked(prevState)
	e.syncAudibilityLocked()
}

// Next advances to the next track, respecting shuffle and repeat modes.
func (e *Engine) Next() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextLocked()
}

func (e *Engine) nextLocked() {
	if e.queue.Current() == nil {
		return
	}

	prevState := e.stateLocked()
	prevTrack, prevIdx := e.currentLocked()

	if e.queue.shuffle {
		e.queue.AdvanceShuffled()
		e.startCurrentLocked()
	} else {
		switch {
		case e.queue.current+1 < e.queue.Len():
			e.queue.current++
			e.startCurrentLocked()
		case e.repeat == RepeatAll:
			e.queue.current = 0
			e.startCurrentLocked()
		default:
			// End of queue: stop where we are, snap to the end.
			e.playing = false
			e.position = e.duration
			e.honorIntentLocked()
			e.emitStateIfChangedLocked(prevState)
			e.syncAudibilityLocked()
			return
		}
	}

	e.emitTrackLocked(prevTrack, prevIdx)
	e.emitStateIfChangedLocked(prevState)
	e.syncAudibilityLocked()
}

// Previous restarts the current track if more than three seconds have
// elapsed, otherwise steps back (wrapping only under repeat-all).
func (e *Engine) Previous() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.queue.Current() == nil {
		return
	}
	if e.position > restartThreshold {
		e.restartCurrentLocked()
		return
	}

	prevState := e.stateLocked()
	prevTrack, prevIdx := e.currentLocked()

	if e.queue.shuffle {
		e.queue.RewindShuffled()
		e.startCurrentLocked()
	} else {
		switch {
		case e.queue.current > 0:
			e.queue.current--
			e.startCurrentLocked()
		case e.repeat == RepeatAll:
			e.queue.current = e.queue.Len() - 1
			e.startCurrentLocked()
		default:
			// Already at the first track: restart it in place.
			e.restartCurrentLocked()
			return
		}
	}

	e.emitTrackLocked(prevTrack, prevIdx)
	e.emitStateIfChangedLocked(prevState)
	e.syncAudibilityLocked()
}

// PlayIndex jumps directly to a queue position, deactivating shuffle.
// Out-of-range indices are silently ignored.
func (e *Engine) PlayIndex(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= e.queue.Len() {
		return
	}

	prevState := e.stateLocked()
	prevTrack, prevIdx := e.currentLocked()

	if e.queue.shuffle {
		e.queue.SetShuffle(false)
		e.emitModeLocked()
	}
	e.queue.current = index
	e.playing = true
	e.startCurrentLocked()

	e.emitTrackLocked(prevTrack, prevIdx)
	e.emitStateIfChangedLocked(prevState)
	e.syncAudibilityLocked()
}

// Toggle flips between playing and paused intent.
func (e *Engine) Toggle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing {
		e.pauseLocked()
	} else {
		e.resumeLocked()
	}
}

// Pause sets paused intent.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseLocked()
}

// Resume sets playing intent. With no current track but a non-empty
// queue, playback resumes at the remembered position in the queue.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumeLocked()
}

func (e *Engine) pauseLocked() {
	if !e.playing {
		return
	}
	prevState := e.stateLocked()
	e.playing = false
	e.honorIntentLocked()
	e.emitStateIfChangedLocked(prevState)
	e.syncAudibilityLocked()
}

func (e *Engine) resumeLocked() {
	if e.playing {
		return
	}
	prevState := e.stateLocked()
	prevTrack, prevIdx := e.currentLocked()

	if e.queue.Current() == nil {
		if e.queue.IsEmpty() {
			return
		}
		if e.queue.shuffle && len(e.queue.order) > 0 {
			e.queue.current = e.queue.order[e.queue.cursor]
		} else {
			e.queue.current = 0
		}
		e.emitTrackLocked(prevTrack, prevIdx)
	}

	e.playing = true
	e.startCurrentLocked()
	e.emitStateIfChangedLocked(prevState)
	e.syncAudibilityLocked()
}

// ToggleShuffle flips shuffle mode and returns the resulting flag.
// Activation is refused while the queue holds fewer than three tracks.
func (e *Engine) ToggleShuffle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.queue.SetShuffle(!e.queue.shuffle) {
		return false
	}
	e.emitModeLocked()
	return e.queue.shuffle
}

// CycleRepeatMode steps off → all → one → off and returns the new mode.
func (e *Engine) CycleRepeatMode() RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repeat = e.repeat.Cycle()
	e.emitModeLocked()
	return e.repeat
}

// SetVolume clamps the level into [0,1] and applies it to the sink.
func (e *Engine) SetVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = level
	e.sink.SetVolume(level)
	e.emitVolumeLocked()
	e.syncAudibilityLocked()
}

// SetMuted applies the mute flag without touching the stored level.
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setMutedLocked(muted)
}

// ToggleMute flips the mute flag.
func (e *Engine) ToggleMute() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setMutedLocked(!e.muted)
}

func (e *Engine) setMutedLocked(muted bool) {
	if e.muted == muted {
		return
	}
	e.muted = muted
	e.sink.SetMuted(muted)
	e.emitVolumeLocked()
	e.syncAudibilityLocked()
}

// Subscribe creates a new event subscription. After Close it returns a
// subscription whose Done is already closed, so a late observer exits
// instead of blocking forever.
func (e *Engine) Subscribe() *Subscription {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	sub := newSubscription()
	if e.subsClosed {
		sub.close()
		return sub
	}
	e.subs = append(e.subs, sub)
	return sub
}

// ClearQueue tears the player down: empty queue, no current track,
// paused, position zero.
func (e *Engine) ClearQueue() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

func (e *Engine) clearLocked() {
	prevState := e.stateLocked()
	prevTrack, prevIdx := e.currentLocked()

	e.queue.Clear()
	e.playing = false
	e.position = 0
	e.duration = 0
	e.loadedURL = ""
	e.restorePos = 0
	e.sink.Pause()

	e.emitQueueLocked()
	if prevTrack != nil {
		e.emitTrackLocked(prevTrack, prevIdx)
	}
	e.emitStateIfChangedLocked(prevState)
	e.syncAudibilityLocked()
}

// Close shuts the engine down, closing any open audibility interval and
// all subscriptions. The sink is owned by the composition root and is not
// closed here.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.playing = false
	e.syncAudibilityLocked()
	close(e.done)
	e.mu.Unlock()

	e.subsMu.Lock()
	for _, sub := range e.subs {
		sub.close()
	}
	e.subs = nil
	e.subsClosed = true
	e.subsMu.Unlock()

	return nil
}

// State queries

// State returns the derived transport state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// IsPlaying reports the playing intent.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// CurrentTrack returns a copy of the current track, or nil.
func (e *Engine) CurrentTrack() *catalog.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, _ := e.currentLocked()
	return t
}

// Position returns the transport clock.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// Duration returns the current track's duration (zero when unknown).
func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Volume returns the level in [0,1].
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Muted reports the mute flag.
func (e *Engine) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// Repeat returns the repeat mode.
func (e *Engine) Repeat() RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repeat
}

// Shuffle reports whether shuffle is active.
func (e *Engine) Shuffle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.shuffle
}

// QueueTracks returns a copy of the queue contents.
func (e *Engine) QueueTracks() []catalog.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Tracks()
}

// QueueIndex returns the current queue index (-1 if none).
func (e *Engine) QueueIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.current
}

// QueueLen returns the number of queued tracks.
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len()
}

// Internal helpers. All require e.mu held.

func (e *Engine) stateLocked() State {
	if e.queue.Current() == nil {
		return StateStopped
	}
	if e.playing {
		return StatePlaying
	}
	return StatePaused
}

func (e *Engine) currentLocked() (*catalog.Track, int) {
	t := e.queue.Current()
	if t == nil {
		return nil, -1
	}
	cp := *t
	return &cp, e.queue.current
}

func (e *Engine) audibleLocked() bool {
	return e.playing && !e.muted && e.volume > 0 && e.queue.Current() != nil
}

// syncAudibilityLocked emits audibility transitions, splitting intervals
// across track changes so a segment never spans two tracks.
func (e *Engine) syncAudibilityLocked() {
	audible := e.audibleLocked()
	var id int64
	if t := e.queue.Current(); t != nil {
		id = t.ID
	}
	if audible == e.lastAudible && (!audible || id == e.audibleTrack) {
		return
	}
	at := e.now()
	if e.lastAudible {
		e.broadcast(func(s *Subscription) {
			s.sendAudibility(AudibilityChange{Audible: false, TrackID: e.audibleTrack, At: at})
		})
	}
	if audible {
		e.broadcast(func(s *Subscription) {
			s.sendAudibility(AudibilityChange{Audible: true, TrackID: id, At: at})
		})
	}
	e.lastAudible = audible
	e.audibleTrack = id
}

func (e *Engine) broadcast(fn func(*Subscription)) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, s := range e.subs {
		fn(s)
	}
}

func (e *Engine) emitStateIfChangedLocked(prev State) {
	cur := e.stateLocked()
	if cur == prev {
		return
	}
	e.broadcast(func(s *Subscription) {
		s.sendState(StateChange{Previous: prev, Current: cur})
	})
}

func (e *Engine) emitTrackLocked(prev *catalog.Track, prevIdx int) {
	cur, idx := e.currentLocked()
	if prev == nil && cur == nil {
		return
	}
	if prev != nil && cur != nil && prev.ID == cur.ID && prevIdx == idx {
		return
	}
	e.broadcast(func(s *Subscription) {
		s.sendTrack(TrackChange{Previous: prev, Current: cur, PreviousIndex: prevIdx, Index: idx})
	})
}

func (e *Engine) emitQueueLocked() {
	tracks := e.queue.Tracks()
	idx := e.queue.current
	e.broadcast(func(s *Subscription) {
		s.sendQueue(QueueChange{Tracks: tracks, Index: idx})
	})
}

func (e *Engine) emitModeLocked() {
	mode := ModeChange{RepeatMode: e.repeat, Shuffle: e.queue.shuffle}
	e.broadcast(func(s *Subscription) {
		s.sendMode(mode)
	})
}

func (e *Engine) emitVolumeLocked() {
	v := VolumeChange{Level: e.volume, Muted: e.muted}
	e.broadcast(func(s *Subscription) {
		s.sendVolume(v)
	})
}
