package playback

import (
	"math/rand"

	"github.com/lmeynard/chorus/internal/catalog"
)

// minShuffleLen is the smallest queue a shuffle order is meaningful for.
// Below it shuffle refuses to activate and deactivates itself.
const minShuffleLen = 3

// playQueue owns the ordered track list, the current index, and the
// shuffle permutation with its cursor. It is only touched while the
// engine's mutex is held.
type playQueue struct {
	tracks  []catalog.Track
	current int // -1 if nothing current
	shuffle bool
	order   []int // permutation of indices, valid while shuffle is on
	cursor  int   // position of current inside order
	rng     *rand.Rand
}

func newPlayQueue(rng *rand.Rand) *playQueue {
	return &playQueue{current: -1, rng: rng}
}

func (q *playQueue) Len() int      { return len(q.tracks) }
func (q *playQueue) IsEmpty() bool { return len(q.tracks) == 0 }

// Current returns the current track, or nil if none.
func (q *playQueue) Current() *catalog.Track {
	if q.current < 0 || q.current >= len(q.tracks) {
		return nil
	}
	return &q.tracks[q.current]
}

// Tracks returns a copy of the queue contents.
func (q *playQueue) Tracks() []catalog.Track {
	result := make([]catalog.Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// Contains reports whether a track with the given id is already queued.
func (q *playQueue) Contains(id int64) bool {
	for i := range q.tracks {
		if q.tracks[i].ID == id {
			return true
		}
	}
	return false
}

// Replace swaps in a new track list and clamps startIndex into range
// (out of range falls back to 0).
func (q *playQueue) Replace(tracks []catalog.Track, startIndex int) {
	q.tracks = make([]catalog.Track, len(tracks))
	copy(q.tracks, tracks)
	if len(q.tracks) == 0 {
		q.current = -1
		return
	}
	if startIndex < 0 || startIndex >= len(q.tracks) {
		startIndex = 0
	}
	q.current = startIndex
}

// Append adds a track to the end and returns its index.
func (q *playQueue) Append(t catalog.Track) int {
	q.tracks = append(q.tracks, t)
	return len(q.tracks) - 1
}

// RemoveAt removes the track at index. Returns false if out of bounds.
// Index adjustment for the current track is the caller's business: the
// engine decides whether the removal forces a track change.
func (q *playQueue) RemoveAt(index int) bool {
	if index < 0 || index >= len(q.tracks) {
		return false
	}
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)
	return true
}

// Clear drops all tracks and resets the index and shuffle order.
func (q *playQueue) Clear() {
	q.tracks = nil
	q.current = -1
	q.shuffle = false
	q.order = nil
	q.cursor = 0
}

// Reshuffle builds a fresh Fisher-Yates permutation. The current track's
// index is re-homed to position 0 and the cursor reset, so regenerating
// never interrupts what is playing.
func (q *playQueue) Reshuffle() {
	n := len(q.tracks)
	q.order = q.rng.Perm(n)
	if q.current >= 0 {
		for i, idx := range q.order {
			if idx == q.current {
				q.order[0], q.order[i] = q.order[i], q.order[0]
				break
			}
		}
	}
	q.cursor = 0
}

// EnforceShuffleInvariant deactivates shuffle if the queue shrank below
// the minimum, or regenerates the order otherwise. Returns true if the
// shuffle flag flipped off.
func (q *playQueue) EnforceShuffleInvariant() bool {
	if !q.shuffle {
		return false
	}
	if len(q.tracks) < minShuffleLen {
		q.shuffle = false
		q.order = nil
		q.cursor = 0
		return true
	}
	q.Reshuffle()
	return false
}

// SetShuffle toggles shuffle on or off. Activation is refused (returns
// false) while the queue is shorter than minShuffleLen.
func (q *playQueue) SetShuffle(enabled bool) bool {
	if enabled {
		if len(q.tracks) < minShuffleLen {
			return false
		}
		q.shuffle = true
		q.Reshuffle()
		return true
	}
	q.shuffle = false
	q.order = nil
	q.cursor = 0
	return true
}

// AdvanceShuffled moves the cursor forward and returns the new queue
// index. Running off the end regenerates the permutation re-homed to the
// current track, producing an endless shuffle.
func (q *playQueue) AdvanceShuffled() int {
	if q.cursor+1 < len(q.order) {
		q.cursor++
	} else {
		q.Reshuffle()
		if len(q.order) > 1 {
			q.cursor = 1
		}
	}
	q.current = q.order[q.cursor]
	return q.current
}

// RewindShuffled moves the cursor back, wrapping to the last position.
func (q *playQueue) RewindShuffled() int {
	if q.cursor > 0 {
		q.cursor--
	} else {
		q.cursor = len(q.order) - 1
	}
	q.current = q.order[q.cursor]
	return q.current
}
