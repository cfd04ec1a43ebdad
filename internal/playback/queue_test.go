package playback

import (
	"math/rand"
	"testing"

	"github.com/lmeynard/chorus/internal/catalog"
)

func testTracks(n int) []catalog.Track {
	tracks := make([]catalog.Track, n)
	for i := range tracks {
		tracks[i] = catalog.Track{
			ID:       int64(i + 1),
			Title:    "Track " + string(rune('A'+i)),
			AudioURL: "https://cdn.example/audio/" + string(rune('a'+i)) + ".mp3",
		}
	}
	return tracks
}

func newTestQueue() *playQueue {
	return newPlayQueue(rand.New(rand.NewSource(1)))
}

func TestQueueReplaceClampsStartIndex(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		startIndex int
		want       int
	}{
		{"in range", 3, 1, 1},
		{"negative", 3, -1, 0},
		{"past end", 3, 7, 0},
		{"first", 3, 0, 0},
		{"last", 3, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newTestQueue()
			q.Replace(testTracks(tt.count), tt.startIndex)
			if q.current != tt.want {
				t.Errorf("current = %d, want %d", q.current, tt.want)
			}
		})
	}
}

func TestQueueReplaceEmpty(t *testing.T) {
	q := newTestQueue()
	q.Replace(testTracks(3), 1)
	q.Replace(nil, 0)
	if q.current != -1 {
		t.Errorf("current = %d, want -1", q.current)
	}
	if q.Current() != nil {
		t.Error("Current() should be nil for an empty queue")
	}
}

func TestQueueContains(t *testing.T) {
	q := newTestQueue()
	q.Replace(testTracks(3), 0)
	if !q.Contains(2) {
		t.Error("Contains(2) = false, want true")
	}
	if q.Contains(99) {
		t.Error("Contains(99) = true, want false")
	}
}

func TestQueueRemoveAt(t *testing.T) {
	q := newTestQueue()
	q.Replace(testTracks(3), 0)

	if q.RemoveAt(5) {
		t.Error("RemoveAt(5) = true, want false")
	}
	if !q.RemoveAt(1) {
		t.Error("RemoveAt(1) = false, want true")
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
	if q.tracks[0].ID != 1 || q.tracks[1].ID != 3 {
		t.Errorf("remaining ids = %d, %d, want 1, 3", q.tracks[0].ID, q.tracks[1].ID)
	}
}

func TestQueueSetShuffleRefusedBelowMinimum(t *testing.T) {
	q := newTestQueue()
	q.Replace(testTracks(2), 0)

	if q.SetShuffle(true) {
		t.Error("SetShuffle(true) accepted with 2 tracks")
	}
	if q.shuffle {
		t.Error("shuffle flag set despite refusal")
	}
}

func TestQueueShuffleOrderStartsAtCurrent(t *testing.T) {
	q := newTestQueue()
	q.Replace(testTracks(5), 3)

	if !q.SetShuffle(true) {
		t.Fatal("SetShuffle(true) refused with 5 tracks")
	}
	if q.order[0] != 3 {
		t.Errorf("order[0] = %d, want current index 3", q.order[0])
	}
	if q.cursor != 0 {
		t.Errorf("cursor = %d, want 0", q.cursor)
	}

	seen := make(map[int]bool)
	for _, idx := range q.order {
		seen[idx] = true
	}
	if len(seen) != 5 {
		t.Errorf("order is not a permutation of 5 indices: %v", q.order)
	}
}

func TestQueueAdvanceShuffledVisitsEveryTrack(t *testing.T) {
	q := newTestQueue()
	q.Replace(testTracks(5), 0)
	q.SetShuffle(true)

	seen := map[int]bool{q.current: true}
	for i := 0; i < 4; i++ {
		seen[q.AdvanceShuffled()] = true
	}
	if len(seen) != 5 {
		t.Errorf("one pass visited %d distinct tracks, want 5", len(seen))
	}
}

func TestQueueAdvanceShuffledIsEndless(t *testing.T) {
	q := newTestQueue()
	q.Replace(testTracks(3), 0)
	q.SetShuffle(true)

	// Exhaust the first permutation, then keep going.
	last := q.order[len(q.order)-1]
	q.AdvanceShuffled()
	q.AdvanceShuffled()
	if q.current != last {
		t.Fatalf("current = %d, want last of permutation %d", q.current, last)
	}

	next := q.AdvanceShuffled()
	if next < 0 || next >= q.Len() {
		t.Errorf("advancing past the end returned index %d", next)
	}
	// The regenerated permutation is re-homed to the previous current, so
	// the overrun step never replays it.
	if q.order[0] != last {
		t.Errorf("regenerated order[0] = %d, want %d", q.order[0], last)
	}
	if q.cursor != 1 {
		t.Errorf("cursor = %d, want 1 after overrun", q.cursor)
	}
}

func TestQueueRewindShuffledWraps(t *testing.T) {
	q := newTestQueue()
	q.Replace(testTracks(4), 0)
	q.SetShuffle(true)

	got := q.RewindShuffled()
	if q.cursor != 3 {
		t.Errorf("cursor = %d, want 3 after wrap", q.cursor)
	}
	if got != q.order[3] {
		t.Errorf("current = %d, want %d", got, q.order[3])
	}
}

func TestQueueEnforceShuffleInvariant(t *testing.T) {
	q := newTestQueue()
	q.Replace(testTracks(3), 0)
	q.SetShuffle(true)

	// Still long enough: order regenerates, flag stays on.
	if q.EnforceShuffleInvariant() {
		t.Error("invariant reported shuffle off with 3 tracks")
	}
	if !q.shuffle {
		t.Error("shuffle deactivated with 3 tracks")
	}
	if q.order[0] != q.current {
		t.Errorf("regenerated order[0] = %d, want current %d", q.order[0], q.current)
	}

	// Shrink below the minimum: flag flips off.
	q.RemoveAt(2)
	if !q.EnforceShuffleInvariant() {
		t.Error("invariant did not report shuffle off with 2 tracks")
	}
	if q.shuffle {
		t.Error("shuffle still active with 2 tracks")
	}
	if q.order != nil {
		t.Error("order not cleared after deactivation")
	}
}

func TestQueueClear(t *testing.T) {
	q := newTestQueue()
	q.Replace(testTracks(4), 2)
	q.SetShuffle(true)
	q.Clear()

	if q.Len() != 0 || q.current != -1 || q.shuffle || q.order != nil {
		t.Errorf("Clear left state: len=%d current=%d shuffle=%v order=%v",
			q.Len(), q.current, q.shuffle, q.order)
	}
}

func TestRepeatModeCycle(t *testing.T) {
	mode := RepeatOff
	want := []RepeatMode{RepeatAll, RepeatOne, RepeatOff}
	for _, w := range want {
		mode = mode.Cycle()
		if mode != w {
			t.Errorf("Cycle() = %v, want %v", mode, w)
		}
	}
}
