package state

import (
	"time"

	"github.com/lmeynard/chorus/internal/catalog"
	"github.com/lmeynard/chorus/internal/playback"
)

// persistedTrack is the storage shape of one queued track.
type persistedTrack struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	AudioURL string  `json:"audio_url"`
	Artist   string  `json:"artist,omitempty"`
	Release  string  `json:"release,omitempty"`
	CoverURL string  `json:"cover_url,omitempty"`
	Duration float64 `json:"duration,omitempty"` // seconds
}

// persistedState is the single JSON blob stored under the player state
// key. Playing intent is deliberately absent: playback never auto-resumes
// across a restart.
type persistedState struct {
	Track         *persistedTrack  `json:"track"`
	Queue         []persistedTrack `json:"queue"`
	QueueIndex    int              `json:"queueIndex"`
	CurrentTime   float64          `json:"currentTime"` // seconds
	Volume        float64          `json:"volume"`
	IsMuted       bool             `json:"isMuted"`
	RepeatMode    string           `json:"repeatMode"` // none | all | one
	ShuffleActive bool             `json:"shuffleActive"`
}

func toPersistedTrack(t catalog.Track) persistedTrack {
	return persistedTrack{
		ID:       t.ID,
		Title:    t.Title,
		AudioURL: t.AudioURL,
		Artist:   t.Artist,
		Release:  t.Release,
		CoverURL: t.CoverURL,
		Duration: t.Duration.Seconds(),
	}
}

func fromPersistedTrack(t persistedTrack) catalog.Track {
	return catalog.Track{
		ID:       t.ID,
		Title:    t.Title,
		AudioURL: t.AudioURL,
		Artist:   t.Artist,
		Release:  t.Release,
		CoverURL: t.CoverURL,
		Duration: time.Duration(t.Duration * float64(time.Second)),
	}
}

func toPersisted(snap playback.Snapshot) persistedState {
	queue := make([]persistedTrack, len(snap.Tracks))
	for i, t := range snap.Tracks {
		queue[i] = toPersistedTrack(t)
	}

	var current *persistedTrack
	if snap.Index >= 0 && snap.Index < len(queue) {
		cp := queue[snap.Index]
		current = &cp
	}

	return persistedState{
		Track:         current,
		Queue:         queue,
		QueueIndex:    snap.Index,
		CurrentTime:   snap.Position.Seconds(),
		Volume:        snap.Volume,
		IsMuted:       snap.Muted,
		RepeatMode:    repeatModeName(snap.Repeat),
		ShuffleActive: snap.Shuffle,
	}
}

func fromPersisted(ps persistedState) playback.Snapshot {
	tracks := make([]catalog.Track, len(ps.Queue))
	for i, t := range ps.Queue {
		tracks[i] = fromPersistedTrack(t)
	}
	return playback.Snapshot{
		Tracks:   tracks,
		Index:    ps.QueueIndex,
		Position: time.Duration(ps.CurrentTime * float64(time.Second)),
		Volume:   ps.Volume,
		Muted:    ps.IsMuted,
		Repeat:   repeatModeFromName(ps.RepeatMode),
		Shuffle:  ps.ShuffleActive,
	}
}

func repeatModeName(m playback.RepeatMode) string {
	switch m {
	case playback.RepeatAll:
		return "all"
	case playback.RepeatOne:
		return "one"
	default:
		return "none"
	}
}

func repeatModeFromName(name string) playback.RepeatMode {
	switch name {
	case "all":
		return playback.RepeatAll
	case "one":
		return playback.RepeatOne
	default:
		return playback.RepeatOff
	}
}
