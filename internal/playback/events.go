package playback

import (
	"time"

	"github.com/lmeynard/chorus/internal/catalog"
)

// StateChange is emitted when the transport state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when the current track changes, whether or not
// playback is active. Observers handle all track-related side effects
// (persistence, segment accounting, MPRIS metadata) in response.
type TrackChange struct {
	Previous      *catalog.Track
	Current       *catalog.Track
	PreviousIndex int
	Index         int
}

// QueueChange is emitted when the queue contents change.
type QueueChange struct {
	Tracks []catalog.Track
	Index  int
}

// ModeChange is emitted when repeat or shuffle mode changes.
type ModeChange struct {
	RepeatMode RepeatMode
	Shuffle    bool
}

// VolumeChange is emitted when the volume level or mute flag changes.
type VolumeChange struct {
	Level float64
	Muted bool
}

// SeekChange is emitted on a position discontinuity: an explicit seek, a
// restart-from-zero, or a repeat-one loop. Continuous progress is reported
// separately so observers can tell linear playback from jumps. At is the
// engine clock at the discontinuity, so observers splitting intervals on
// it stay aligned with the audibility timestamps.
type SeekChange struct {
	Position time.Duration
	At       time.Time
}

// Progress is emitted as the sink advances through the track.
type Progress struct {
	Position time.Duration
}

// AudibilityChange is emitted when effectively-audible playback starts or
// stops. Audible means: playing intent, unmuted, volume above zero, and a
// current track. TrackID identifies the track the transition applies to.
type AudibilityChange struct {
	Audible bool
	TrackID int64
	At      time.Time
}

// ErrorEvent is emitted when a sink or playback operation fails.
type ErrorEvent struct {
	Operation string // e.g. "play", "load"
	URL       string // source URL if applicable
	Err       error
}
