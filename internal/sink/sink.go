// Package sink abstracts the audio rendering backend behind a narrow
// interface so the playback engine never depends on a concrete output
// device. A backend loads one URL at a time and reports readiness,
// progress and completion through its event channel.
package sink

import "time"

// State represents the backend's actual transport state, which may lag
// behind the engine's intent while a load or play request is in flight.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// Readiness describes how much of the loaded source is available.
type Readiness int

const (
	// ReadyNone means no source is loaded or loading has not produced data.
	ReadyNone Readiness = iota
	// ReadyMetadata means the duration is known but playback cannot start.
	ReadyMetadata
	// ReadyEnough means enough data is buffered to start playback.
	ReadyEnough
)

// EventKind identifies an asynchronous backend signal.
type EventKind int

const (
	// EventReady fires when enough data is buffered to honor a play intent.
	EventReady EventKind = iota
	// EventMetadata fires once the source duration is known.
	EventMetadata
	// EventProgress fires periodically with the elapsed position.
	EventProgress
	// EventEnded fires when the loaded source plays to completion.
	EventEnded
	// EventError fires on decode or transport failure.
	EventError
)

// Event is one asynchronous signal from the backend.
type Event struct {
	Kind     EventKind
	Duration time.Duration // EventMetadata
	Position time.Duration // EventProgress
	Err      error         // EventError
}

// Sink is the rendering backend contract. Implementations must tolerate
// redundant calls: pausing a paused sink or re-issuing play on a playing
// sink is a no-op.
type Sink interface {
	// Load replaces the current source. Any previous playback stops.
	Load(url string)
	// Play starts or resumes rendering. An error means the platform
	// refused to start (the caller must not assume playback began).
	Play() error
	Pause()
	Seek(pos time.Duration)
	SetVolume(level float64) // 0.0-1.0
	SetMuted(muted bool)

	State() State
	ReadyState() Readiness
	Position() time.Duration
	Duration() time.Duration

	// Events returns the backend's signal channel. It is closed by Close.
	Events() <-chan Event

	Close() error
}
