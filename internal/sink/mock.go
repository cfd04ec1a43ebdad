package sink

import (
	"sync"
	"time"
)

// Mock is a scriptable test double for Sink.
type Mock struct {
	mu        sync.Mutex
	state     State
	readiness Readiness
	position  time.Duration
	duration  time.Duration
	volume    float64
	muted     bool
	playErr   error

	loadCalls   []string
	playCalls   int
	pauseCalls  int
	seekCalls   []time.Duration
	volumeCalls []float64

	events chan Event
	closed bool
}

// NewMock creates a new mock sink.
func NewMock() *Mock {
	return &Mock{
		volume: 1.0,
		events: make(chan Event, 32),
	}
}

func (m *Mock) Load(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls = append(m.loadCalls, url)
	m.state = Paused
	m.readiness = ReadyNone
	m.position = 0
	m.duration = 0
}

func (m *Mock) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls++
	if m.playErr != nil {
		return m.playErr
	}
	m.state = Playing
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	if m.state == Playing {
		m.state = Paused
	}
}

func (m *Mock) Seek(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, pos)
	m.position = pos
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumeCalls = append(m.volumeCalls, level)
	m.volume = level
}

func (m *Mock) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
}

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mock) ReadyState() Readiness {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readiness
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) Events() <-chan Event { return m.events }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	return nil
}

// Test helpers

// SetPlayError makes subsequent Play calls fail, modeling a platform
// autoplay rejection.
func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

func (m *Mock) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Mock) SetReadyState(r Readiness) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readiness = r
}

func (m *Mock) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
}

func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

func (m *Mock) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *Mock) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// EmitMetadata marks the duration known and sends the metadata event.
func (m *Mock) EmitMetadata(d time.Duration) {
	m.mu.Lock()
	m.duration = d
	if m.readiness < ReadyMetadata {
		m.readiness = ReadyMetadata
	}
	m.mu.Unlock()
	m.emit(Event{Kind: EventMetadata, Duration: d})
}

// EmitReady marks the sink buffered and sends the ready event.
func (m *Mock) EmitReady() {
	m.mu.Lock()
	m.readiness = ReadyEnough
	m.mu.Unlock()
	m.emit(Event{Kind: EventReady})
}

func (m *Mock) EmitProgress(pos time.Duration) {
	m.mu.Lock()
	m.position = pos
	m.mu.Unlock()
	m.emit(Event{Kind: EventProgress, Position: pos})
}

func (m *Mock) EmitEnded() {
	m.mu.Lock()
	m.state = Stopped
	m.mu.Unlock()
	m.emit(Event{Kind: EventEnded})
}

func (m *Mock) EmitError(err error) {
	m.emit(Event{Kind: EventError, Err: err})
}

func (m *Mock) emit(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.events <- e:
	default:
	}
}

// Verify Mock implements Sink at compile time.
var _ Sink = (*Mock)(nil)
