package sink

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

const progressInterval = 500 * time.Millisecond

// Beep renders marketplace audio streams through the system speaker.
// Sources are fetched over HTTP and decoded as MP3 (the only encoding the
// streaming endpoints serve).
type Beep struct {
	mu         sync.Mutex
	state      State
	readiness  Readiness
	ctrl       *beep.Ctrl
	volume     *effects.Volume
	streamer   beep.StreamSeekCloser
	format     beep.Format
	duration   time.Duration
	level      float64
	muted      bool
	generation int
	// drained is set once the chain plays to the end: the speaker mixer
	// removes drained streamers, so the chain must be re-submitted before
	// it can sound again.
	drained bool

	httpClient *http.Client
	events     chan Event
	done       chan struct{}
	closed     bool
}

var speakerInitialized bool

// NewBeep creates a beep-backed sink. The progress ticker runs until Close.
func NewBeep() *Beep {
	b := &Beep{
		state:      Stopped,
		level:      1.0,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		events:     make(chan Event, 32),
		done:       make(chan struct{}),
	}
	go b.progressLoop()
	return b
}

// Load fetches and decodes the source in the background. A newer Load
// supersedes any in-flight one; stale results are dropped.
func (b *Beep) Load(url string) {
	b.mu.Lock()
	b.stopLocked()
	b.generation++
	gen := b.generation
	b.state = Paused
	b.readiness = ReadyNone
	b.duration = 0
	b.mu.Unlock()

	go b.load(gen, url)
}

func (b *Beep) load(gen int, url string) {
	streamer, format, err := b.fetch(url)
	if err != nil {
		b.emitFor(gen, Event{Kind: EventError, Err: err})
		return
	}

	b.mu.Lock()
	if gen != b.generation || b.closed {
		b.mu.Unlock()
		streamer.Close()
		return
	}

	if !speakerInitialized {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			b.mu.Unlock()
			streamer.Close()
			b.emitFor(gen, Event{Kind: EventError, Err: fmt.Errorf("speaker init: %w", err)})
			return
		}
		speakerInitialized = true
	}

	b.streamer = streamer
	b.format = format
	b.duration = format.SampleRate.D(streamer.Len())
	b.ctrl = &beep.Ctrl{Streamer: streamer, Paused: true}
	b.volume = &effects.Volume{
		Streamer: b.ctrl,
		Base:     2,
		Volume:   levelToVolume(b.level),
		Silent:   b.muted || b.level <= 0,
	}
	b.readiness = ReadyEnough
	b.drained = false
	duration := b.duration
	volume := b.volume
	b.mu.Unlock()

	b.submit(gen, volume)

	b.emitFor(gen, Event{Kind: EventMetadata, Duration: duration})
	b.emitFor(gen, Event{Kind: EventReady})
}

// submit places the chain in the speaker mixer. The callback runs on the
// speaker goroutine, so the bookkeeping moves to its own goroutine to
// stay clear of the speaker lock.
func (b *Beep) submit(gen int, volume *effects.Volume) {
	speaker.Clear()
	speaker.Play(beep.Seq(volume, beep.Callback(func() {
		go b.finish(gen)
	})))
}

// finish runs after the chain drains. The mixer has already dropped the
// chain, so the sink is no longer playing whatever ctrl says.
func (b *Beep) finish(gen int) {
	b.mu.Lock()
	if gen != b.generation || b.closed {
		b.mu.Unlock()
		return
	}
	b.state = Paused
	b.drained = true
	b.mu.Unlock()
	b.emitFor(gen, Event{Kind: EventEnded})
}

// fetch downloads the full stream before decoding. Marketplace streams are
// single tracks, small enough to buffer, and the decoder needs a seekable
// source.
func (b *Beep) fetch(url string) (beep.StreamSeekCloser, beep.Format, error) {
	resp, err := b.httpClient.Get(url)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("fetch stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, beep.Format{}, fmt.Errorf("fetch stream: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("read stream: %w", err)
	}

	streamer, format, err := mp3.Decode(&bufferCloser{Reader: bytes.NewReader(data)})
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode stream: %w", err)
	}
	return streamer, format, nil
}

func (b *Beep) Play() error {
	b.mu.Lock()
	if b.ctrl == nil || b.readiness < ReadyEnough {
		b.mu.Unlock()
		return fmt.Errorf("play: no source ready")
	}
	if b.state == Playing {
		b.mu.Unlock()
		return nil
	}
	resubmit := b.drained
	b.drained = false
	b.state = Playing
	gen := b.generation
	ctrl := b.ctrl
	volume := b.volume
	b.mu.Unlock()

	speaker.Lock()
	ctrl.Paused = false
	speaker.Unlock()
	if resubmit {
		b.submit(gen, volume)
	}
	return nil
}

func (b *Beep) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Playing || b.ctrl == nil {
		return
	}
	speaker.Lock()
	b.ctrl.Paused = true
	speaker.Unlock()
	b.state = Paused
}

// Seek jumps to an absolute position. The stream is silenced around the
// jump to avoid audible artifacts from stale buffer contents.
func (b *Beep) Seek(pos time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return
	}

	target := b.format.SampleRate.N(pos)
	target = max(target, 0)
	if limit := b.streamer.Len() - 1; target > limit {
		target = limit
	}

	speaker.Lock()
	if b.volume != nil {
		b.volume.Silent = true
	}
	_ = b.streamer.Seek(target)
	if b.volume != nil {
		b.volume.Silent = b.muted || b.level <= 0
	}
	speaker.Unlock()
}

// SetVolume sets the level (0.0-1.0) on beep's logarithmic scale.
func (b *Beep) SetVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = level
	if b.volume == nil {
		return
	}
	speaker.Lock()
	b.volume.Volume = levelToVolume(level)
	b.volume.Silent = b.muted || level <= 0
	speaker.Unlock()
}

func (b *Beep) SetMuted(muted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted = muted
	if b.volume == nil {
		return
	}
	speaker.Lock()
	b.volume.Silent = muted || b.level <= 0
	speaker.Unlock()
}

func (b *Beep) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Beep) ReadyState() Readiness {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readiness
}

func (b *Beep) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := b.format.SampleRate.D(b.streamer.Position())
	speaker.Unlock()
	return pos
}

func (b *Beep) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duration
}

func (b *Beep) Events() <-chan Event { return b.events }

func (b *Beep) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.stopLocked()
	close(b.done)
	close(b.events)
	b.mu.Unlock()

	if speakerInitialized {
		speaker.Clear()
	}
	return nil
}

// stopLocked releases the current stream. Caller holds b.mu.
func (b *Beep) stopLocked() {
	if b.streamer != nil {
		if speakerInitialized {
			speaker.Clear()
		}
		b.streamer.Close()
		b.streamer = nil
	}
	b.ctrl = nil
	b.volume = nil
	b.state = Stopped
	b.readiness = ReadyNone
}

func (b *Beep) progressLoop() {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.mu.Lock()
			playing := b.state == Playing && b.streamer != nil
			gen := b.generation
			b.mu.Unlock()
			if !playing {
				continue
			}
			b.emitFor(gen, Event{Kind: EventProgress, Position: b.Position()})
		}
	}
}

// emitFor sends an event unless a newer load superseded gen or the sink
// closed. The mutex is held across the send so Close cannot close the
// channel underneath it. Non-blocking: a slow consumer drops progress
// ticks, not state.
func (b *Beep) emitFor(gen int, e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation || b.closed {
		return
	}
	select {
	case b.events <- e:
	default:
	}
}

// levelToVolume converts a 0.0-1.0 level to beep's Volume value.
// beep uses a logarithmic scale with base 2: 0 means unchanged,
// -1 half volume, -2 quarter. 0 maps to effectively silent.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}

// bufferCloser adapts an in-memory buffer to the decoder's ReadCloser
// while keeping it seekable.
type bufferCloser struct {
	*bytes.Reader
}

func (bufferCloser) Close() error { return nil }

// Verify Beep implements Sink at compile time.
var _ Sink = (*Beep)(nil)
