package playback

import "time"

const eventBufferSize = 16

// Subscription provides event channels for one observer. Channels are
// buffered and sends never block; a slow observer loses events rather than
// stalling the engine.
type Subscription struct {
	StateChanged    <-chan StateChange
	TrackChanged    <-chan TrackChange
	QueueChanged    <-chan QueueChange
	ModeChanged     <-chan ModeChange
	VolumeChanged   <-chan VolumeChange
	SeekPerformed   <-chan SeekChange
	Progressed      <-chan Progress
	Audibility      <-chan AudibilityChange
	Error           <-chan ErrorEvent
	Done            <-chan struct{}

	// Internal write channels
	stateCh    chan StateChange
	trackCh    chan TrackChange
	queueCh    chan QueueChange
	modeCh     chan ModeChange
	volumeCh   chan VolumeChange
	seekCh     chan SeekChange
	progressCh chan Progress
	audibleCh  chan AudibilityChange
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:    make(chan StateChange, eventBufferSize),
		trackCh:    make(chan TrackChange, eventBufferSize),
		queueCh:    make(chan QueueChange, eventBufferSize),
		modeCh:     make(chan ModeChange, eventBufferSize),
		volumeCh:   make(chan VolumeChange, eventBufferSize),
		seekCh:     make(chan SeekChange, eventBufferSize),
		progressCh: make(chan Progress, eventBufferSize),
		audibleCh:  make(chan AudibilityChange, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.TrackChanged = s.trackCh
	s.QueueChanged = s.queueCh
	s.ModeChanged = s.modeCh
	s.VolumeChanged = s.volumeCh
	s.SeekPerformed = s.seekCh
	s.Progressed = s.progressCh
	s.Audibility = s.audibleCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals the observer to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
		// Drop if buffer full
	}
}

func (s *Subscription) sendTrack(e TrackChange) {
	select {
	case s.trackCh <- e:
	default:
	}
}

func (s *Subscription) sendQueue(e QueueChange) {
	select {
	case s.queueCh <- e:
	default:
	}
}

func (s *Subscription) sendMode(e ModeChange) {
	select {
	case s.modeCh <- e:
	default:
	}
}

func (s *Subscription) sendVolume(e VolumeChange) {
	select {
	case s.volumeCh <- e:
	default:
	}
}

func (s *Subscription) sendSeek(e SeekChange) {
	select {
	case s.seekCh <- e:
	default:
	}
}

func (s *Subscription) sendProgress(pos time.Duration) {
	select {
	case s.progressCh <- Progress{Position: pos}:
	default:
	}
}

func (s *Subscription) sendAudibility(e AudibilityChange) {
	select {
	case s.audibleCh <- e:
	default:
	}
}

func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}
