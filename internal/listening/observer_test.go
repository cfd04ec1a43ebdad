package listening

import (
	"testing"
	"time"

	"github.com/lmeynard/chorus/internal/catalog"
	"github.com/lmeynard/chorus/internal/playback"
	"github.com/lmeynard/chorus/internal/sink"
)

func observerTracks() []catalog.Track {
	return []catalog.Track{
		{ID: 1, AudioURL: "https://cdn.example/audio/a.mp3"},
		{ID: 2, AudioURL: "https://cdn.example/audio/b.mp3"},
		{ID: 3, AudioURL: "https://cdn.example/audio/c.mp3"},
	}
}

func TestObserverReportsPauseBoundedSegment(t *testing.T) {
	r := newChanReporter()
	tr := NewTracker(r, time.Millisecond)
	e := playback.New(sink.NewMock())
	defer e.Close()
	go NewObserver(tr, e.Subscribe()).Run()

	e.SetQueueAndPlay(observerTracks(), 0)
	time.Sleep(20 * time.Millisecond)
	e.Pause()

	seg := r.recv(t)
	if seg.TrackID != 1 {
		t.Errorf("TrackID = %d, want 1", seg.TrackID)
	}
	if seg.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", seg.Duration)
	}
}

func TestObserverSplitsOnTrackChange(t *testing.T) {
	r := newChanReporter()
	tr := NewTracker(r, time.Millisecond)
	e := playback.New(sink.NewMock())
	defer e.Close()
	go NewObserver(tr, e.Subscribe()).Run()

	e.SetQueueAndPlay(observerTracks(), 0)
	time.Sleep(20 * time.Millisecond)
	e.Next()

	seg := r.recv(t)
	if seg.TrackID != 1 {
		t.Errorf("closed segment TrackID = %d, want 1", seg.TrackID)
	}

	time.Sleep(20 * time.Millisecond)
	e.Pause()
	seg = r.recv(t)
	if seg.TrackID != 2 {
		t.Errorf("second segment TrackID = %d, want 2", seg.TrackID)
	}
}

func TestObserverClosesOnEngineShutdown(t *testing.T) {
	r := newChanReporter()
	tr := NewTracker(r, time.Millisecond)
	e := playback.New(sink.NewMock())
	sub := e.Subscribe()
	done := make(chan struct{})
	go func() {
		NewObserver(tr, sub).Run()
		close(done)
	}()

	e.SetQueueAndPlay(observerTracks(), 0)
	time.Sleep(20 * time.Millisecond)
	e.Close()

	seg := r.recv(t)
	if seg.TrackID != 1 {
		t.Errorf("final segment TrackID = %d, want 1", seg.TrackID)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer did not stop after engine close")
	}
}
