package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lmeynard/chorus/internal/catalog"
	"github.com/lmeynard/chorus/internal/playback"
	"github.com/lmeynard/chorus/internal/sink"
)

func waitForSnapshot(t *testing.T, m *Manager, check func(*playback.Snapshot) bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap, err := m.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if check(snap) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	snap, _ := m.Load()
	t.Fatalf("persisted snapshot never matched, last = %+v", snap)
}

func TestObserverPersistsQueueChanges(t *testing.T) {
	m, err := OpenPath(filepath.Join(t.TempDir(), "chorus.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer m.Close()

	e := playback.New(sink.NewMock())
	go NewObserver(m, e, e.Subscribe()).Run()

	e.SetQueueAndPlay([]catalog.Track{
		{ID: 1, AudioURL: "https://cdn.example/a.mp3"},
		{ID: 2, AudioURL: "https://cdn.example/b.mp3"},
	}, 1)

	waitForSnapshot(t, m, func(snap *playback.Snapshot) bool {
		return snap != nil && len(snap.Tracks) == 2 && snap.Index == 1
	})

	e.Close()
}

func TestObserverPreservesPositionOnVolumeChange(t *testing.T) {
	m, err := OpenPath(filepath.Join(t.TempDir(), "chorus.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer m.Close()

	e := playback.New(sink.NewMock())
	e.Restore(playback.Snapshot{
		Tracks:   []catalog.Track{{ID: 1, AudioURL: "https://cdn.example/a.mp3"}},
		Index:    0,
		Position: 30 * time.Second,
		Volume:   0.5,
	})
	m.Save(e.Snapshot(), false)

	go NewObserver(m, e, e.Subscribe()).Run()
	e.SetVolume(0.8)

	waitForSnapshot(t, m, func(snap *playback.Snapshot) bool {
		return snap != nil && snap.Volume == 0.8 && snap.Position == 30*time.Second
	})

	e.Close()
}

func TestObserverFinalWriteOnShutdown(t *testing.T) {
	m, err := OpenPath(filepath.Join(t.TempDir(), "chorus.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer m.Close()

	e := playback.New(sink.NewMock())
	sub := e.Subscribe()
	done := make(chan struct{})
	go func() {
		NewObserver(m, e, sub).Run()
		close(done)
	}()

	e.SetQueueAndPlay([]catalog.Track{{ID: 7, AudioURL: "https://cdn.example/g.mp3"}}, 0)
	e.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer did not stop after engine close")
	}

	snap, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap == nil || len(snap.Tracks) != 1 || snap.Tracks[0].ID != 7 {
		t.Errorf("final snapshot = %+v, want single track 7", snap)
	}
}
