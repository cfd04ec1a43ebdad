package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"

	"github.com/lmeynard/chorus/internal/api"
	"github.com/lmeynard/chorus/internal/catalog"
	"github.com/lmeynard/chorus/internal/config"
	"github.com/lmeynard/chorus/internal/listening"
	"github.com/lmeynard/chorus/internal/mpris"
	"github.com/lmeynard/chorus/internal/playback"
	"github.com/lmeynard/chorus/internal/sink"
	"github.com/lmeynard/chorus/internal/state"
	"github.com/lmeynard/chorus/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chorus: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stateMgr, err := state.Open()
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer stateMgr.Close()
	stateMgr.SetDebounce(time.Duration(cfg.Player.SaveDebounceMS) * time.Millisecond)

	apiClient := api.New(cfg.API.BaseURL, cfg.API.Token)

	audioSink := sink.NewBeep()
	defer audioSink.Close()

	engine := playback.New(audioSink)

	// Independent observers: segment logging and persistence each get
	// their own subscription.
	tracker := listening.NewTracker(apiClient,
		time.Duration(cfg.Player.SegmentMinMS)*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		listening.NewObserver(tracker, engine.Subscribe()).Run()
	}()
	go func() {
		defer wg.Done()
		state.NewObserver(stateMgr, engine, engine.Subscribe()).Run()
	}()

	engine.Run()

	// Restore the previous session, or apply configured defaults.
	if snap, err := stateMgr.Load(); err == nil && snap != nil {
		engine.Restore(*snap)
	} else {
		engine.SetVolume(cfg.Player.Volume)
	}

	// Ad-hoc playback: stream URLs on the command line replace the
	// restored queue.
	if tracks := tracksFromArgs(os.Args[1:]); len(tracks) > 0 {
		engine.SetQueueAndPlay(tracks, 0)
	}

	if cfg.MPRISEnabled() {
		if adapter, err := mpris.New(engine); err == nil {
			defer adapter.Close()
		} else {
			logrus.WithError(err).Warn("mpris unavailable")
		}
	}

	program := tea.NewProgram(ui.New(engine, engine.Subscribe()), tea.WithAltScreen())
	_, runErr := program.Run()

	// Closing the engine signals every subscription: the persistence
	// observer makes its final synchronous write and the segment
	// observer closes any open interval.
	engine.Close()
	wg.Wait()

	return runErr
}

func tracksFromArgs(args []string) []catalog.Track {
	var tracks []catalog.Track
	for i, url := range args {
		tracks = append(tracks, catalog.Track{
			ID:       int64(i + 1),
			Title:    filepath.Base(url),
			AudioURL: url,
		})
	}
	return tracks
}

// setupLogging sends logs to a file so they do not corrupt the TUI.
func setupLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	path, err := xdg.StateFile(filepath.Join("chorus", "chorus.log"))
	if err != nil {
		logrus.SetOutput(os.Stderr)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logrus.SetOutput(os.Stderr)
		return
	}
	logrus.SetOutput(f)
}
