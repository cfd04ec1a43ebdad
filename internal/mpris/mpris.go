//go:build linux

// Package mpris exposes the player engine over D-Bus so desktop media
// keys and applets can drive it.
package mpris

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/lmeynard/chorus/internal/playback"
)

// Adapter connects a playback engine to MPRIS over D-Bus.
type Adapter struct {
	engine *playback.Engine
	server *server.Server
}

// New creates and starts a new MPRIS adapter.
func New(engine *playback.Engine) (*Adapter, error) {
	a := &Adapter{engine: engine}

	a.server = server.NewServer("chorus", &rootAdapter{}, &playerAdapter{engine: engine})

	go func() {
		_ = a.server.Listen()
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error { return nil }

func (r *rootAdapter) Quit() error { return nil }

func (r *rootAdapter) CanQuit() (bool, error) { return false, nil }

func (r *rootAdapter) CanRaise() (bool, error) { return false, nil }

func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }

func (r *rootAdapter) Identity() (string, error) { return "Chorus", nil }

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"https", "http"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/mp3"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the
// optional loop/shuffle interfaces.
type playerAdapter struct {
	engine *playback.Engine
}

func (p *playerAdapter) Next() error {
	p.engine.Next()
	return nil
}

func (p *playerAdapter) Previous() error {
	p.engine.Previous()
	return nil
}

func (p *playerAdapter) Pause() error {
	p.engine.Pause()
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.engine.Toggle()
	return nil
}

func (p *playerAdapter) Stop() error {
	p.engine.Pause()
	return nil
}

func (p *playerAdapter) Play() error {
	p.engine.Resume()
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	pos := p.engine.Position() + time.Duration(offset)*time.Microsecond
	p.engine.SeekTo(pos)
	return nil
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	p.engine.SeekTo(time.Duration(position) * time.Microsecond)
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error { return nil }

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.engine.State() {
	case playback.StatePlaying:
		return types.PlaybackStatusPlaying, nil
	case playback.StatePaused:
		return types.PlaybackStatusPaused, nil
	case playback.StateStopped:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) SetRate(_ float64) error { return nil }

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	track := p.engine.CurrentTrack()
	if track == nil {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%d", track.ID)),
		Length:  types.Microseconds(p.engine.Duration().Microseconds()),
		Title:   track.Title,
		Artist:  []string{track.Artist},
		Album:   track.Release,
	}
	if track.CoverURL != "" {
		meta.ArtUrl = track.CoverURL
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.engine.Volume(), nil
}

func (p *playerAdapter) SetVolume(level float64) error {
	p.engine.SetVolume(level)
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.engine.Position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) MaximumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.engine.QueueLen() > 0, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.engine.QueueLen() > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.engine.QueueLen() > 0, nil
}

func (p *playerAdapter) CanPause() (bool, error) { return true, nil }

func (p *playerAdapter) CanSeek() (bool, error) { return true, nil }

func (p *playerAdapter) CanControl() (bool, error) { return true, nil }

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	switch p.engine.Repeat() {
	case playback.RepeatOne:
		return types.LoopStatusTrack, nil
	case playback.RepeatAll:
		return types.LoopStatusPlaylist, nil
	case playback.RepeatOff:
		return types.LoopStatusNone, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	want := playback.RepeatOff
	switch status {
	case types.LoopStatusTrack:
		want = playback.RepeatOne
	case types.LoopStatusPlaylist:
		want = playback.RepeatAll
	case types.LoopStatusNone:
		want = playback.RepeatOff
	}
	for p.engine.Repeat() != want {
		p.engine.CycleRepeatMode()
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.engine.Shuffle(), nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	if p.engine.Shuffle() != shuffle {
		p.engine.ToggleShuffle()
	}
	return nil
}
