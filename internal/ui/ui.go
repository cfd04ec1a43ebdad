// Package ui renders the transport bar and queue on top of the player
// engine. It is a pure consumer of the engine's action and getter
// surface; all playback decisions live in the engine.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/lmeynard/chorus/internal/catalog"
	"github.com/lmeynard/chorus/internal/playback"
)

const (
	tickInterval = 500 * time.Millisecond
	seekStep     = 5 * time.Second
	volumeStep   = 0.05
)

type tickMsg time.Time

type engineEventMsg struct{}

type engineErrorMsg struct {
	err error
}

// Model is the bubbletea model for the player view.
type Model struct {
	engine   *playback.Engine
	sub      *playback.Subscription
	bar      progress.Model
	width    int
	height   int
	lastErr  string
	quitting bool
}

// New creates the player view bound to an engine subscription.
func New(engine *playback.Engine, sub *playback.Subscription) Model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.ShowPercentage = false
	return Model{
		engine: engine,
		sub:    sub,
		bar:    bar,
		width:  80,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForEvent(m.sub))
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent wakes the view whenever the engine reports a change. The
// view re-reads engine state on render, so the event payloads themselves
// are not needed here except for errors.
func waitForEvent(sub *playback.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-sub.StateChanged:
			return engineEventMsg{}
		case <-sub.TrackChanged:
			return engineEventMsg{}
		case <-sub.QueueChanged:
			return engineEventMsg{}
		case <-sub.ModeChanged:
			return engineEventMsg{}
		case <-sub.VolumeChanged:
			return engineEventMsg{}
		case e := <-sub.Error:
			return engineErrorMsg{err: e.Err}
		case <-sub.Done:
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-22, 10)
		return m, nil

	case tickMsg:
		return m, tick()

	case engineEventMsg:
		m.lastErr = ""
		return m, waitForEvent(m.sub)

	case engineErrorMsg:
		m.lastErr = msg.err.Error()
		return m, waitForEvent(m.sub)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case " ":
		m.engine.Toggle()
	case "n":
		m.engine.Next()
	case "p":
		m.engine.Previous()
	case "right":
		m.engine.SeekTo(m.engine.Position() + seekStep)
	case "left":
		m.engine.SeekTo(m.engine.Position() - seekStep)
	case "+", "=":
		m.engine.SetVolume(m.engine.Volume() + volumeStep)
	case "-":
		m.engine.SetVolume(m.engine.Volume() - volumeStep)
	case "m":
		m.engine.ToggleMute()
	case "s":
		m.engine.ToggleShuffle()
	case "r":
		m.engine.CycleRepeatMode()
	case "x":
		m.engine.ClearQueue()
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	track := m.engine.CurrentTrack()
	title := catalog.DisplayTitle(track)
	artist := catalog.DisplayArtist(track)

	line := title + " — " + artist
	if track != nil && track.Release != "" {
		line += " (" + track.Release + ")"
	}
	b.WriteString(titleStyle.Render(truncate(line, m.width-2)))
	b.WriteString("\n")

	b.WriteString(m.transportLine())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")
	b.WriteString(m.queueView())

	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(truncate("error: "+m.lastErr, m.width-2)))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space play/pause · n/p track · ←/→ seek · +/- volume · m mute · s shuffle · r repeat · q quit"))

	return barStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) transportLine() string {
	pos := m.engine.Position()
	dur := m.engine.Duration()

	ratio := 0.0
	if dur > 0 {
		ratio = float64(pos) / float64(dur)
		if ratio > 1 {
			ratio = 1
		}
	}

	return fmt.Sprintf("%s %s %s",
		timeStyle.Render(formatDuration(pos)),
		m.bar.ViewAs(ratio),
		timeStyle.Render(formatDuration(dur)),
	)
}

func (m Model) statusLine() string {
	var parts []string

	switch m.engine.State() {
	case playback.StatePlaying:
		parts = append(parts, "▶ playing")
	case playback.StatePaused:
		parts = append(parts, "⏸ paused")
	default:
		parts = append(parts, "⏹ stopped")
	}

	if m.engine.Muted() {
		parts = append(parts, "muted")
	} else {
		parts = append(parts, fmt.Sprintf("vol %d%%", int(m.engine.Volume()*100)))
	}
	if m.engine.Shuffle() {
		parts = append(parts, "shuffle")
	}
	if mode := m.engine.Repeat(); mode != playback.RepeatOff {
		parts = append(parts, "repeat "+strings.ToLower(mode.String()))
	}

	return statusStyle.Render(strings.Join(parts, "  ·  "))
}

func (m Model) queueView() string {
	tracks := m.engine.QueueTracks()
	if len(tracks) == 0 {
		return dimStyle.Render("queue empty")
	}

	current := m.engine.QueueIndex()
	visible := max(m.height-9, 3)

	start := 0
	if current > visible/2 {
		start = current - visible/2
	}
	end := min(start+visible, len(tracks))

	var b strings.Builder
	for i := start; i < end; i++ {
		t := tracks[i]
		marker := "  "
		style := dimStyle
		if i == current {
			marker = "▸ "
			style = currentStyle
		}
		entry := fmt.Sprintf("%s%2d. %s — %s", marker, i+1,
			catalog.DisplayTitle(&t), catalog.DisplayArtist(&t))
		b.WriteString(style.Render(truncate(entry, m.width-4)))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
