// Package catalog defines the track value objects handed to the player by
// the marketplace UI (library, playlists, release pages).
package catalog

import "time"

// Track describes one playable catalog entry. Identity is by ID.
type Track struct {
	ID       int64         `json:"id"`
	Title    string        `json:"title"`
	AudioURL string        `json:"audio_url"`
	Artist   string        `json:"artist,omitempty"`
	Release  string        `json:"release,omitempty"`
	CoverURL string        `json:"cover_url,omitempty"`
	Duration time.Duration `json:"duration,omitempty"` // zero when unknown
}

// Literal fallbacks shown by every consumer when no track is loaded or a
// field is missing.
const (
	FallbackTitle  = "No track selected"
	FallbackArtist = "Unknown Artist"
)

// DisplayTitle returns the track title, or the fallback for a nil track.
func DisplayTitle(t *Track) string {
	if t == nil || t.Title == "" {
		return FallbackTitle
	}
	return t.Title
}

// DisplayArtist returns the artist name, or the fallback when absent.
func DisplayArtist(t *Track) string {
	if t == nil || t.Artist == "" {
		return FallbackArtist
	}
	return t.Artist
}
