package catalog

import "testing"

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		name  string
		track *Track
		want  string
	}{
		{"nil track", nil, FallbackTitle},
		{"empty title", &Track{}, FallbackTitle},
		{"with title", &Track{Title: "Night Drive"}, "Night Drive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayTitle(tt.track); got != tt.want {
				t.Errorf("DisplayTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplayArtist(t *testing.T) {
	tests := []struct {
		name  string
		track *Track
		want  string
	}{
		{"nil track", nil, FallbackArtist},
		{"empty artist", &Track{}, FallbackArtist},
		{"with artist", &Track{Artist: "The Examples"}, "The Examples"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayArtist(tt.track); got != tt.want {
				t.Errorf("DisplayArtist() = %q, want %q", got, tt.want)
			}
		})
	}
}
