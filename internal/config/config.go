package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Marketplace API settings
	API APIConfig `koanf:"api"`

	// Player behavior settings
	Player PlayerConfig `koanf:"player"`

	// MPRIS media-key integration (Linux only)
	MPRIS MPRISConfig `koanf:"mpris"`
}

// APIConfig holds the marketplace backend connection settings.
type APIConfig struct {
	BaseURL string `koanf:"base_url"` // e.g. "https://api.chorus.example"
	Token   string `koanf:"token"`    // user bearer token; empty = signed out
}

// PlayerConfig holds playback and persistence tuning.
type PlayerConfig struct {
	Volume         float64 `koanf:"volume"`           // initial level 0.0-1.0 (default: 0.75)
	SegmentMinMS   int     `koanf:"segment_min_ms"`   // minimum reportable listening segment (default: 2000)
	SaveDebounceMS int     `koanf:"save_debounce_ms"` // position write debounce (default: 1000)
}

// MPRISConfig holds desktop integration settings.
type MPRISConfig struct {
	Enabled *bool `koanf:"enabled"` // default: true
}

func Load() (*Config, error) {
	return loadPaths(getConfigPaths())
}

func loadPaths(paths []string) (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Normalize API URL (remove trailing slash)
	cfg.API.BaseURL = strings.TrimSuffix(cfg.API.BaseURL, "/")

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.chorus.example"
	}
	if cfg.Player.Volume <= 0 || cfg.Player.Volume > 1 {
		cfg.Player.Volume = 0.75
	}
	if cfg.Player.SegmentMinMS <= 0 {
		cfg.Player.SegmentMinMS = 2000
	}
	if cfg.Player.SaveDebounceMS <= 0 {
		cfg.Player.SaveDebounceMS = 1000
	}
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/chorus/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "chorus", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

// IsAuthenticated returns true if a user token is configured.
func (c *Config) IsAuthenticated() bool {
	return c.API.Token != ""
}

// MPRISEnabled returns the MPRIS toggle with its default applied.
func (c *Config) MPRISEnabled() bool {
	if c.MPRIS.Enabled == nil {
		return true
	}
	return *c.MPRIS.Enabled
}
