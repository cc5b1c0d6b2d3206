package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/soundbed/backdrop/internal/core"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.backdroprc, $XDG_CONFIG_HOME/backdrop/config.toml,
// ~/.config/backdrop/config.toml
func Load() (*Config, error) {
	cfg := &Config{}

	// Try loading from file
	path := findConfigFile()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.source = path
	}

	// Apply defaults, then environment variable overrides
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.source = path
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".backdroprc"),
	}

	// XDG_CONFIG_HOME or default
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "backdrop", "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
// A .env file in the working directory is honored but never overrides
// variables already present in the environment.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("BACKDROP_VOLUME"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Playback.Volume = f
		}
	}
	if v := os.Getenv("BACKDROP_LIBRARY_ROOT"); v != "" {
		cfg.Library.Root = v
	}
	if v := os.Getenv("BACKDROP_LIBRARY_BASE_URL"); v != "" {
		cfg.Library.BaseURL = v
	}
	if v := os.Getenv("BACKDROP_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("BACKDROP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BACKDROP_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

// Track returns the named track preset, or nil if none matches.
func (c *Config) Track(name string) *TrackConfig {
	for i := range c.Tracks {
		if c.Tracks[i].Name == name {
			return &c.Tracks[i]
		}
	}
	return nil
}

// Descriptor converts a track preset into an engine descriptor,
// applying the playback-section fade defaults where the preset is silent.
func (c *Config) Descriptor(t *TrackConfig) core.Descriptor {
	d := core.Descriptor{
		Path:             t.Path,
		Name:             t.Name,
		Volume:           t.Volume,
		Loop:             t.Loop,
		Source:           "config",
		FadeIn:           time.Duration(t.FadeInMS) * time.Millisecond,
		FadeOut:          time.Duration(t.FadeOutMS) * time.Millisecond,
		Start:            secondsToDuration(t.StartSec),
		End:              secondsToDuration(t.EndSec),
		LoopStart:        secondsToDuration(t.LoopStartSec),
		LoopEnd:          secondsToDuration(t.LoopEndSec),
		ApplyRangeToLoop: t.ApplyRangeToLoop,
		Rate:             t.Rate,
	}
	if t.FadeInMS == 0 {
		d.FadeIn = time.Duration(c.Playback.FadeInMS) * time.Millisecond
	}
	if t.FadeOutMS == 0 {
		d.FadeOut = time.Duration(c.Playback.FadeOutMS) * time.Millisecond
	}
	return d
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
