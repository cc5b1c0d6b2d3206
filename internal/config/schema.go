package config

// Config is the root configuration structure.
type Config struct {
	Playback PlaybackConfig `toml:"playback"`
	Library  LibraryConfig  `toml:"library"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Tracks   []TrackConfig  `toml:"track"`
	Rules    []RuleConfig   `toml:"rule"`

	source string // file the config was loaded from, if any
}

// Source returns the path of the file the config was loaded from, or ""
// when running on defaults and environment overrides alone.
func (c *Config) Source() string {
	return c.source
}

// PlaybackConfig holds default playback settings.
type PlaybackConfig struct {
	Volume    float64 `toml:"volume"`      // global default volume, 0.0-1.0
	FadeInMS  int     `toml:"fade_in_ms"`  // default fade-in for tracks that don't set one
	FadeOutMS int     `toml:"fade_out_ms"` // default fade-out
}

// LibraryConfig holds track resolution settings.
type LibraryConfig struct {
	Root    string `toml:"root"`     // directory that local track paths resolve against
	BaseURL string `toml:"base_url"` // fallback URL prefix when a local read fails
}

// ServerConfig holds remote-control server settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// TrackConfig is a named track preset.
type TrackConfig struct {
	Name             string  `toml:"name"`
	Path             string  `toml:"path"`
	Volume           float64 `toml:"volume"`
	Loop             *bool   `toml:"loop"`
	FadeInMS         int     `toml:"fade_in_ms"`
	FadeOutMS        int     `toml:"fade_out_ms"`
	StartSec         float64 `toml:"start"`
	EndSec           float64 `toml:"end"`
	LoopStartSec     float64 `toml:"loop_start"`
	LoopEndSec       float64 `toml:"loop_end"`
	ApplyRangeToLoop bool    `toml:"apply_range_to_loop"`
	Rate             float64 `toml:"rate"`
}

// RuleConfig maps a context pattern to a track preset or path.
// Patterns use path.Match syntax and are evaluated in order.
type RuleConfig struct {
	Pattern string `toml:"pattern"`
	Track   string `toml:"track"`
}
