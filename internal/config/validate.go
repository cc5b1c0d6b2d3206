package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"

	"github.com/soundbed/backdrop/internal/core"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Playback.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("playback: %w", err))
	}
	if err := c.Library.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("library: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	for i := range c.Tracks {
		if err := c.Tracks[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("track %q: %w", c.Tracks[i].Name, err))
		}
	}
	for i := range c.Rules {
		if err := c.Rules[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("rule %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// Validate checks PlaybackConfig for errors.
func (c *PlaybackConfig) Validate() error {
	if c.Volume < 0 || c.Volume > 1 {
		return errors.New("volume must be between 0.0 and 1.0")
	}
	if c.FadeInMS < 0 || c.FadeOutMS < 0 {
		return errors.New("fade durations must be non-negative")
	}
	return nil
}

// Validate checks LibraryConfig for errors.
func (c *LibraryConfig) Validate() error {
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	return nil
}

// Validate checks TrackConfig for errors.
func (c *TrackConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.Path == "" {
		return errors.New("path is required")
	}
	if c.Volume < 0 || c.Volume > 1 {
		return errors.New("volume must be between 0.0 and 1.0")
	}
	if c.FadeInMS < 0 || c.FadeOutMS < 0 {
		return errors.New("fade durations must be non-negative")
	}
	if c.Rate != 0 && !core.RateValid(c.Rate) {
		return fmt.Errorf("rate must be between %v and %v", core.MinRate, core.MaxRate)
	}
	return nil
}

// Validate checks RuleConfig for errors.
func (c *RuleConfig) Validate() error {
	if c.Pattern == "" {
		return errors.New("pattern is required")
	}
	if _, err := path.Match(c.Pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	if c.Track == "" {
		return errors.New("track is required")
	}
	return nil
}
