package core

import "time"

// State is the lifecycle state of a single audio instance.
type State int

const (
	StateLoading State = iota
	StatePlaying
	StateFading
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	case StateFading:
		return "Fading"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Active reports whether the instance still owns a live media handle.
// Fading is a sub-state of playing, so it counts as active.
func (s State) Active() bool {
	return s == StateLoading || s == StatePlaying || s == StateFading
}

// Status is a point-in-time snapshot of the engine's background slot.
type Status struct {
	Track     *Descriptor   `json:"track"`
	IsPlaying bool          `json:"is_playing"`
	Position  time.Duration `json:"position"`
	Duration  time.Duration `json:"duration"`
	Rate      float64       `json:"rate"`
	Volume    float64       `json:"volume"`
	Effects   int           `json:"effects"`
}

// HasTrack returns true if a background track is installed.
func (s *Status) HasTrack() bool {
	return s != nil && s.Track != nil
}

// ProgressPercent returns playback progress as a percentage (0-100).
func (s *Status) ProgressPercent() float64 {
	if s == nil || s.Duration == 0 {
		return 0
	}
	return float64(s.Position) / float64(s.Duration) * 100
}
