package core

import "time"

// Kind distinguishes the exclusive background slot from additive effects.
type Kind string

const (
	KindBackground Kind = "background"
	KindEffect     Kind = "effect"
)

// Playback rate bounds. Requests outside this range are ignored, not
// clamped, so a caller's intent is never silently altered.
const (
	MinRate = 0.25
	MaxRate = 4.0
)

// RateValid reports whether r is an acceptable playback rate.
func RateValid(r float64) bool {
	return r >= MinRate && r <= MaxRate
}

// Descriptor is the caller-supplied, immutable specification of what to
// play and how. Path is the only required field.
type Descriptor struct {
	Path   string  `json:"path"`
	Name   string  `json:"name,omitempty"`
	Volume float64 `json:"volume,omitempty"` // 0.0-1.0; <= 0 means "use the engine default"
	Loop   *bool   `json:"loop,omitempty"`   // nil means true
	Kind   Kind    `json:"kind,omitempty"`
	Source string  `json:"source,omitempty"` // provenance tag, display only

	FadeIn  time.Duration `json:"fade_in,omitempty"`
	FadeOut time.Duration `json:"fade_out,omitempty"`

	// Playback range, in track time. Zero values mean "unset".
	Start time.Duration `json:"start,omitempty"`
	End   time.Duration `json:"end,omitempty"`

	// Loop points, honored only when ApplyRangeToLoop is set.
	LoopStart        time.Duration `json:"loop_start,omitempty"`
	LoopEnd          time.Duration `json:"loop_end,omitempty"`
	ApplyRangeToLoop bool          `json:"apply_range_to_loop,omitempty"`

	Rate float64 `json:"rate,omitempty"` // 0 means unchanged (1.0)
}

// Looping reports whether the track should loop. Looping is the default;
// only an explicit Loop=false disables it.
func (d *Descriptor) Looping() bool {
	return d.Loop == nil || *d.Loop
}

// DisplayName returns the name for UI/log purposes, falling back to the path.
func (d *Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Path
}

// HasEnd reports whether the descriptor carries a usable end boundary.
// A range with End <= Start is malformed and treated as absent.
func (d *Descriptor) HasEnd() bool {
	return d.End > 0 && d.End > d.Start
}

// HasLoopRange reports whether LoopStart/LoopEnd form a usable pair.
// LoopEnd is optional; when present it must lie beyond LoopStart.
func (d *Descriptor) HasLoopRange() bool {
	if d.LoopStart <= 0 && d.LoopEnd <= 0 {
		return false
	}
	if d.LoopEnd > 0 && d.LoopEnd <= d.LoopStart {
		return false
	}
	return true
}

// LoopOrigin returns the position a looping track seeks back to.
func (d *Descriptor) LoopOrigin() time.Duration {
	if !d.ApplyRangeToLoop {
		return 0
	}
	if d.HasLoopRange() && d.LoopStart > 0 {
		return d.LoopStart
	}
	if d.Start > 0 {
		return d.Start
	}
	return 0
}
