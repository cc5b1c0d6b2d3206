package watch

import (
	"fmt"
	"strings"
)

// Formatter formats events for line-oriented output.
type Formatter struct {
	showTimestamp bool
}

// NewFormatter creates a formatter.
func NewFormatter(showTimestamp bool) *Formatter {
	return &Formatter{showTimestamp: showTimestamp}
}

// Format formats an event as a single line.
func (f *Formatter) Format(e Event) string {
	var parts []string

	if f.showTimestamp {
		parts = append(parts, e.Timestamp.Format("15:04:05"))
	}

	parts = append(parts, f.describe(e))
	return strings.Join(parts, " ")
}

func (f *Formatter) describe(e Event) string {
	switch e.Type {
	case EventTrackChange:
		if e.Current.HasTrack() {
			return fmt.Sprintf("Now playing: %s", e.Current.Track.DisplayName())
		}
		return "Track changed"

	case EventTrackEnd:
		if e.Previous.HasTrack() {
			return fmt.Sprintf("Finished: %s", e.Previous.Track.DisplayName())
		}
		return "Track ended"

	case EventPause:
		return "Paused"

	case EventResume:
		return "Resumed"

	case EventVolumeChange:
		return fmt.Sprintf("Volume: %.0f%%", e.Current.Volume*100)

	case EventRateChange:
		return fmt.Sprintf("Rate: %.2fx", e.Current.Rate)

	case EventEffectChange:
		return fmt.Sprintf("Effects: %d", e.Current.Effects)

	default:
		return "Unknown event"
	}
}

// TypeName returns the wire name of an event type.
func TypeName(t EventType) string {
	switch t {
	case EventTrackChange:
		return "track_change"
	case EventTrackEnd:
		return "track_end"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventVolumeChange:
		return "volume_change"
	case EventRateChange:
		return "rate_change"
	case EventEffectChange:
		return "effect_change"
	default:
		return "unknown"
	}
}
