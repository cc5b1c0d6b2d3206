package engine

import (
	"time"

	"github.com/soundbed/backdrop/internal/core"
)

// rangeAction is the decision for one playback-position observation.
type rangeAction int

const (
	// actionNone lets playback continue.
	actionNone rangeAction = iota
	// actionLoop seeks back to the loop origin and keeps playing.
	actionLoop
	// actionStop pauses playback and resets the position.
	actionStop
)

// rangeDecision is the outcome of evaluating a position tick or a natural
// end against a descriptor's range configuration.
type rangeDecision struct {
	action rangeAction
	seekTo time.Duration
}

// evaluateTick reinterprets a raw position update against the descriptor's
// start/end/loop configuration. Native media cannot honor partial-range
// loops or mid-track stop points, so looping is performed manually by
// seek+replay. midLoop suppresses re-triggering while a position-initiated
// loop is still in flight.
//
// Malformed ranges (End <= Start, LoopEnd <= LoopStart) are treated as
// absent rather than guessed at.
func evaluateTick(d *core.Descriptor, pos time.Duration, midLoop bool) rangeDecision {
	if !d.HasEnd() || pos < d.End {
		return rangeDecision{action: actionNone}
	}
	if midLoop {
		// A loop seek is already pending; don't double-fire.
		return rangeDecision{action: actionNone}
	}
	if d.Looping() {
		return rangeDecision{action: actionLoop, seekTo: d.LoopOrigin()}
	}
	return rangeDecision{action: actionStop, seekTo: d.Start}
}

// evaluateNaturalEnd decides what to do when the media reaches its own end
// without hitting an explicit End boundary first. The position handler
// always wins: when it already initiated a loop for this boundary (midLoop
// set), the natural-end handler must not loop again.
func evaluateNaturalEnd(d *core.Descriptor, midLoop bool) rangeDecision {
	if midLoop {
		return rangeDecision{action: actionNone}
	}
	if d.Looping() {
		return rangeDecision{action: actionLoop, seekTo: d.LoopOrigin()}
	}
	return rangeDecision{action: actionStop, seekTo: d.Start}
}
