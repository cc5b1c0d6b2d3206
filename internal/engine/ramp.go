package engine

import (
	"math"
	"sync"
	"time"
)

// rampInterval is the fade sampling period, roughly 60 Hz for perceptual
// smoothness.
const rampInterval = 16 * time.Millisecond

// ramp is one timed volume interpolation. At most one ramp runs per
// instance; starting a new one must cancel the previous first.
type ramp struct {
	done     chan struct{}
	cancel   chan struct{}
	cancelOn sync.Once
}

// startRamp interpolates from -> to over d, delivering eased, rounded
// values to set. The final delivery is exactly the clamped target, so no
// rounding drift survives the fade. A non-positive duration applies the
// target immediately.
func startRamp(set func(float64), from, to float64, d time.Duration) *ramp {
	r := &ramp{
		done:   make(chan struct{}),
		cancel: make(chan struct{}),
	}

	if d <= 0 {
		set(clamp01(to))
		close(r.done)
		return r
	}

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(rampInterval)
		defer ticker.Stop()
		start := time.Now()

		for {
			select {
			case <-r.cancel:
				return
			case <-ticker.C:
				p := math.Min(float64(time.Since(start))/float64(d), 1)
				if p >= 1 {
					set(clamp01(to))
					return
				}
				set(round3(from + (to-from)*easeInOutQuad(p)))
			}
		}
	}()

	return r
}

// Done is closed when the ramp reaches its target or is canceled.
func (r *ramp) Done() <-chan struct{} {
	return r.done
}

// Cancel stops the ramp without touching the volume again.
func (r *ramp) Cancel() {
	r.cancelOn.Do(func() { close(r.cancel) })
}

// easeInOutQuad is the quadratic ease-in-out shaping curve.
func easeInOutQuad(p float64) float64 {
	if p < 0.5 {
		return 2 * p * p
	}
	q := 1 - p
	return 1 - 2*q*q
}

// round3 rounds to 3 decimal places; finer steps are imperceptible and
// accumulate floating-point noise.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
