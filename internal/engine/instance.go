package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soundbed/backdrop/internal/core"
	bderrors "github.com/soundbed/backdrop/internal/errors"
	"github.com/soundbed/backdrop/internal/media"
)

// watchInterval is the position-tick cadence for range control.
const watchInterval = 50 * time.Millisecond

// Instance is one playable unit: a media handle, its descriptor, volume
// state, and the watch goroutine that applies range control to it.
type Instance struct {
	id     string
	desc   core.Descriptor
	handle media.Handle
	log    *zap.Logger

	mu         sync.Mutex
	state      core.State
	target     float64
	current    float64
	activeRamp *ramp
	midLoop    bool

	watchCancel context.CancelFunc
	watchDone   chan struct{}

	// onComplete fires exactly once, on natural non-looping completion.
	// Manual Stop never fires it; the caller already holds the reference.
	onComplete func(*Instance)
}

// newInstance wraps a freshly opened handle. The handle starts muted;
// volume only arrives through a fade (or an immediate snap, which is a
// zero-duration fade). Out-of-range descriptor rates are ignored.
func newInstance(h media.Handle, desc core.Descriptor, defaultVolume float64, log *zap.Logger) *Instance {
	target := desc.Volume
	if target <= 0 {
		target = defaultVolume
	}

	inst := &Instance{
		id:     uuid.NewString(),
		desc:   desc,
		handle: h,
		state:  core.StateLoading,
		target: clamp01(target),
	}
	inst.log = log.With(
		zap.String("instance", inst.id[:8]),
		zap.String("track", desc.DisplayName()),
		zap.String("kind", string(desc.Kind)),
	)

	h.SetVolume(0)
	if desc.Rate != 0 && core.RateValid(desc.Rate) {
		if err := h.SetRate(desc.Rate); err != nil {
			inst.log.Warn("set rate failed", zap.Error(err))
		}
	}
	return inst
}

// Start begins playback and spawns the watch goroutine. On failure the
// instance transitions straight to Stopped so the caller never installs a
// half-initialized instance.
func (i *Instance) Start(ctx context.Context) error {
	if i.desc.Start > 0 {
		if err := i.handle.SetPosition(i.desc.Start); err != nil {
			i.log.Warn("initial seek failed", zap.Error(err))
		}
	}

	if err := i.handle.Start(ctx); err != nil {
		i.mu.Lock()
		i.state = core.StateStopped
		i.mu.Unlock()
		return fmt.Errorf("%w: %v", bderrors.ErrPlaybackStart, err)
	}

	i.mu.Lock()
	i.state = core.StatePlaying
	wctx, cancel := context.WithCancel(context.Background())
	i.watchCancel = cancel
	i.watchDone = make(chan struct{})
	i.mu.Unlock()

	go i.watch(wctx)
	i.log.Debug("playback started", zap.Duration("duration", i.handle.Duration()))
	return nil
}

// watch reinterprets raw media events as domain loop/stop semantics. It is
// the only writer of the midLoop flag besides teardown.
func (i *Instance) watch(ctx context.Context) {
	defer close(i.watchDone)
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-i.handle.Done():
			if i.handleNaturalEnd(ctx) {
				return
			}
		case <-ticker.C:
			if i.handleTick(ctx) {
				return
			}
		}
	}
}

// handleTick processes one position observation. It returns true when the
// instance has terminated and the watch loop should exit.
func (i *Instance) handleTick(ctx context.Context) bool {
	i.mu.Lock()
	if i.state == core.StateStopped {
		i.mu.Unlock()
		return true
	}
	midLoop := i.midLoop
	i.mu.Unlock()

	pos := i.handle.Position()

	// A position-initiated loop is complete once the position lands back
	// below the end boundary; only then may the next loop trigger.
	if midLoop {
		if !i.desc.HasEnd() || pos < i.desc.End {
			i.mu.Lock()
			i.midLoop = false
			i.mu.Unlock()
		}
		return false
	}

	dec := evaluateTick(&i.desc, pos, midLoop)
	switch dec.action {
	case actionLoop:
		i.mu.Lock()
		i.midLoop = true
		i.mu.Unlock()
		if err := i.handle.SetPosition(dec.seekTo); err != nil {
			i.log.Warn("loop seek failed", zap.Error(err))
		}
	case actionStop:
		i.log.Debug("range end reached", zap.Duration("position", pos))
		i.finish(dec.seekTo)
		return true
	}
	return false
}

// handleNaturalEnd processes the media's own end-of-stream signal. The
// position handler always wins: a loop it initiated (midLoop) suppresses
// the loop here, leaving only a restart of the drained stream.
func (i *Instance) handleNaturalEnd(ctx context.Context) bool {
	i.mu.Lock()
	if i.state == core.StateStopped {
		i.mu.Unlock()
		return true
	}
	midLoop := i.midLoop
	i.midLoop = false
	i.mu.Unlock()

	dec := evaluateNaturalEnd(&i.desc, midLoop)
	switch dec.action {
	case actionLoop:
		if err := i.handle.SetPosition(dec.seekTo); err != nil {
			i.log.Warn("loop seek failed", zap.Error(err))
		}
		if err := i.handle.Start(ctx); err != nil {
			i.log.Warn("loop restart failed", zap.Error(err))
			i.finish(0)
			return true
		}
	case actionStop:
		i.log.Debug("track completed")
		i.finish(dec.seekTo)
		return true
	case actionNone:
		// The position handler looped this boundary. If the stream
		// drained before the seek landed, playback needs a nudge.
		if !i.handle.Playing() {
			if err := i.handle.Start(ctx); err != nil {
				i.log.Warn("loop restart failed", zap.Error(err))
				i.finish(0)
				return true
			}
		}
	}
	return false
}

// finish is the natural-completion teardown, run on the watch goroutine.
func (i *Instance) finish(resetTo time.Duration) {
	i.mu.Lock()
	if i.state == core.StateStopped {
		i.mu.Unlock()
		return
	}
	i.state = core.StateStopped
	if i.activeRamp != nil {
		i.activeRamp.Cancel()
		i.activeRamp = nil
	}
	onComplete := i.onComplete
	i.mu.Unlock()

	i.handle.Pause()
	// position reset is best effort on a drained stream
	_ = i.handle.SetPosition(resetTo)
	if err := i.handle.Close(); err != nil {
		i.log.Warn("handle close failed", zap.Error(err))
	}

	if onComplete != nil {
		onComplete(i)
	}
}

// Stop force-stops the instance: watch goroutine canceled, ramp canceled,
// media paused and rewound, handle closed. Safe to call more than once.
// onComplete does not fire.
func (i *Instance) Stop() {
	i.mu.Lock()
	if i.state == core.StateStopped {
		i.mu.Unlock()
		return
	}
	i.state = core.StateStopped
	if i.activeRamp != nil {
		i.activeRamp.Cancel()
		i.activeRamp = nil
	}
	cancel := i.watchCancel
	done := i.watchDone
	i.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	i.handle.Pause()
	_ = i.handle.SetPosition(0)
	if err := i.handle.Close(); err != nil {
		i.log.Warn("handle close failed", zap.Error(err))
	}
	i.log.Debug("stopped")
}

// FadeTo ramps the volume toward target over d, canceling any ramp already
// in flight. The returned channel closes when the fade completes or is
// superseded.
func (i *Instance) FadeTo(target float64, d time.Duration) <-chan struct{} {
	target = clamp01(target)

	i.mu.Lock()
	if i.state == core.StateStopped {
		i.mu.Unlock()
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	if i.activeRamp != nil {
		i.activeRamp.Cancel()
	}
	i.target = target

	// An immediate snap never goes through a ramp: startRamp would
	// deliver synchronously into setVolume, which takes i.mu.
	if d <= 0 {
		i.activeRamp = nil
		i.current = target
		if i.state == core.StateFading {
			i.state = core.StatePlaying
		}
		i.mu.Unlock()
		i.handle.SetVolume(target)
		closed := make(chan struct{})
		close(closed)
		return closed
	}

	from := i.current
	if i.state == core.StatePlaying {
		i.state = core.StateFading
	}
	r := startRamp(i.setVolume, from, target, d)
	i.activeRamp = r
	i.mu.Unlock()

	go func() {
		<-r.Done()
		i.mu.Lock()
		if i.activeRamp == r {
			i.activeRamp = nil
			if i.state == core.StateFading {
				i.state = core.StatePlaying
			}
		}
		i.mu.Unlock()
	}()

	return r.Done()
}

// setVolume is the ramp's delivery point; it keeps the cached volume and
// the handle in sync.
func (i *Instance) setVolume(v float64) {
	i.mu.Lock()
	i.current = v
	i.mu.Unlock()
	i.handle.SetVolume(v)
}

// SetTargetVolume updates the target; when no fade is active the volume is
// applied directly.
func (i *Instance) SetTargetVolume(v float64) {
	v = clamp01(v)
	i.mu.Lock()
	i.target = v
	rampActive := i.activeRamp != nil
	stopped := i.state == core.StateStopped
	i.mu.Unlock()

	if !rampActive && !stopped {
		i.setVolume(v)
	}
}

// State returns the current lifecycle state.
func (i *Instance) State() core.State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Descriptor returns the immutable descriptor this instance plays.
func (i *Instance) Descriptor() core.Descriptor {
	return i.desc
}

// TargetVolume returns the volume the instance is heading toward.
func (i *Instance) TargetVolume() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.target
}

// CurrentVolume returns the last applied volume.
func (i *Instance) CurrentVolume() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}
