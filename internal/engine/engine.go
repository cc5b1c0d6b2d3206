// Package engine is the audio-track lifecycle manager: one exclusive
// background track, an open pool of concurrent effects, eased fades, and
// manual range/loop control over native media playback.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soundbed/backdrop/internal/core"
	"github.com/soundbed/backdrop/internal/media"
	"github.com/soundbed/backdrop/internal/resolver"
)

// Engine is the owned-state facade over the background slot and the effect
// pool. Construct one per host; nothing here is ambient or static, so
// tests can run independent engines side by side.
type Engine struct {
	bg  *background
	fx  *effectPool
	log *zap.Logger

	volMu  sync.Mutex
	volume float64 // global default volume for new instances
}

// Options configures a new Engine.
type Options struct {
	Opener   media.Opener
	Resolver *resolver.Resolver
	Volume   float64 // initial global volume; <= 0 falls back to 0.8
	Logger   *zap.Logger
}

// New creates an engine.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	res := opts.Resolver
	if res == nil {
		res = resolver.New(nil, "", log)
	}
	volume := opts.Volume
	if volume <= 0 {
		volume = 0.8
	}

	e := &Engine{log: log, volume: clamp01(volume)}
	e.bg = &background{
		opener:        opts.Opener,
		res:           res,
		defaultVolume: e.Volume,
		log:           log.Named("background"),
	}
	e.fx = newEffectPool(opts.Opener, res, e.Volume, log.Named("effects"))
	e.bg.tracked = e.trackedHandles
	return e
}

// trackedHandles enumerates every handle the engine knows about, for the
// defensive sweep of leaked playback.
func (e *Engine) trackedHandles() []media.Handle {
	handles := e.fx.handles()
	if h := e.bg.liveHandle(); h != nil {
		handles = append(handles, h)
	}
	return handles
}

// PlayBackground replaces the background track. Concurrent calls serialize
// through the slot's operation lock; none are dropped.
func (e *Engine) PlayBackground(ctx context.Context, desc core.Descriptor) error {
	return e.bg.Play(ctx, desc)
}

// StopBackground stops the background track, fading out over fadeOut when
// positive. A non-positive fade falls back to the track's own configured
// fade-out; StopAll is the hard cut.
func (e *Engine) StopBackground(fadeOut time.Duration) {
	if fadeOut <= 0 {
		if inst := e.bg.get(); inst != nil {
			fadeOut = inst.Descriptor().FadeOut
		}
	}
	e.bg.Stop(fadeOut)
}

// PlayEffect starts an additive effect track and returns its pool key.
// Effects never interrupt the background slot or each other.
func (e *Engine) PlayEffect(ctx context.Context, desc core.Descriptor) (string, error) {
	return e.fx.Play(ctx, desc)
}

// StopEffect stops a single effect by the key PlayEffect returned.
func (e *Engine) StopEffect(key string) {
	e.fx.Stop(key)
}

// StopAllEffects stops and clears the whole effect pool.
func (e *Engine) StopAllEffects() {
	e.fx.StopAll()
}

// StopAll stops the background track and every effect.
func (e *Engine) StopAll() {
	e.bg.Stop(0)
	e.fx.StopAll()
}

// Pause suspends the background track, if any.
func (e *Engine) Pause() {
	if h := e.bg.liveHandle(); h != nil {
		h.Pause()
	}
}

// Resume restarts a paused background track. Resuming while already
// playing is a no-op; a failed resume is logged, not surfaced.
func (e *Engine) Resume(ctx context.Context) {
	h := e.bg.liveHandle()
	if h == nil || h.Playing() {
		return
	}
	if err := h.Start(ctx); err != nil {
		e.log.Warn("resume failed", zap.Error(err))
	}
}

// IsPlaying reports whether the background track is audible.
func (e *Engine) IsPlaying() bool {
	if h := e.bg.liveHandle(); h != nil {
		return h.Playing()
	}
	return false
}

// CurrentTrack returns the descriptor of the installed background track,
// or nil.
func (e *Engine) CurrentTrack() *core.Descriptor {
	if inst := e.bg.get(); inst != nil {
		d := inst.Descriptor()
		return &d
	}
	return nil
}

// Volume returns the global volume.
func (e *Engine) Volume() float64 {
	e.volMu.Lock()
	defer e.volMu.Unlock()
	return e.volume
}

// SetVolume updates the global volume and pushes it through to the live
// background instance immediately (directly when no fade is running,
// as the new fade target otherwise).
func (e *Engine) SetVolume(v float64) {
	v = clamp01(v)
	e.volMu.Lock()
	e.volume = v
	e.volMu.Unlock()

	if inst := e.bg.get(); inst != nil {
		inst.SetTargetVolume(v)
	}
}

// Position returns the background track's playback position.
func (e *Engine) Position() time.Duration {
	if h := e.bg.liveHandle(); h != nil {
		return h.Position()
	}
	return 0
}

// SetPosition seeks the background track.
func (e *Engine) SetPosition(d time.Duration) error {
	if h := e.bg.liveHandle(); h != nil {
		return h.SetPosition(d)
	}
	return nil
}

// Duration returns the background track's total duration.
func (e *Engine) Duration() time.Duration {
	if h := e.bg.liveHandle(); h != nil {
		return h.Duration()
	}
	return 0
}

// Rate returns the background track's playback rate.
func (e *Engine) Rate() float64 {
	if h := e.bg.liveHandle(); h != nil {
		return h.Rate()
	}
	return 1.0
}

// SetRate updates the background playback rate. Rates outside
// [core.MinRate, core.MaxRate] are ignored, not clamped.
func (e *Engine) SetRate(r float64) {
	if !core.RateValid(r) {
		e.log.Debug("ignoring out-of-range rate", zap.Float64("rate", r))
		return
	}
	if h := e.bg.liveHandle(); h != nil {
		if err := h.SetRate(r); err != nil {
			e.log.Warn("set rate failed", zap.Error(err))
		}
	}
}

// EffectCount returns the number of live effects.
func (e *Engine) EffectCount() int {
	return e.fx.Len()
}

// Status captures a point-in-time snapshot of the engine.
func (e *Engine) Status() core.Status {
	return core.Status{
		Track:     e.CurrentTrack(),
		IsPlaying: e.IsPlaying(),
		Position:  e.Position(),
		Duration:  e.Duration(),
		Rate:      e.Rate(),
		Volume:    e.Volume(),
		Effects:   e.EffectCount(),
	}
}

// Close stops everything. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.StopAll()
}
