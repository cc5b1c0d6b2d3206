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

// background owns the single exclusive background slot. All play/stop
// sequences run under op, so concurrent requests serialize instead of
// interleaving; the slot reference itself is guarded separately so
// transport accessors never wait behind a fade.
type background struct {
	op sync.Mutex // serializes play/stop operations, FIFO under contention

	slotMu  sync.Mutex
	current *Instance

	opener        media.Opener
	res           *resolver.Resolver
	defaultVolume func() float64
	tracked       func() []media.Handle
	log           *zap.Logger
}

// Play performs the full serialized background-start sequence:
// sweep leaked handles, force-stop the old instance, resolve, open, start
// muted, install, fade in. On any failure the slot is left empty.
//
// Concurrent calls queue behind the operation lock; they are never merged
// or dropped. The lock is released on every path via defer.
func (b *background) Play(ctx context.Context, desc core.Descriptor) error {
	b.op.Lock()
	defer b.op.Unlock()

	b.sweep()

	// Force-stop, no fade: the at-most-one invariant must hold even
	// transiently, so the old instance is fully gone before the new
	// handle exists.
	if old := b.take(); old != nil {
		old.Stop()
	}

	desc.Kind = core.KindBackground
	uri := b.res.Resolve(ctx, desc.Path)

	h, err := b.opener.Open(ctx, uri)
	if err != nil {
		b.log.Error("open failed",
			zap.String("track", desc.DisplayName()),
			zap.Error(err),
		)
		return err
	}

	inst := newInstance(h, desc, b.defaultVolume(), b.log)
	inst.onComplete = func(done *Instance) { b.clear(done) }

	// Install before Start, so a track that ends on its first tick can
	// clear itself out of the slot.
	b.install(inst)

	if err := inst.Start(ctx); err != nil {
		b.clear(inst)
		inst.Stop()
		b.log.Error("start failed",
			zap.String("track", desc.DisplayName()),
			zap.Error(err),
		)
		return err
	}

	b.log.Info("background track playing",
		zap.String("track", desc.DisplayName()),
		zap.Duration("fade_in", desc.FadeIn),
	)

	select {
	case <-inst.FadeTo(inst.TargetVolume(), desc.FadeIn):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Stop tears down the current background track. With a positive fade the
// fade-out completes before the instance stops.
func (b *background) Stop(fadeOut time.Duration) {
	b.op.Lock()
	defer b.op.Unlock()

	inst := b.take()
	if inst == nil {
		return
	}
	if fadeOut > 0 {
		<-inst.FadeTo(0, fadeOut)
	}
	inst.Stop()
	stopped := inst.Descriptor()
	b.log.Info("background track stopped",
		zap.String("track", stopped.DisplayName()),
	)
}

// sweep force-closes live handles the engine does not track, a defensive
// cleanup against leaked playback from a previous failed teardown.
func (b *background) sweep() {
	sw, ok := b.opener.(media.Sweeper)
	if !ok || b.tracked == nil {
		return
	}
	known := make(map[media.Handle]bool)
	for _, h := range b.tracked() {
		known[h] = true
	}
	for _, h := range sw.Active() {
		if known[h] {
			continue
		}
		b.log.Warn("closing untracked media handle")
		_ = h.Close()
	}
}

func (b *background) install(inst *Instance) {
	b.slotMu.Lock()
	b.current = inst
	b.slotMu.Unlock()
}

// take removes and returns the current instance, leaving the slot empty.
func (b *background) take() *Instance {
	b.slotMu.Lock()
	defer b.slotMu.Unlock()
	inst := b.current
	b.current = nil
	return inst
}

// clear empties the slot only if it still holds the given instance; a
// completion callback from a superseded instance must not evict its
// replacement.
func (b *background) clear(inst *Instance) {
	b.slotMu.Lock()
	defer b.slotMu.Unlock()
	if b.current == inst {
		b.current = nil
	}
}

// get returns the live instance, or nil.
func (b *background) get() *Instance {
	b.slotMu.Lock()
	defer b.slotMu.Unlock()
	return b.current
}

// handle returns the live media handle, or nil.
func (b *background) liveHandle() media.Handle {
	if inst := b.get(); inst != nil {
		return inst.handle
	}
	return nil
}
