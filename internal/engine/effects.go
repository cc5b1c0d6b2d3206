package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soundbed/backdrop/internal/core"
	"github.com/soundbed/backdrop/internal/media"
	"github.com/soundbed/backdrop/internal/resolver"
)

// effectPool is the open multiset of concurrently playing effect
// instances. Entries self-remove on natural completion; manual stops are
// caller-driven. Effect plays are never serialized against each other or
// against the background slot.
type effectPool struct {
	mu      sync.Mutex
	entries map[string]*Instance

	opener        media.Opener
	res           *resolver.Resolver
	defaultVolume func() float64
	log           *zap.Logger
}

func newEffectPool(opener media.Opener, res *resolver.Resolver, defaultVolume func() float64, log *zap.Logger) *effectPool {
	return &effectPool{
		entries:       make(map[string]*Instance),
		opener:        opener,
		res:           res,
		defaultVolume: defaultVolume,
		log:           log,
	}
}

// Play starts an effect and returns its pool key. The key embeds the
// creation timestamp so concurrent plays of the same path stay distinct.
func (p *effectPool) Play(ctx context.Context, desc core.Descriptor) (string, error) {
	desc.Kind = core.KindEffect
	uri := p.res.Resolve(ctx, desc.Path)

	h, err := p.opener.Open(ctx, uri)
	if err != nil {
		p.log.Error("effect open failed",
			zap.String("track", desc.DisplayName()),
			zap.Error(err),
		)
		return "", err
	}

	key := fmt.Sprintf("%s-%d", desc.Path, time.Now().UnixNano())
	inst := newInstance(h, desc, p.defaultVolume(), p.log)
	inst.onComplete = func(*Instance) { p.remove(key) }

	// The entry goes in before Start: an effect that finishes on its
	// first tick self-removes through onComplete, and that removal must
	// find the key.
	p.mu.Lock()
	p.entries[key] = inst
	p.mu.Unlock()

	if err := inst.Start(ctx); err != nil {
		p.remove(key)
		inst.Stop()
		p.log.Error("effect start failed",
			zap.String("track", desc.DisplayName()),
			zap.Error(err),
		)
		return "", err
	}

	p.log.Info("effect playing", zap.String("track", desc.DisplayName()))

	select {
	case <-inst.FadeTo(inst.TargetVolume(), desc.FadeIn):
	case <-ctx.Done():
		return key, ctx.Err()
	}
	return key, nil
}

// Stop stops one effect by key and removes it from the pool.
func (p *effectPool) Stop(key string) {
	p.mu.Lock()
	inst := p.entries[key]
	delete(p.entries, key)
	p.mu.Unlock()

	if inst != nil {
		inst.Stop()
	}
}

// StopAll stops and clears every tracked effect regardless of progress.
func (p *effectPool) StopAll() {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*Instance)
	p.mu.Unlock()

	for _, inst := range entries {
		inst.Stop()
	}
	if len(entries) > 0 {
		p.log.Info("all effects stopped", zap.Int("count", len(entries)))
	}
}

// remove drops a naturally completed entry. It removes by the instance's
// own key, so it never races with a replacement under the same path.
func (p *effectPool) remove(key string) {
	p.mu.Lock()
	delete(p.entries, key)
	p.mu.Unlock()
}

// Len returns the number of live effects.
func (p *effectPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// handles returns the live handles for the engine's leak sweep.
func (p *effectPool) handles() []media.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]media.Handle, 0, len(p.entries))
	for _, inst := range p.entries {
		out = append(out, inst.handle)
	}
	return out
}
