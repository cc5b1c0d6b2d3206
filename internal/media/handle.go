// Package media abstracts native audio playback behind the Handle
// interface so the engine can be exercised without a live audio device.
package media

import (
	"context"
	"sync"
	"time"
)

// Handle is a single playable media element. Implementations must be safe
// for concurrent use: the engine drives a handle from caller goroutines and
// from its own watch goroutine.
type Handle interface {
	// Start begins playback, or resumes it after a pause or a natural end.
	Start(ctx context.Context) error
	// Pause suspends playback without releasing resources.
	Pause()
	// Playing reports whether audio is currently being produced.
	Playing() bool

	Position() time.Duration
	SetPosition(d time.Duration) error
	Duration() time.Duration

	// SetVolume sets the linear volume in [0, 1].
	SetVolume(v float64)
	Volume() float64

	// Rate is the playback speed multiplier. SetRate accepts any positive
	// value; range policy is the caller's concern.
	Rate() float64
	SetRate(r float64) error

	// Done delivers one signal each time playback reaches the natural end
	// of the media. It never closes while the handle is open.
	Done() <-chan struct{}

	// Close stops playback and releases the handle. Closing never fires Done.
	Close() error
}

// Opener turns a resolved URI into a playable Handle.
type Opener interface {
	Open(ctx context.Context, uri string) (Handle, error)
}

// Sweeper is implemented by openers that can enumerate their live handles,
// enabling the engine's defensive cleanup of leaked playback.
type Sweeper interface {
	Active() []Handle
}

// registry tracks live handles for an opener.
type registry struct {
	mu      sync.Mutex
	handles map[Handle]struct{}
}

func newRegistry() *registry {
	return &registry{handles: make(map[Handle]struct{})}
}

func (r *registry) add(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h] = struct{}{}
}

func (r *registry) remove(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, h)
}

func (r *registry) active() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handle, 0, len(r.handles))
	for h := range r.handles {
		out = append(out, h)
	}
	return out
}
