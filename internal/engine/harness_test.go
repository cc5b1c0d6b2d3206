package engine

import (
	"context"
	"sync"
	"time"

	"github.com/soundbed/backdrop/internal/media"
)

// fakeHandle is an in-memory media.Handle for exercising the engine
// without an audio device.
type fakeHandle struct {
	mu       sync.Mutex
	playing  bool
	closed   bool
	pos      time.Duration
	duration time.Duration
	vol      float64
	volLog   []float64
	rate     float64
	seeks    []time.Duration
	starts   int
	startErr error
	done     chan struct{}
}

func newFakeHandle(duration time.Duration) *fakeHandle {
	return &fakeHandle{
		duration: duration,
		rate:     1.0,
		done:     make(chan struct{}, 1),
	}
}

func (h *fakeHandle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.startErr != nil {
		return h.startErr
	}
	h.playing = true
	h.starts++
	return nil
}

func (h *fakeHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
}

func (h *fakeHandle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *fakeHandle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

func (h *fakeHandle) SetPosition(d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = d
	h.seeks = append(h.seeks, d)
	return nil
}

func (h *fakeHandle) Duration() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.duration
}

func (h *fakeHandle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vol = v
	h.volLog = append(h.volLog, v)
}

func (h *fakeHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vol
}

func (h *fakeHandle) Rate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rate
}

func (h *fakeHandle) SetRate(r float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rate = r
	return nil
}

func (h *fakeHandle) Done() <-chan struct{} {
	return h.done
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.playing = false
	return nil
}

// finishNaturally simulates the media reaching its own end.
func (h *fakeHandle) finishNaturally() {
	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
	select {
	case h.done <- struct{}{}:
	default:
	}
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *fakeHandle) setPos(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = d
}

func (h *fakeHandle) seekCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seeks)
}

func (h *fakeHandle) startCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.starts
}

// fakeOpener hands out fakeHandles and tracks every handle it opened, so
// tests can assert exactly one survives. It implements media.Sweeper.
type fakeOpener struct {
	mu       sync.Mutex
	duration time.Duration
	startErr error
	openErr  error
	// prefinished hands out handles whose end has already been reached,
	// so completion races the caller's bookkeeping.
	prefinished bool
	opened      []*fakeHandle
	// leaked handles appear in Active() without being opened through
	// Open, simulating playback orphaned by a failed teardown.
	leaked []*fakeHandle
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{duration: 10 * time.Second}
}

func (o *fakeOpener) Open(ctx context.Context, uri string) (media.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	h := newFakeHandle(o.duration)
	h.startErr = o.startErr
	if o.prefinished {
		h.finishNaturally()
	}
	o.opened = append(o.opened, h)
	return h, nil
}

func (o *fakeOpener) Active() []media.Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []media.Handle
	for _, h := range o.opened {
		if !h.isClosed() {
			out = append(out, h)
		}
	}
	for _, h := range o.leaked {
		if !h.isClosed() {
			out = append(out, h)
		}
	}
	return out
}

func (o *fakeOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}

func (o *fakeOpener) liveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	live := 0
	for _, h := range o.opened {
		if !h.isClosed() {
			live++
		}
	}
	return live
}

func (o *fakeOpener) lastOpened() *fakeHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.opened) == 0 {
		return nil
	}
	return o.opened[len(o.opened)-1]
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
