package media

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"

	bderrors "github.com/soundbed/backdrop/internal/errors"
)

// mixerRate is the sample rate the speaker mixes at; every decoded stream
// is resampled to it so any mix of formats can play together.
const mixerRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(mixerRate, mixerRate.N(100*time.Millisecond))
	})
	return speakerErr
}

// BeepOpener opens playable handles backed by the beep speaker.
type BeepOpener struct {
	reg    *registry
	client *http.Client
	log    *zap.Logger
}

// NewBeepOpener creates an opener. The speaker is initialized lazily on the
// first Open so importing this package costs nothing.
func NewBeepOpener(log *zap.Logger) *BeepOpener {
	if log == nil {
		log = zap.NewNop()
	}
	return &BeepOpener{
		reg:    newRegistry(),
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

// Open resolves the URI to bytes, decodes it, and wires the playback chain:
// streamer -> resampler (rate control) -> volume -> ctrl (pause control).
func (o *BeepOpener) Open(ctx context.Context, uri string) (Handle, error) {
	if err := initSpeaker(); err != nil {
		return nil, fmt.Errorf("%w: %v", bderrors.ErrPlaybackStart, err)
	}

	src, ext, err := openSource(ctx, uri, o.client)
	if err != nil {
		return nil, err
	}

	streamer, format, err := decode(ext, src)
	if err != nil {
		src.Close()
		return nil, err
	}

	baseRatio := float64(format.SampleRate) / float64(mixerRate)
	resampler := beep.ResampleRatio(4, baseRatio, streamer)
	volume := &effects.Volume{Streamer: resampler, Base: 2, Silent: true}
	ctrl := &beep.Ctrl{Streamer: volume}

	h := &beepHandle{
		opener:    o,
		src:       src,
		streamer:  streamer,
		format:    format,
		resampler: resampler,
		volume:    volume,
		ctrl:      ctrl,
		baseRatio: baseRatio,
		rate:      1.0,
		done:      make(chan struct{}, 1),
	}
	o.reg.add(h)
	o.log.Debug("opened media handle",
		zap.String("uri", trimURI(uri)),
		zap.Int("sample_rate", int(format.SampleRate)),
	)
	return h, nil
}

// Active returns the opener's live handles.
func (o *BeepOpener) Active() []Handle {
	return o.reg.active()
}

func decode(ext string, src io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch ext {
	case ".mp3", "":
		return mp3.Decode(src)
	case ".wav":
		return wav.Decode(src)
	case ".flac":
		return flac.Decode(src)
	case ".ogg", ".oga":
		return vorbis.Decode(src)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", bderrors.ErrUnsupportedFormat, ext)
	}
}

// trimURI keeps log lines readable when the URI is an inline data blob.
func trimURI(uri string) string {
	if len(uri) > 64 {
		return uri[:64] + "..."
	}
	return uri
}

// beepHandle is the live playback element for one track.
//
// The lifecycle flags are atomics because the natural-end callback runs on
// the speaker's mixing goroutine while the speaker lock is held; taking a
// handle mutex there could deadlock against methods that lock the speaker.
type beepHandle struct {
	opener    *BeepOpener
	src       io.Closer
	streamer  beep.StreamSeekCloser
	format    beep.Format
	resampler *beep.Resampler
	volume    *effects.Volume
	ctrl      *beep.Ctrl
	baseRatio float64

	submitted atomic.Bool
	paused    atomic.Bool
	closed    atomic.Bool

	mu     sync.Mutex // guards rate and linear
	rate   float64
	linear float64

	done chan struct{}
}

// Start begins playback, or resumes it after Pause or a natural end.
func (h *beepHandle) Start(ctx context.Context) error {
	if h.closed.Load() {
		return fmt.Errorf("%w: handle closed", bderrors.ErrPlaybackStart)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if h.submitted.Load() {
		if h.paused.CompareAndSwap(true, false) {
			speaker.Lock()
			h.ctrl.Paused = false
			speaker.Unlock()
		}
		return nil
	}

	h.submitted.Store(true)
	h.paused.Store(false)
	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
	speaker.Play(beep.Seq(h.ctrl, beep.Callback(h.finished)))
	return nil
}

// finished runs on the speaker goroutine when the stream drains.
func (h *beepHandle) finished() {
	h.submitted.Store(false)
	if h.closed.Load() {
		return
	}
	select {
	case h.done <- struct{}{}:
	default:
	}
}

func (h *beepHandle) Pause() {
	if !h.submitted.Load() || h.closed.Load() {
		return
	}
	if h.paused.CompareAndSwap(false, true) {
		speaker.Lock()
		h.ctrl.Paused = true
		speaker.Unlock()
	}
}

func (h *beepHandle) Playing() bool {
	return h.submitted.Load() && !h.paused.Load() && !h.closed.Load()
}

func (h *beepHandle) Position() time.Duration {
	speaker.Lock()
	n := h.streamer.Position()
	speaker.Unlock()
	return h.format.SampleRate.D(n)
}

func (h *beepHandle) SetPosition(d time.Duration) error {
	if h.closed.Load() {
		return nil
	}
	n := h.format.SampleRate.N(d)
	speaker.Lock()
	if max := h.streamer.Len(); n > max {
		n = max
	}
	if n < 0 {
		n = 0
	}
	err := h.streamer.Seek(n)
	speaker.Unlock()
	return err
}

func (h *beepHandle) Duration() time.Duration {
	return h.format.SampleRate.D(h.streamer.Len())
}

func (h *beepHandle) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	h.mu.Lock()
	h.linear = v
	h.mu.Unlock()

	speaker.Lock()
	if v <= 0 {
		h.volume.Silent = true
	} else {
		h.volume.Silent = false
		h.volume.Volume = math.Log2(v)
	}
	speaker.Unlock()
}

func (h *beepHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.linear
}

func (h *beepHandle) Rate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rate
}

func (h *beepHandle) SetRate(r float64) error {
	if r <= 0 {
		return fmt.Errorf("rate must be positive, got %v", r)
	}
	h.mu.Lock()
	h.rate = r
	h.mu.Unlock()

	speaker.Lock()
	h.resampler.SetRatio(h.baseRatio * r)
	speaker.Unlock()
	return nil
}

func (h *beepHandle) Done() <-chan struct{} {
	return h.done
}

// Close detaches the stream from the mixer and releases the source. The
// nil Streamer makes the ctrl drain immediately; finished then sees the
// closed flag and stays silent.
func (h *beepHandle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	speaker.Lock()
	h.ctrl.Streamer = nil
	speaker.Unlock()

	h.opener.reg.remove(h)
	err := h.streamer.Close()
	if cerr := h.src.Close(); err == nil {
		err = cerr
	}
	return err
}
