package engine

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/soundbed/backdrop/internal/core"
)

func newTestEngine(o *fakeOpener) *Engine {
	return New(Options{Opener: o, Volume: 0.8, Logger: zap.NewNop()})
}

func TestEngineStatusEmpty(t *testing.T) {
	e := newTestEngine(newFakeOpener())
	st := e.Status()

	if st.HasTrack() {
		t.Error("empty engine reports a track")
	}
	if st.IsPlaying {
		t.Error("empty engine reports playing")
	}
	if st.Volume != 0.8 {
		t.Errorf("volume = %v, want 0.8", st.Volume)
	}
	if st.Rate != 1.0 {
		t.Errorf("rate = %v, want 1.0", st.Rate)
	}
}

func TestEngineStatusWithTrack(t *testing.T) {
	o := newFakeOpener()
	e := newTestEngine(o)
	defer e.Close()

	if err := e.PlayBackground(context.Background(), core.Descriptor{Path: "a.mp3", Name: "Rain"}); err != nil {
		t.Fatalf("PlayBackground() error = %v", err)
	}

	st := e.Status()
	if !st.HasTrack() {
		t.Fatal("no track in status")
	}
	if got := st.Track.DisplayName(); got != "Rain" {
		t.Errorf("track = %q, want %q", got, "Rain")
	}
	if !st.IsPlaying {
		t.Error("status not playing")
	}
	if st.Duration != 10*time.Second {
		t.Errorf("duration = %v, want 10s", st.Duration)
	}
}

func TestEngineVolumePushThrough(t *testing.T) {
	o := newFakeOpener()
	e := newTestEngine(o)
	defer e.Close()

	if err := e.PlayBackground(context.Background(), core.Descriptor{Path: "a.mp3"}); err != nil {
		t.Fatalf("PlayBackground() error = %v", err)
	}

	e.SetVolume(0.3)

	if got := e.Volume(); got != 0.3 {
		t.Errorf("Volume() = %v, want 0.3", got)
	}
	if got := o.lastOpened().Volume(); got != 0.3 {
		t.Errorf("handle volume = %v, want pushed-through 0.3", got)
	}
}

func TestEngineSetVolumeClamps(t *testing.T) {
	e := newTestEngine(newFakeOpener())
	e.SetVolume(1.6)
	if got := e.Volume(); got != 1.0 {
		t.Errorf("Volume() = %v, want clamped 1.0", got)
	}
	e.SetVolume(-0.4)
	if got := e.Volume(); got != 0 {
		t.Errorf("Volume() = %v, want clamped 0", got)
	}
}

func TestEngineRateGuard(t *testing.T) {
	o := newFakeOpener()
	e := newTestEngine(o)
	defer e.Close()

	if err := e.PlayBackground(context.Background(), core.Descriptor{Path: "a.mp3"}); err != nil {
		t.Fatalf("PlayBackground() error = %v", err)
	}

	e.SetRate(2.0)
	if got := e.Rate(); got != 2.0 {
		t.Errorf("Rate() = %v, want 2.0", got)
	}

	// Out-of-range requests are ignored, not clamped.
	e.SetRate(8.0)
	if got := e.Rate(); got != 2.0 {
		t.Errorf("Rate() after invalid request = %v, want unchanged 2.0", got)
	}
	e.SetRate(0.1)
	if got := e.Rate(); got != 2.0 {
		t.Errorf("Rate() after invalid request = %v, want unchanged 2.0", got)
	}
}

func TestEnginePauseResume(t *testing.T) {
	o := newFakeOpener()
	e := newTestEngine(o)
	defer e.Close()
	ctx := context.Background()

	if err := e.PlayBackground(ctx, core.Descriptor{Path: "a.mp3"}); err != nil {
		t.Fatalf("PlayBackground() error = %v", err)
	}

	e.Pause()
	if e.IsPlaying() {
		t.Error("still playing after Pause")
	}

	e.Resume(ctx)
	if !e.IsPlaying() {
		t.Error("not playing after Resume")
	}

	// Resume while playing is a no-op.
	starts := o.lastOpened().startCount()
	e.Resume(ctx)
	if got := o.lastOpened().startCount(); got != starts {
		t.Errorf("Resume while playing restarted the handle: %d -> %d", starts, got)
	}
}

func TestEnginePauseWithoutTrackIsNoop(t *testing.T) {
	e := newTestEngine(newFakeOpener())
	e.Pause()
	e.Resume(context.Background())
}

func TestEngineSeek(t *testing.T) {
	o := newFakeOpener()
	e := newTestEngine(o)
	defer e.Close()

	if err := e.PlayBackground(context.Background(), core.Descriptor{Path: "a.mp3"}); err != nil {
		t.Fatalf("PlayBackground() error = %v", err)
	}

	if err := e.SetPosition(3 * time.Second); err != nil {
		t.Fatalf("SetPosition() error = %v", err)
	}
	if got := e.Position(); got != 3*time.Second {
		t.Errorf("Position() = %v, want 3s", got)
	}
}

func TestEngineStopBackgroundUsesDescriptorFadeOut(t *testing.T) {
	o := newFakeOpener()
	e := newTestEngine(o)
	defer e.Close()

	desc := core.Descriptor{Path: "bg.mp3", FadeOut: 40 * time.Millisecond}
	if err := e.PlayBackground(context.Background(), desc); err != nil {
		t.Fatalf("PlayBackground() error = %v", err)
	}
	h := o.lastOpened()

	e.StopBackground(0)

	if !h.isClosed() {
		t.Fatal("handle not closed after stop")
	}
	h.mu.Lock()
	log := append([]float64(nil), h.volLog...)
	h.mu.Unlock()
	if len(log) == 0 {
		t.Fatal("no volume deliveries recorded")
	}
	// A hard cut never delivers silence; only the fade-out ends at 0.
	if got := log[len(log)-1]; got != 0 {
		t.Errorf("final volume = %v, want 0 from the track's fade_out", got)
	}
}

func TestEngineStopAllCutsHardDespiteFadeOut(t *testing.T) {
	o := newFakeOpener()
	e := newTestEngine(o)
	defer e.Close()

	desc := core.Descriptor{Path: "bg.mp3", FadeOut: time.Hour}
	if err := e.PlayBackground(context.Background(), desc); err != nil {
		t.Fatalf("PlayBackground() error = %v", err)
	}
	h := o.lastOpened()

	// Returning at all proves the hour-long fade was skipped.
	e.StopAll()

	if !h.isClosed() {
		t.Error("handle not closed after StopAll")
	}
	if e.CurrentTrack() != nil {
		t.Error("background track still installed after StopAll")
	}
}

func TestEngineEffectsRunAlongsideBackground(t *testing.T) {
	o := newFakeOpener()
	e := newTestEngine(o)
	defer e.Close()
	ctx := context.Background()

	if err := e.PlayBackground(ctx, core.Descriptor{Path: "bg.mp3"}); err != nil {
		t.Fatalf("PlayBackground() error = %v", err)
	}
	bg := o.lastOpened()

	k1, err := e.PlayEffect(ctx, core.Descriptor{Path: "ding.wav", Loop: boolPtr(false)})
	if err != nil {
		t.Fatalf("PlayEffect() error = %v", err)
	}
	k2, err := e.PlayEffect(ctx, core.Descriptor{Path: "ding.wav", Loop: boolPtr(false)})
	if err != nil {
		t.Fatalf("PlayEffect() error = %v", err)
	}

	if k1 == k2 {
		t.Errorf("concurrent plays of one path share a key: %q", k1)
	}
	if got := e.EffectCount(); got != 2 {
		t.Errorf("EffectCount() = %d, want 2", got)
	}
	if !bg.Playing() {
		t.Error("effects interrupted the background track")
	}

	e.StopAllEffects()
	if got := e.EffectCount(); got != 0 {
		t.Errorf("EffectCount() after StopAllEffects = %d, want 0", got)
	}
	if !bg.Playing() {
		t.Error("stopping effects interrupted the background track")
	}
}

func TestEngineEffectNaturalCompletionSelfRemoves(t *testing.T) {
	o := newFakeOpener()
	e := newTestEngine(o)
	defer e.Close()

	_, err := e.PlayEffect(context.Background(), core.Descriptor{Path: "ding.wav", Loop: boolPtr(false)})
	if err != nil {
		t.Fatalf("PlayEffect() error = %v", err)
	}

	o.lastOpened().finishNaturally()

	if !waitFor(2*time.Second, func() bool { return e.EffectCount() == 0 }) {
		t.Error("finished effect not removed from the pool")
	}
	if !o.lastOpened().isClosed() {
		t.Error("finished effect's handle not closed")
	}
}

func TestEngineEffectFinishingDuringStartStillRemoved(t *testing.T) {
	o := newFakeOpener()
	o.prefinished = true
	e := newTestEngine(o)
	defer e.Close()

	// The track is over before PlayEffect finishes its bookkeeping; the
	// completion callback must still find and delete the pool entry.
	key, err := e.PlayEffect(context.Background(), core.Descriptor{Path: "pop.wav", Loop: boolPtr(false)})
	if err != nil {
		t.Fatalf("PlayEffect() error = %v", err)
	}
	if key == "" {
		t.Fatal("PlayEffect() returned an empty key")
	}

	if !waitFor(2*time.Second, func() bool { return e.EffectCount() == 0 }) {
		t.Error("instantly finished effect left a dead pool entry")
	}
}

func TestEngineStopEffectByKey(t *testing.T) {
	o := newFakeOpener()
	e := newTestEngine(o)
	defer e.Close()

	key, err := e.PlayEffect(context.Background(), core.Descriptor{Path: "ding.wav"})
	if err != nil {
		t.Fatalf("PlayEffect() error = %v", err)
	}

	e.StopEffect(key)
	if got := e.EffectCount(); got != 0 {
		t.Errorf("EffectCount() = %d, want 0", got)
	}
	if !o.lastOpened().isClosed() {
		t.Error("stopped effect's handle not closed")
	}

	// Unknown keys are ignored.
	e.StopEffect("nope")
}

func TestEngineStopAll(t *testing.T) {
	o := newFakeOpener()
	e := newTestEngine(o)
	ctx := context.Background()

	if err := e.PlayBackground(ctx, core.Descriptor{Path: "bg.mp3"}); err != nil {
		t.Fatalf("PlayBackground() error = %v", err)
	}
	if _, err := e.PlayEffect(ctx, core.Descriptor{Path: "ding.wav"}); err != nil {
		t.Fatalf("PlayEffect() error = %v", err)
	}

	e.StopAll()

	if e.CurrentTrack() != nil {
		t.Error("background track survived StopAll")
	}
	if got := e.EffectCount(); got != 0 {
		t.Errorf("EffectCount() = %d, want 0", got)
	}
	if got := o.liveCount(); got != 0 {
		t.Errorf("live handles after StopAll = %d, want 0", got)
	}
}
