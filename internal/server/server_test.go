package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/soundbed/backdrop/internal/config"
	"github.com/soundbed/backdrop/internal/core"
	"github.com/soundbed/backdrop/internal/engine"
	"github.com/soundbed/backdrop/internal/media"
)

// stubHandle is the minimal handle the handler tests need.
type stubHandle struct {
	mu      sync.Mutex
	playing bool
	pos     time.Duration
	vol     float64
	rate    float64
	done    chan struct{}
}

func newStubHandle() *stubHandle {
	return &stubHandle{rate: 1.0, done: make(chan struct{}, 1)}
}

func (h *stubHandle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = true
	return nil
}

func (h *stubHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
}

func (h *stubHandle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *stubHandle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

func (h *stubHandle) SetPosition(d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = d
	return nil
}

func (h *stubHandle) Duration() time.Duration { return 10 * time.Second }

func (h *stubHandle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vol = v
}

func (h *stubHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vol
}

func (h *stubHandle) Rate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rate
}

func (h *stubHandle) SetRate(r float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rate = r
	return nil
}

func (h *stubHandle) Done() <-chan struct{} { return h.done }

func (h *stubHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
	return nil
}

type stubOpener struct{}

func (stubOpener) Open(ctx context.Context, uri string) (media.Handle, error) {
	return newStubHandle(), nil
}

func testServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	eng := engine.New(engine.Options{Opener: stubOpener{}, Volume: 0.8, Logger: zap.NewNop()})
	t.Cleanup(eng.Close)

	cfg := config.Default()
	cfg.Tracks = []config.TrackConfig{
		{Name: "rain", Path: "ambient/rain.mp3", Volume: 0.4},
	}
	cfg.Rules = []config.RuleConfig{
		{Pattern: "*.go", Track: "rain"},
	}

	return New(eng, cfg, zap.NewNop()), eng
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(buf)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	s.router().ServeHTTP(w, req)
	return w
}

func TestStatusEmpty(t *testing.T) {
	s, _ := testServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var st core.Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.HasTrack() {
		t.Error("empty engine reports a track")
	}
	if st.Volume != 0.8 {
		t.Errorf("volume = %v, want 0.8", st.Volume)
	}
}

func TestPlayBackgroundPreset(t *testing.T) {
	s, eng := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/background", map[string]string{"preset": "rain"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	track := eng.CurrentTrack()
	if track == nil {
		t.Fatal("no background track installed")
	}
	if track.Path != "ambient/rain.mp3" {
		t.Errorf("path = %q, want preset path", track.Path)
	}
}

func TestPlayBackgroundDescriptor(t *testing.T) {
	s, eng := testServer(t)

	body := map[string]any{
		"descriptor": map[string]any{"path": "direct.mp3", "name": "Direct"},
	}
	w := doJSON(t, s, http.MethodPost, "/api/background", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if got := eng.CurrentTrack().DisplayName(); got != "Direct" {
		t.Errorf("track = %q, want %q", got, "Direct")
	}
}

func TestPlayBackgroundRequiresReference(t *testing.T) {
	s, _ := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/background", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/background", map[string]string{"preset": "missing"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status for unknown preset = %d, want 400", w.Code)
	}
}

func TestStopBackground(t *testing.T) {
	s, eng := testServer(t)

	doJSON(t, s, http.MethodPost, "/api/background", map[string]string{"preset": "rain"})
	w := doJSON(t, s, http.MethodDelete, "/api/background", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if eng.CurrentTrack() != nil {
		t.Error("background track survived DELETE")
	}
}

func TestStopBackgroundRejectsBadFade(t *testing.T) {
	s, _ := testServer(t)

	w := doJSON(t, s, http.MethodDelete, "/api/background?fade_ms=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	w = doJSON(t, s, http.MethodDelete, "/api/background?fade_ms=-5", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEffectsLifecycle(t *testing.T) {
	s, eng := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/effects", map[string]any{
		"descriptor": map[string]any{"path": "ding.wav"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["key"] == "" {
		t.Fatal("no effect key returned")
	}
	if got := eng.EffectCount(); got != 1 {
		t.Errorf("EffectCount() = %d, want 1", got)
	}

	w = doJSON(t, s, http.MethodDelete, "/api/effects?key="+resp["key"], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := eng.EffectCount(); got != 0 {
		t.Errorf("EffectCount() after delete = %d, want 0", got)
	}
}

func TestTrigger(t *testing.T) {
	s, eng := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/trigger", map[string]string{"context": "main.go"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	track := eng.CurrentTrack()
	if track == nil {
		t.Fatal("trigger did not start the matched track")
	}
	if track.Source != "rule" {
		t.Errorf("source = %q, want rule", track.Source)
	}
	if track.Path != "ambient/rain.mp3" {
		t.Errorf("path = %q, want the rain preset's path", track.Path)
	}
}

func TestTriggerNoMatch(t *testing.T) {
	s, eng := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/trigger", map[string]string{"context": "notes.txt"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "no_match" {
		t.Errorf("status = %q, want no_match", resp["status"])
	}
	if eng.CurrentTrack() != nil {
		t.Error("unmatched trigger started a track")
	}
}

func TestVolumeEndpoint(t *testing.T) {
	s, eng := testServer(t)

	w := doJSON(t, s, http.MethodPut, "/api/volume", map[string]float64{"volume": 0.5})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := eng.Volume(); got != 0.5 {
		t.Errorf("Volume() = %v, want 0.5", got)
	}

	w = doJSON(t, s, http.MethodPut, "/api/volume", map[string]float64{"volume": 1.5})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status for out-of-range volume = %d, want 400", w.Code)
	}
}

func TestRateEndpointIgnoresOutOfRange(t *testing.T) {
	s, _ := testServer(t)

	doJSON(t, s, http.MethodPost, "/api/background", map[string]string{"preset": "rain"})
	doJSON(t, s, http.MethodPut, "/api/rate", map[string]float64{"rate": 2.0})

	w := doJSON(t, s, http.MethodPut, "/api/rate", map[string]float64{"rate": 9.0})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]float64
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["rate"] != 2.0 {
		t.Errorf("rate = %v, want unchanged 2.0", resp["rate"])
	}
}

func TestPauseResumeEndpoints(t *testing.T) {
	s, eng := testServer(t)

	doJSON(t, s, http.MethodPost, "/api/background", map[string]string{"preset": "rain"})

	if w := doJSON(t, s, http.MethodPost, "/api/pause", nil); w.Code != http.StatusOK {
		t.Fatalf("pause status = %d", w.Code)
	}
	if eng.IsPlaying() {
		t.Error("still playing after pause")
	}

	if w := doJSON(t, s, http.MethodPost, "/api/resume", nil); w.Code != http.StatusOK {
		t.Fatalf("resume status = %d", w.Code)
	}
	if !eng.IsPlaying() {
		t.Error("not playing after resume")
	}
}

func TestReloadConfigRebuildsRules(t *testing.T) {
	s, eng := testServer(t)

	cfg := config.Default()
	cfg.Playback.Volume = 0.6
	cfg.Rules = []config.RuleConfig{{Pattern: "*.md", Track: "docs.mp3"}}
	s.reloadConfig(cfg)

	if got := eng.Volume(); got != 0.6 {
		t.Errorf("Volume() after reload = %v, want 0.6", got)
	}
	if got := s.rulesMatcher().FindMatch("readme.md"); got != "docs.mp3" {
		t.Errorf("FindMatch() = %q, want the reloaded rule", got)
	}
	if got := s.rulesMatcher().FindMatch("main.go"); got != "" {
		t.Errorf("FindMatch() = %q, want old rules gone", got)
	}
}

func TestReloadConfigConcurrentWithTrigger(t *testing.T) {
	s, _ := testServer(t)

	next := config.Default()
	next.Rules = []config.RuleConfig{{Pattern: "*.md", Track: "docs.mp3"}}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.reloadConfig(next)
		}
	}()
	for i := 0; i < 100; i++ {
		w := doJSON(t, s, http.MethodPost, "/api/trigger", map[string]string{"context": "notes.txt"})
		if w.Code != http.StatusOK {
			t.Fatalf("trigger status = %d, want 200", w.Code)
		}
	}
	wg.Wait()
}
