package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/soundbed/backdrop/internal/core"
)

// playRequest is the body for background/effect play calls. Either a
// preset name from the config or a full descriptor.
type playRequest struct {
	Preset     string           `json:"preset,omitempty"`
	Descriptor *core.Descriptor `json:"descriptor,omitempty"`
}

type triggerRequest struct {
	Context string `json:"context"`
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

type positionRequest struct {
	Seconds float64 `json:"seconds"`
}

type rateRequest struct {
	Rate float64 `json:"rate"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

// resolveRequest turns a play request into a descriptor, expanding config
// presets.
func (s *Server) resolveRequest(req *playRequest) (core.Descriptor, bool) {
	if req.Descriptor != nil && req.Descriptor.Path != "" {
		return *req.Descriptor, true
	}
	if req.Preset != "" {
		cfg := s.config()
		if t := cfg.Track(req.Preset); t != nil {
			return cfg.Descriptor(t), true
		}
	}
	return core.Descriptor{}, false
}

func (s *Server) handlePlayBackground(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	desc, ok := s.resolveRequest(&req)
	if !ok {
		writeError(w, http.StatusBadRequest, "preset or descriptor required")
		return
	}

	if err := s.engine.PlayBackground(r.Context(), desc); err != nil {
		s.log.Error("play background failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "playing", "track": desc.DisplayName()})
}

func (s *Server) handleStopBackground(w http.ResponseWriter, r *http.Request) {
	fade := time.Duration(0)
	if v := r.URL.Query().Get("fade_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			writeError(w, http.StatusBadRequest, "invalid fade_ms")
			return
		}
		fade = time.Duration(ms) * time.Millisecond
	}
	s.engine.StopBackground(fade)
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handlePlayEffect(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	desc, ok := s.resolveRequest(&req)
	if !ok {
		writeError(w, http.StatusBadRequest, "preset or descriptor required")
		return
	}

	key, err := s.engine.PlayEffect(r.Context(), desc)
	if err != nil {
		s.log.Error("play effect failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "playing", "key": key})
}

func (s *Server) handleStopEffects(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("key"); key != "" {
		s.engine.StopEffect(key)
	} else {
		s.engine.StopAllEffects()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// handleTrigger runs the rule matcher over a caller context (a file path,
// a view name) and plays whatever matches. No match is not an error.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Context == "" {
		writeError(w, http.StatusBadRequest, "context required")
		return
	}

	ref := s.rulesMatcher().FindMatch(req.Context)
	if ref == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no_match"})
		return
	}

	cfg := s.config()
	desc := core.Descriptor{Path: ref, Source: "rule"}
	if t := cfg.Track(ref); t != nil {
		desc = cfg.Descriptor(t)
		desc.Source = "rule"
	}

	if err := s.engine.PlayBackground(r.Context(), desc); err != nil {
		s.log.Error("trigger play failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "playing", "track": desc.DisplayName()})
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	s.engine.StopAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.engine.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.engine.Resume(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Volume < 0 || req.Volume > 1 {
		writeError(w, http.StatusBadRequest, "volume must be between 0.0 and 1.0")
		return
	}
	s.engine.SetVolume(req.Volume)
	writeJSON(w, http.StatusOK, map[string]float64{"volume": s.engine.Volume()})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Seconds < 0 {
		writeError(w, http.StatusBadRequest, "invalid position")
		return
	}
	if err := s.engine.SetPosition(time.Duration(req.Seconds * float64(time.Second))); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"position": s.engine.Position().Seconds()})
}

// handleRate applies the engine's rate policy: out-of-range values are
// ignored, and the response reports the rate actually in effect.
func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.engine.SetRate(req.Rate)
	writeJSON(w, http.StatusOK, map[string]float64{"rate": s.engine.Rate()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
