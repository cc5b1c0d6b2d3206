// Package server exposes the engine to remote trigger sources over HTTP:
// REST transport controls plus a websocket event stream.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/soundbed/backdrop/internal/config"
	"github.com/soundbed/backdrop/internal/engine"
	"github.com/soundbed/backdrop/internal/rules"
)

// Server wires the engine to HTTP handlers.
type Server struct {
	engine *engine.Engine
	log    *zap.Logger

	// mu guards cfg and matcher, which the hot-reload hook swaps while
	// handlers read them.
	mu      sync.RWMutex
	cfg     *config.Config
	matcher *rules.Matcher

	httpSrv *http.Server
}

// New creates a server around an engine.
func New(e *engine.Engine, cfg *config.Config, log *zap.Logger) *Server {
	s := &Server{
		engine: e,
		log:    log,
	}
	s.reloadConfig(cfg)
	s.httpSrv = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// reloadConfig swaps in a new config; used by the fsnotify hot-reload hook.
func (s *Server) reloadConfig(cfg *config.Config) {
	rls := make([]rules.Rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rls = append(rls, rules.Rule{Pattern: r.Pattern, Track: r.Track})
	}
	s.mu.Lock()
	s.matcher = rules.NewMatcher(rls)
	s.cfg = cfg
	s.mu.Unlock()
	s.engine.SetVolume(cfg.Playback.Volume)
}

// config returns the current config snapshot.
func (s *Server) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// rulesMatcher returns the current trigger matcher.
func (s *Server) rulesMatcher() *rules.Matcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matcher
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogger)

	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/background", s.handlePlayBackground).Methods(http.MethodPost)
	r.HandleFunc("/api/background", s.handleStopBackground).Methods(http.MethodDelete)
	r.HandleFunc("/api/effects", s.handlePlayEffect).Methods(http.MethodPost)
	r.HandleFunc("/api/effects", s.handleStopEffects).Methods(http.MethodDelete)
	r.HandleFunc("/api/trigger", s.handleTrigger).Methods(http.MethodPost)
	r.HandleFunc("/api/stop", s.handleStopAll).Methods(http.MethodPost)
	r.HandleFunc("/api/pause", s.handlePause).Methods(http.MethodPost)
	r.HandleFunc("/api/resume", s.handleResume).Methods(http.MethodPost)
	r.HandleFunc("/api/volume", s.handleVolume).Methods(http.MethodPut)
	r.HandleFunc("/api/position", s.handlePosition).Methods(http.MethodPut)
	r.HandleFunc("/api/rate", s.handleRate).Methods(http.MethodPut)
	r.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)

	return r
}

// requestLogger tags each request with an ID and logs it.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()[:8]
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Run serves until ctx is canceled, then shuts down gracefully. When a
// config file path is given, it is watched for changes and hot-reloaded.
func (s *Server) Run(ctx context.Context, configPath string) error {
	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(cfg *config.Config) {
				s.log.Info("config reloaded", zap.String("path", configPath))
				s.reloadConfig(cfg)
			})
			if err != nil && ctx.Err() == nil {
				s.log.Warn("config watch failed", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.httpSrv.Addr))
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		s.engine.StopAll()
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
