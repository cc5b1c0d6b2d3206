package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/soundbed/backdrop/internal/core"
	"github.com/soundbed/backdrop/internal/watch"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEvent is the wire form of a watcher event.
type wsEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Status    core.Status `json:"status"`
}

// handleEvents upgrades to a websocket and streams playback events. Each
// connection runs its own watcher, so subscribers never contend.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	watcher := watch.NewWatcher(s.engine, 250*time.Millisecond)
	go func() {
		_ = watcher.Start(r.Context())
	}()
	defer watcher.Stop()

	// Initial snapshot so clients don't start blind.
	if err := conn.WriteJSON(wsEvent{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Status:    s.engine.Status(),
	}); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-watcher.Events():
			if !ok {
				return
			}
			msg := wsEvent{
				Type:      watch.TypeName(ev.Type),
				Timestamp: ev.Timestamp,
				Status:    ev.Current,
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
