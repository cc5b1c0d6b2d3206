package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/soundbed/backdrop/internal/core"
	"github.com/soundbed/backdrop/internal/watch"
)

var watchTimestamp bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow playback changes in real-time",
	Long: `Subscribe to the daemon's event stream and print changes as they
happen.

Events tracked:
  - Track changes (new background track started)
  - Track ends (background track finished)
  - Pause/Resume
  - Volume and rate changes
  - Effects starting and finishing`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVarP(&watchTimestamp, "timestamp", "t", false, "show timestamps")
	rootCmd.AddCommand(watchCmd)
}

// streamEvent mirrors the daemon's websocket payload.
type streamEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Status    core.Status `json:"status"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	wsURL := "ws://" + cfg.Server.Addr + "/api/events"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon at %s: %w", cfg.Server.Addr, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var ev streamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream closed: %w", err)
		}

		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(ev)
			continue
		}
		fmt.Println(formatStreamEvent(ev))
	}
}

func formatStreamEvent(ev streamEvent) string {
	prefix := ""
	if watchTimestamp {
		prefix = ev.Timestamp.Local().Format("15:04:05") + " "
	}
	return prefix + describeStreamEvent(ev)
}

func describeStreamEvent(ev streamEvent) string {
	st := ev.Status
	switch ev.Type {
	case "snapshot":
		if st.HasTrack() {
			return fmt.Sprintf("Now playing: %s", st.Track.DisplayName())
		}
		return "Nothing playing"
	case watch.TypeName(watch.EventTrackChange):
		if st.HasTrack() {
			return fmt.Sprintf("Now playing: %s", st.Track.DisplayName())
		}
		return "Track changed"
	case watch.TypeName(watch.EventTrackEnd):
		return "Track ended"
	case watch.TypeName(watch.EventPause):
		return "Paused"
	case watch.TypeName(watch.EventResume):
		return "Resumed"
	case watch.TypeName(watch.EventVolumeChange):
		return fmt.Sprintf("Volume: %.0f%%", st.Volume*100)
	case watch.TypeName(watch.EventRateChange):
		return fmt.Sprintf("Rate: %.2fx", st.Rate)
	case watch.TypeName(watch.EventEffectChange):
		return fmt.Sprintf("Effects: %d", st.Effects)
	default:
		return ev.Type
	}
}
