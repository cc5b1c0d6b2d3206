package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopFade    time.Duration
	stopEffects bool
	stopKey     string
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop playback",
	Long: `Stop the background track, optionally with a fade-out.

Examples:
  backdrop stop                 # stop the background track immediately
  backdrop stop --fade 2s       # fade out over two seconds
  backdrop stop --effects       # stop every running effect
  backdrop stop --key <key>     # stop one effect by key
  backdrop stop --all           # stop everything`,
	RunE: runStop,
}

var stopAllFlag bool

func init() {
	stopCmd.Flags().DurationVar(&stopFade, "fade", 0, "fade-out duration (default: the track's fade_out)")
	stopCmd.Flags().BoolVar(&stopEffects, "effects", false, "stop all effects instead of the background track")
	stopCmd.Flags().StringVar(&stopKey, "key", "", "stop a single effect by key")
	stopCmd.Flags().BoolVar(&stopAllFlag, "all", false, "stop the background track and all effects")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	c := newClient()
	ctx := cmd.Context()

	switch {
	case stopAllFlag:
		if err := c.stopAll(ctx); err != nil {
			return err
		}
	case stopKey != "":
		if err := c.stopEffects(ctx, stopKey); err != nil {
			return err
		}
	case stopEffects:
		if err := c.stopEffects(ctx, ""); err != nil {
			return err
		}
	default:
		if err := c.stopBackground(ctx, stopFade); err != nil {
			return err
		}
	}

	if !JSONOutput() {
		fmt.Println("■ Stopped")
	}
	return nil
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the background track",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().pause(cmd.Context()); err != nil {
			return err
		}
		if !JSONOutput() {
			fmt.Println("⏸ Paused")
		}
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the background track",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().resume(cmd.Context()); err != nil {
			return err
		}
		if !JSONOutput() {
			fmt.Println("▶ Resumed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
}

var volumeCmd = &cobra.Command{
	Use:   "volume [level]",
	Short: "Get or set the engine volume",
	Long: `Without an argument, print the current volume. With one, set it.
Levels are 0.0-1.0; a trailing % reads as a percentage.

Examples:
  backdrop volume        # show current volume
  backdrop volume 0.5    # half volume
  backdrop volume 80%    # eighty percent`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVolume,
}

func init() {
	rootCmd.AddCommand(volumeCmd)
}

func runVolume(cmd *cobra.Command, args []string) error {
	c := newClient()
	ctx := cmd.Context()

	if len(args) == 0 {
		st, err := c.status(ctx)
		if err != nil {
			return err
		}
		printLevel("volume", st.Volume)
		return nil
	}

	level, err := parseLevel(args[0])
	if err != nil {
		return err
	}
	v, err := c.setVolume(ctx, level)
	if err != nil {
		return err
	}
	printLevel("volume", v)
	return nil
}

// parseLevel accepts "0.5" or "50%".
func parseLevel(s string) (float64, error) {
	if n := len(s); n > 0 && s[n-1] == '%' {
		pct, err := strconv.ParseFloat(s[:n-1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid volume '%s'", s)
		}
		return pct / 100, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume '%s'", s)
	}
	return v, nil
}

func printLevel(name string, v float64) {
	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]float64{name: v})
		return
	}
	fmt.Printf("%s: %.0f%%\n", name, v*100)
}

var seekCmd = &cobra.Command{
	Use:   "seek <seconds>",
	Short: "Seek within the background track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secs, err := strconv.ParseFloat(args[0], 64)
		if err != nil || secs < 0 {
			return fmt.Errorf("invalid position '%s'", args[0])
		}
		pos, err := newClient().seek(cmd.Context(), secs)
		if err != nil {
			return err
		}
		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode(map[string]float64{"position": pos})
		}
		fmt.Printf("position: %s\n", FormatDuration(int(pos)))
		return nil
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate <multiplier>",
	Short: "Set the playback rate",
	Long: `Set the background track's playback rate. Accepted rates run from
0.25x to 4.0x; anything outside that range is ignored and the rate in
effect is reported back.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid rate '%s'", args[0])
		}
		applied, err := newClient().setRate(cmd.Context(), r)
		if err != nil {
			return err
		}
		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode(map[string]float64{"rate": applied})
		}
		fmt.Printf("rate: %.2fx\n", applied)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seekCmd)
	rootCmd.AddCommand(rateCmd)
}
