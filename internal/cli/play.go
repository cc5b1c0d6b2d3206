package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundbed/backdrop/internal/core"
)

var (
	playName      string
	playVolume    float64
	playNoLoop    bool
	playFadeIn    time.Duration
	playFadeOut   time.Duration
	playStart     float64
	playEnd       float64
	playLoopStart float64
	playLoopEnd   float64
	playLoopRange bool
	playRate      float64
)

var playCmd = &cobra.Command{
	Use:   "play <preset|path>",
	Short: "Play a background track",
	Long: `Play a track in the exclusive background slot, replacing whatever
is playing there. The argument is a preset name from the config, a file
path, or a URL.

Examples:
  backdrop play rain              # play the "rain" preset
  backdrop play ~/music/lofi.mp3  # play a file directly
  backdrop play storm --fade-in 2s --volume 0.4
  backdrop play theme --start 4.5 --end 62 --loop-range`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playName, "name", "", "display name for the track")
	playCmd.Flags().Float64Var(&playVolume, "volume", 0, "track volume 0.0-1.0 (default: engine volume)")
	playCmd.Flags().BoolVar(&playNoLoop, "no-loop", false, "stop at the end instead of looping")
	playCmd.Flags().DurationVar(&playFadeIn, "fade-in", 0, "fade-in duration")
	playCmd.Flags().DurationVar(&playFadeOut, "fade-out", 0, "fade-out duration")
	playCmd.Flags().Float64Var(&playStart, "start", 0, "start position in seconds")
	playCmd.Flags().Float64Var(&playEnd, "end", 0, "end boundary in seconds")
	playCmd.Flags().Float64Var(&playLoopStart, "loop-start", 0, "loop-back position in seconds")
	playCmd.Flags().Float64Var(&playLoopEnd, "loop-end", 0, "loop end boundary in seconds")
	playCmd.Flags().BoolVar(&playLoopRange, "loop-range", false, "apply start/end range when looping")
	playCmd.Flags().Float64Var(&playRate, "rate", 0, "playback rate (0.25-4.0)")
	rootCmd.AddCommand(playCmd)
}

// buildRequest turns the positional argument plus flags into a play
// request. A bare name with no path-shaping flags is sent as a preset
// so the daemon can expand it; anything else becomes a full descriptor.
func buildRequest(ref string) playRequest {
	flagged := playName != "" || playVolume != 0 || playNoLoop ||
		playFadeIn != 0 || playFadeOut != 0 ||
		playStart != 0 || playEnd != 0 ||
		playLoopStart != 0 || playLoopEnd != 0 || playLoopRange ||
		playRate != 0

	if !flagged && cfg.Track(ref) != nil {
		return playRequest{Preset: ref}
	}

	desc := &core.Descriptor{
		Path:             ref,
		Name:             playName,
		Volume:           playVolume,
		FadeIn:           playFadeIn,
		FadeOut:          playFadeOut,
		Start:            secondsToDuration(playStart),
		End:              secondsToDuration(playEnd),
		LoopStart:        secondsToDuration(playLoopStart),
		LoopEnd:          secondsToDuration(playLoopEnd),
		ApplyRangeToLoop: playLoopRange,
		Rate:             playRate,
		Source:           "cli",
	}
	if playNoLoop {
		loop := false
		desc.Loop = &loop
	}
	if t := cfg.Track(ref); t != nil {
		// Preset plus overrides: expand the preset locally, then layer
		// the flags on top.
		base := cfg.Descriptor(t)
		merged := mergeDescriptor(base, desc)
		desc = &merged
	}
	return playRequest{Descriptor: desc}
}

// mergeDescriptor overlays flag-set fields onto a preset descriptor.
func mergeDescriptor(base core.Descriptor, over *core.Descriptor) core.Descriptor {
	if over.Name != "" {
		base.Name = over.Name
	}
	if over.Volume != 0 {
		base.Volume = over.Volume
	}
	if over.Loop != nil {
		base.Loop = over.Loop
	}
	if over.FadeIn != 0 {
		base.FadeIn = over.FadeIn
	}
	if over.FadeOut != 0 {
		base.FadeOut = over.FadeOut
	}
	if over.Start != 0 {
		base.Start = over.Start
	}
	if over.End != 0 {
		base.End = over.End
	}
	if over.LoopStart != 0 {
		base.LoopStart = over.LoopStart
	}
	if over.LoopEnd != 0 {
		base.LoopEnd = over.LoopEnd
	}
	if over.ApplyRangeToLoop {
		base.ApplyRangeToLoop = true
	}
	if over.Rate != 0 {
		base.Rate = over.Rate
	}
	base.Source = over.Source
	return base
}

func runPlay(cmd *cobra.Command, args []string) error {
	resp, err := newClient().playBackground(cmd.Context(), buildRequest(args[0]))
	if err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}
	fmt.Printf("▶ Playing: %s\n", resp["track"])
	return nil
}

var triggerCmd = &cobra.Command{
	Use:   "trigger <context>",
	Short: "Play whatever the rules match for a context",
	Long: `Run the configured rules against a context string (a file path, a
view name) and play the first matching track. No match is not an error.

Example:
  backdrop trigger src/parser/lexer.go`,
	Args: cobra.ExactArgs(1),
	RunE: runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}

func runTrigger(cmd *cobra.Command, args []string) error {
	resp, err := newClient().trigger(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}
	if resp["status"] == "no_match" {
		fmt.Println("No rule matched")
		return nil
	}
	fmt.Printf("▶ Playing: %s\n", resp["track"])
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
