package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var effectCmd = &cobra.Command{
	Use:   "effect <preset|path>",
	Short: "Fire a one-shot sound effect",
	Long: `Play a sound effect alongside the background track. Effects run
concurrently and clean up after themselves when they finish.

The same shaping flags as 'play' apply.

Examples:
  backdrop effect chime
  backdrop effect ~/sounds/ding.wav --volume 1.0`,
	Args: cobra.ExactArgs(1),
	RunE: runEffect,
}

func init() {
	effectCmd.Flags().StringVar(&playName, "name", "", "display name for the effect")
	effectCmd.Flags().Float64Var(&playVolume, "volume", 0, "effect volume 0.0-1.0 (default: engine volume)")
	effectCmd.Flags().DurationVar(&playFadeIn, "fade-in", 0, "fade-in duration")
	effectCmd.Flags().Float64Var(&playRate, "rate", 0, "playback rate (0.25-4.0)")
	rootCmd.AddCommand(effectCmd)
}

func runEffect(cmd *cobra.Command, args []string) error {
	req := buildRequest(args[0])
	if req.Descriptor != nil {
		// Effects play once by default.
		loop := false
		req.Descriptor.Loop = &loop
	}

	resp, err := newClient().playEffect(cmd.Context(), req)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}
	fmt.Printf("♪ Effect started (key: %s)\n", resp["key"])
	return nil
}
