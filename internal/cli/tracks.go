package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "List configured track presets",
	RunE:  runTracks,
}

func init() {
	rootCmd.AddCommand(tracksCmd)
}

func runTracks(cmd *cobra.Command, args []string) error {
	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(cfg.Tracks)
	}

	if len(cfg.Tracks) == 0 {
		fmt.Println("No track presets configured")
		return nil
	}

	t := NewTable("NAME", "PATH", "LOOP", "VOLUME")
	for _, tc := range cfg.Tracks {
		loop := "yes"
		if tc.Loop != nil && !*tc.Loop {
			loop = "no"
		}
		vol := "default"
		if tc.Volume > 0 {
			vol = fmt.Sprintf("%.0f%%", tc.Volume*100)
		}
		t.Row(tc.Name, tc.Path, loop, vol)
	}
	t.Flush()
	return nil
}
