package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show playback status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := newClient().status(cmd.Context())
	if err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(st)
	}

	if !st.HasTrack() {
		fmt.Println("Nothing playing")
		if st.Effects > 0 {
			fmt.Printf("Effects: %d\n", st.Effects)
		}
		return nil
	}

	fmt.Printf("%s %s\n", StatusIcon(st.IsPlaying), st.Track.DisplayName())

	pos := FormatDuration(int(st.Position.Seconds()))
	dur := FormatDuration(int(st.Duration.Seconds()))
	fmt.Printf("  %s %s / %s\n", FormatProgress(int(st.Position.Seconds()), int(st.Duration.Seconds()), 24), pos, dur)

	fmt.Printf("  volume: %.0f%%", st.Volume*100)
	if st.Rate != 0 && st.Rate != 1 {
		fmt.Printf("  rate: %.2fx", st.Rate)
	}
	if st.Effects > 0 {
		fmt.Printf("  effects: %d", st.Effects)
	}
	fmt.Println()

	if Verbose() {
		fmt.Printf("  path:   %s\n", st.Track.Path)
		fmt.Printf("  loop:   %v\n", st.Track.Looping())
		if st.Track.HasEnd() {
			fmt.Printf("  range:  %s - %s\n",
				FormatDuration(int(st.Track.Start.Seconds())),
				FormatDuration(int(st.Track.End.Seconds())))
		}
	}
	return nil
}
