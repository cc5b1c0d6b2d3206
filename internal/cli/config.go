package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for viewing and checking backdrop configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after defaults and environment overrides.`,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		src := configSource()
		if src == "" {
			fmt.Println("(no config file; using defaults)")
			return nil
		}
		fmt.Println(src)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// PersistentPreRunE already loaded and validated; reaching here
		// means the config is sound.
		fmt.Printf("Config OK (%d tracks, %d rules)\n", len(cfg.Tracks), len(cfg.Rules))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(cfg)
	}

	fmt.Println("Playback:")
	fmt.Printf("  volume:      %.0f%%\n", cfg.Playback.Volume*100)
	fmt.Printf("  fade in:     %dms\n", cfg.Playback.FadeInMS)
	fmt.Printf("  fade out:    %dms\n", cfg.Playback.FadeOutMS)

	fmt.Println("Library:")
	fmt.Printf("  root:        %s\n", orNone(cfg.Library.Root))
	fmt.Printf("  base url:    %s\n", orNone(cfg.Library.BaseURL))

	fmt.Println("Server:")
	fmt.Printf("  addr:        %s\n", cfg.Server.Addr)

	fmt.Println("Log:")
	fmt.Printf("  level:       %s\n", cfg.Log.Level)
	fmt.Printf("  file:        %s\n", orNone(cfg.Log.File))

	fmt.Printf("Tracks: %d  Rules: %d\n", len(cfg.Tracks), len(cfg.Rules))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
