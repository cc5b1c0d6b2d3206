package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soundbed/backdrop/internal/engine"
	"github.com/soundbed/backdrop/internal/logging"
	"github.com/soundbed/backdrop/internal/media"
	"github.com/soundbed/backdrop/internal/resolver"
	"github.com/soundbed/backdrop/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the playback daemon",
	Long: `Start the backdrop daemon: open the audio device, load the track
library, and serve the HTTP control API until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Options{Level: level, File: cfg.Log.File})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	var vault resolver.Vault
	if cfg.Library.Root != "" {
		vault = resolver.NewDirVault(cfg.Library.Root)
	}
	res := resolver.New(vault, cfg.Library.BaseURL, log.Named("resolver"))

	eng := engine.New(engine.Options{
		Opener:   media.NewBeepOpener(log.Named("media")),
		Resolver: res,
		Volume:   cfg.Playback.Volume,
		Logger:   log.Named("engine"),
	})
	defer eng.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	srv := server.New(eng, cfg, log.Named("server"))
	if err := srv.Run(ctx, configSource()); err != nil {
		log.Error("server exited", zap.Error(err))
		return err
	}
	return nil
}

// configSource returns the path of the config file in use, for hot
// reload. Empty when running on built-in defaults.
func configSource() string {
	if cfgFile != "" {
		return cfgFile
	}
	return cfg.Source()
}
