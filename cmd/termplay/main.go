// Package main is the entry point for termplay, a terminal music player for a
// single directory of audio files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/austinkregel/local-media/termplay/internal/app"
	"github.com/austinkregel/local-media/termplay/internal/config"
	"github.com/austinkregel/local-media/termplay/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

type cli struct {
	configPath string
	socket     string
	noColor    bool
	jsonOut    bool

	manager *config.Manager
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	var play playFlags

	root := &cobra.Command{
		Use:           "termplay [dir]",
		Short:         "Play a directory of music in the terminal",
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.manager.Get()
			if len(args) == 1 {
				cfg.Library.Dir = args[0]
			}
			if err := play.apply(cmd, cfg); err != nil {
				return err
			}
			return runPlayer(cmd.Context(), cfg)
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable color in command output")
	root.PersistentFlags().BoolVarP(&c.jsonOut, "json", "j", false, "output json")
	root.PersistentFlags().StringVar(&c.socket, "socket", "", "control socket path")
	play.register(root)

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if c.noColor {
			pterm.DisableColor()
		}
		c.manager = config.NewManager(c.configPath)
		if err := c.manager.Load(); err != nil {
			return err
		}
		if c.socket != "" {
			c.manager.Get().Control.Socket = c.socket
		}
		return nil
	}

	root.AddCommand(scanCommand(c))
	root.AddCommand(tagsCommand(c))
	root.AddCommand(ctlCommand(c))
	root.AddCommand(configCommand(c))

	return root
}

func runPlayer(ctx context.Context, cfg *config.Config) error {
	if cfg.Library.Dir == "" {
		cfg.Library.Dir = "."
	}

	log, closeLog, err := logging.New(logging.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer closeLog()
	log.Info("termplay starting", zap.String("dir", cfg.Library.Dir))

	// Create context that cancels on interrupt signals
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, log); err != nil {
		log.Error("exiting with error", zap.Error(err))
		return err
	}
	log.Info("termplay exiting")
	return nil
}

// playFlags override config values for the player
type playFlags struct {
	protocol       string
	volume         float64
	skipSeconds    int
	noAutoAdvance  bool
	skipUnplayable bool
	noControl      bool
	noMedia        bool
	logLevel       string
	logFile        string
}

func (f *playFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.protocol, "protocol", "", "artwork protocol: auto, sixel, halfblocks, none")
	flags.Float64Var(&f.volume, "volume", 1.0, "output volume 0.0 - 1.0")
	flags.IntVar(&f.skipSeconds, "skip", 5, "seconds the skip key jumps ahead")
	flags.BoolVar(&f.noAutoAdvance, "no-auto-advance", false, "stop at the end of each track")
	flags.BoolVar(&f.skipUnplayable, "skip-unplayable", false, "step over tracks that fail to decode")
	flags.BoolVar(&f.noControl, "no-control", false, "disable the control socket")
	flags.BoolVar(&f.noMedia, "no-media", false, "disable the OS media session")
	flags.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error, off")
	flags.StringVar(&f.logFile, "log-file", "", "log file path")
}

// apply copies flags the user set onto cfg and revalidates it
func (f *playFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("protocol") {
		cfg.Artwork.Protocol = f.protocol
	}
	if changed("volume") {
		cfg.Audio.Volume = f.volume
	}
	if changed("skip") {
		cfg.Audio.SkipSeconds = f.skipSeconds
	}
	if changed("no-auto-advance") {
		cfg.Behavior.AutoAdvance = !f.noAutoAdvance
	}
	if changed("skip-unplayable") {
		cfg.Behavior.SkipUnplayable = f.skipUnplayable
	}
	if changed("no-control") {
		cfg.Control.Enabled = !f.noControl
	}
	if changed("no-media") {
		cfg.Media.Enabled = !f.noMedia
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}
