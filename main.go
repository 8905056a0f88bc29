package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/soocke/lipread-go/app"
	"github.com/soocke/lipread-go/config"
)

var (
	cfgPath   string
	debugMode bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lipread",
		Short: "Lip reading overlay with translation and speech",
		Long: `lipread samples the screen on a timer, finds faces, reads lips through a
recognition service, translates the text and speaks it.

Without a subcommand the Tk overlay window opens.`,
		SilenceUsage: true,
		RunE:         runOverlay,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.json", "config file (.json, .yaml, .toml)")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "debug logging and runtime stats")
	root.AddCommand(newHeadlessCmd(), newVideoCmd(), newVoicesCmd(), newHistoryCmd(), newHealthCmd())
	return root
}

// setup loads .env, the config file and environment overrides, then builds
// the logger.
func setup() (*config.Config, *slog.Logger, func(), error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg.ApplyEnv()
	if debugMode {
		cfg.Debug = true
	}
	_ = cfg.Validate()
	logger, flush, err := NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, flush, nil
}

func runOverlay(cmd *cobra.Command, args []string) error {
	cfg, logger, flush, err := setup()
	if err != nil {
		return err
	}
	defer flush()
	c, err := app.BuildContainer(cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	application := app.NewApp("Lip Reader", 960, 760, c, cfgPath)
	application.Start()
	return nil
}
