package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/avsessiond/internal/config"
	"github.com/jmylchreest/avsessiond/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		busName    string
		json       bool
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "avsession",
	Short: "Control the avsessiond audio session daemon",
	Long: `avsession talks to a running avsessiond over the session bus.

It sets the desired audio session configuration, applies temporary
overrides, toggles automatic reapplication and shows the session state
and the reconciliation history.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !cmd.Flags().Changed("json") {
			globalOpts.json = cfg.Output.JSON
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describeError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/avsession/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.busName, "bus-name", dbus.BusName,
		"Well-known bus name of the daemon")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.json, "json", false,
		"Print JSON instead of text")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// dial connects to the daemon using the configured timeout.
func dial() (*dbus.Client, error) {
	client, err := dbus.Dial(globalOpts.busName, cfg.Bus.Timeout.Duration())
	if err != nil {
		return nil, err
	}
	logger.Debug("connected to session bus", "bus_name", globalOpts.busName)
	return client, nil
}
