package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/avsessiond/internal/config"
	"github.com/jmylchreest/avsessiond/internal/dbus"
	"github.com/jmylchreest/avsessiond/internal/mapper"
)

var validateOpts requestFlags

var configOpts struct {
	force bool
}

var emitCmd = &cobra.Command{
	Use:   "emit <routeChange[:port]|interruption|mediaServicesReset>",
	Short: "Inject a service event into the daemon",
	Long: `Emit asks the daemon's audio backend to raise an event as if the hardware had
produced it. Only the simulated backend supports this; it is meant for
exercising automatic reapplication.

A route change may name the new output port, as in "routeChange:headphones".
The backend moves its output route there before notifying.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"routeChange", "interruption", "mediaServicesReset"},
	RunE:      runEmit,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Resolve a request locally without contacting the daemon",
	Long: `Validate maps a request to a session configuration, applying defaults, and
prints the result. Nothing is sent to the daemon. Hardware checks such as
whether a data source exists happen only when the daemon applies it.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print daemon signals as they arrive",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the avsession configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), configFilePath())
	},
}

func init() {
	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	validateOpts.register(validateCmd.Flags())
	configInitCmd.Flags().BoolVar(&configOpts.force, "force", false,
		"Overwrite an existing file")
}

func runEmit(cmd *cobra.Command, args []string) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.InjectEvent(context.Background(), args[0]); err != nil {
		if errors.Is(err, dbus.ErrNotSupported) {
			return fmt.Errorf("the daemon's audio backend does not accept injected events")
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Injected %s\n", args[0])
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	req, err := validateOpts.build(cmd)
	if err != nil {
		return err
	}
	resolved, err := mapper.Resolve(req)
	if err != nil {
		return err
	}

	if globalOpts.json {
		return printJSON(cmd.OutOrStdout(), resolved.Request())
	}
	fmt.Fprint(cmd.OutOrStdout(), newRenderer(cfg.Output.Color, cfg.Output.TimeFormat).config(resolved))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	r := newRenderer(cfg.Output.Color, cfg.Output.TimeFormat)
	out := cmd.OutOrStdout()

	monitor := dbus.NewSignalMonitor(logger)
	monitor.SetHandler(func(ev dbus.SignalEvent) {
		if globalOpts.json {
			_ = printJSON(out, ev)
			return
		}
		fmt.Fprintln(out, r.signal(ev))
	})
	if err := monitor.Start(); err != nil {
		return err
	}
	defer func() { _ = monitor.Stop() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-monitor.Done():
		return fmt.Errorf("session bus connection closed")
	}
	return nil
}

func configFilePath() string {
	if globalOpts.configPath != "" {
		return globalOpts.configPath
	}
	return config.ConfigPath()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFilePath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if _, err := os.Stat(path); err == nil && !configOpts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
