package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var setOpts requestFlags

var overrideOpts struct {
	requestFlags
	restoreAfter time.Duration
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the desired session configuration",
	Long: `Set replaces the desired configuration enforced by the daemon and applies it.

Values may come from a YAML or JSON file (--file) and from flags; flags win.

Examples:
  avsession set --category playAndRecord --mode videoRecording --option defaultToSpeaker
  avsession set --category record --preferred-input builtInMic --data-source front --polar-pattern stereo
  avsession set -f ~/.config/avsession/recording.yaml --sample-rate 48000`,
	Args: cobra.NoArgs,
	RunE: runSet,
}

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Apply a configuration temporarily",
	Long: `Override applies a configuration without changing the desired one.

With --restore-after the daemon reapplies the desired configuration once the
delay has elapsed, unless a new configuration was set in the meantime.

Examples:
  avsession override --category playback --restore-after 30s`,
	Args: cobra.NoArgs,
	RunE: runOverride,
}

func init() {
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(overrideCmd)

	setOpts.register(setCmd.Flags())
	overrideOpts.register(overrideCmd.Flags())
	overrideCmd.Flags().DurationVar(&overrideOpts.restoreAfter, "restore-after", 0,
		"Reapply the desired configuration after this delay (0 = never)")
}

func runSet(cmd *cobra.Command, args []string) error {
	req, err := setOpts.build(cmd)
	if err != nil {
		return err
	}

	client, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	revision, err := client.Set(context.Background(), req)
	if err != nil {
		return err
	}

	if globalOpts.json {
		return printJSON(cmd.OutOrStdout(), map[string]string{"revision": revision})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Desired configuration set (revision %s)\n", revision)
	return nil
}

func runOverride(cmd *cobra.Command, args []string) error {
	if overrideOpts.restoreAfter < 0 {
		return fmt.Errorf("--restore-after must not be negative")
	}
	req, err := overrideOpts.build(cmd)
	if err != nil {
		return err
	}

	client, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.TemporaryOverride(context.Background(), req, overrideOpts.restoreAfter); err != nil {
		return err
	}

	if overrideOpts.restoreAfter > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Override applied, restoring in %s\n", overrideOpts.restoreAfter)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Override applied")
	}
	return nil
}
