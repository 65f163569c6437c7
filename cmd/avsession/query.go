package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/avsessiond/internal/store"
)

var historyOpts struct {
	limit   int
	failed  bool
	trigger string
	since   time.Duration
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the actual session state",
	Long: `State reads the audio service's current session state through the daemon.
Values the service cannot report are shown as "unknown".`,
	Args: cobra.NoArgs,
	RunE: runState,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the desired configuration and enforcement status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent reconciliation attempts",
	Long: `History lists the daemon's reconciliation attempts, newest first.

Each entry records what triggered the attempt (set, temporaryOverride,
enableAutoReapply, routeChange, interruption, mediaServicesReset,
overrideExpired), the desired revision and whether applying it succeeded.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", -1,
		"Maximum entries to show (0 = all; default from config)")
	historyCmd.Flags().BoolVar(&historyOpts.failed, "failed", false,
		"Only show failed attempts")
	historyCmd.Flags().StringVar(&historyOpts.trigger, "trigger", "",
		"Only show attempts with this trigger (e.g. routeChange)")
	historyCmd.Flags().DurationVar(&historyOpts.since, "since", 0,
		"Only show attempts newer than this (e.g. 1h)")
}

func runState(cmd *cobra.Command, args []string) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	snapshot, err := client.GetState(context.Background())
	if err != nil {
		return err
	}

	if globalOpts.json {
		return printJSON(cmd.OutOrStdout(), snapshot)
	}
	fmt.Fprint(cmd.OutOrStdout(), newRenderer(cfg.Output.Color, cfg.Output.TimeFormat).snapshot(snapshot))
	return nil
}

// statusJSON is the JSON shape of the status command.
type statusJSON struct {
	AutoReapply bool   `json:"autoReapply"`
	HasDesired  bool   `json:"hasDesired"`
	Revision    string `json:"revision,omitempty"`
	AcceptedAt  string `json:"acceptedAt,omitempty"`
	Desired     any    `json:"desired,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	status, err := client.GetStatus(context.Background())
	if err != nil {
		return err
	}

	if globalOpts.json {
		out := statusJSON{AutoReapply: status.AutoReapply, HasDesired: status.HasDesired}
		if status.HasDesired {
			out.Revision = status.Revision
			out.AcceptedAt = status.AcceptedAt.Format("2006-01-02T15:04:05.000Z07:00")
			out.Desired = status.Desired
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
	fmt.Fprint(cmd.OutOrStdout(), newRenderer(cfg.Output.Color, cfg.Output.TimeFormat).status(status))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit := historyOpts.limit
	if limit < 0 {
		limit = cfg.History.Limit
	}

	client, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	opts := store.FilterOptions{
		Since:      historyOpts.since,
		Trigger:    historyOpts.trigger,
		FailedOnly: historyOpts.failed,
		Limit:      limit,
	}

	// Filtering happens locally, so fetch everything unless only the limit applies.
	fetch := limit
	if opts.Since > 0 || opts.Trigger != "" || opts.FailedOnly {
		fetch = 0
	}
	entries, err := client.GetHistory(context.Background(), fetch)
	if err != nil {
		return err
	}
	entries = store.FilterEntries(entries, opts)

	if globalOpts.json {
		return printJSON(cmd.OutOrStdout(), entries)
	}
	fmt.Fprint(cmd.OutOrStdout(), newRenderer(cfg.Output.Color, cfg.Output.TimeFormat).history(entries))
	return nil
}
