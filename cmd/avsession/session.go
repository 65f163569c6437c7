package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var activeCmd = &cobra.Command{
	Use:       "active on|off",
	Short:     "Activate or deactivate the session",
	Long:      `Active changes the activation state only. The desired configuration is not modified.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runActive,
}

var enforceCmd = &cobra.Command{
	Use:   "enforce on|off|status",
	Short: "Control automatic reapplication",
	Long: `Enforce controls whether the daemon reapplies the desired configuration
after route changes, interruptions and media services resets.

Enabling it also reapplies the desired configuration immediately.

Exit codes for status: 0 = enabled, 1 = disabled.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "status"},
	RunE:      runEnforce,
}

func init() {
	rootCmd.AddCommand(activeCmd)
	rootCmd.AddCommand(enforceCmd)
}

// parseSwitch accepts the usual spellings of on and off.
func parseSwitch(s string) (bool, error) {
	switch s {
	case "on", "true", "yes", "1", "enable":
		return true, nil
	case "off", "false", "no", "0", "disable":
		return false, nil
	default:
		return false, fmt.Errorf("invalid value %q, must be on or off", s)
	}
}

func runActive(cmd *cobra.Command, args []string) error {
	active, err := parseSwitch(args[0])
	if err != nil {
		return err
	}

	client, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.SetActive(context.Background(), active); err != nil {
		return err
	}
	if active {
		fmt.Fprintln(cmd.OutOrStdout(), "Session activated")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Session deactivated")
	}
	return nil
}

func runEnforce(cmd *cobra.Command, args []string) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	ctx := context.Background()

	if args[0] == "status" {
		status, err := client.GetStatus(ctx)
		if err != nil {
			return err
		}
		if globalOpts.json {
			if err := printJSON(cmd.OutOrStdout(), map[string]bool{"autoReapply": status.AutoReapply}); err != nil {
				return err
			}
		} else if status.AutoReapply {
			fmt.Fprintln(cmd.OutOrStdout(), "Auto-reapply: enabled")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Auto-reapply: disabled")
		}
		if !status.AutoReapply {
			os.Exit(1)
		}
		return nil
	}

	enable, err := parseSwitch(args[0])
	if err != nil {
		return err
	}
	if !enable {
		if err := client.DisableAutoReapply(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Auto-reapply disabled")
		return nil
	}

	// The daemon keeps the flag on even when the immediate reapply fails.
	if err := client.EnableAutoReapply(ctx); err != nil {
		return fmt.Errorf("auto-reapply enabled, but reapplying failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Auto-reapply enabled")
	return nil
}
