package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Server status",
	RunE:  runStatusCmd,
}

var statusRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show the status of a rule run",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatusRun,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent events",
	RunE:  runEventsCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.AddCommand(statusRunCmd)
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().IntP("limit", "n", 25, "Number of events to show")
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("status fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(status)
		return nil
	}

	fmt.Printf("Server:      %s\n", serverURL)
	fmt.Printf("Version:     %s\n", status.Version)
	fmt.Printf("Protection:  %t\n", status.Protection)
	fmt.Printf("Redownload:  %t\n", status.Redownload)
	return nil
}

func runStatusRun(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	run, err := client.Run(args[0])
	if err != nil {
		return fmt.Errorf("run fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(run)
		return nil
	}

	fmt.Printf("Run:      %s\n", run.RunID)
	fmt.Printf("Rule:     %d\n", run.RuleID)
	fmt.Printf("State:    %s\n", run.State)
	if run.DryRun {
		fmt.Println("Dry run:  yes")
	}
	if run.Result != nil {
		fmt.Printf("Matched:  %d\n", run.Result.Matched)
		fmt.Printf("Queued:   %d\n", run.Result.Queued)
		fmt.Printf("Errors:   %d\n", run.Result.Errors)
	}
	if run.Error != "" {
		fmt.Printf("Error:    %s\n", run.Error)
	}
	return nil
}

func runEventsCmd(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	client := NewClient(serverURL)
	events, err := client.Events(limit)
	if err != nil {
		return fmt.Errorf("events fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(events)
		return nil
	}

	if len(events.Items) == 0 {
		fmt.Println("No events")
		return nil
	}
	for _, e := range events.Items {
		fmt.Printf("  %s  %-24s %s/%d\n", e.OccurredAt, e.EventType, e.EntityType, e.EntityID)
	}
	return nil
}
