package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage cleanup rules",
	RunE:  runRulesList,
}

var rulesPreviewCmd = &cobra.Command{
	Use:   "preview <rule-id>",
	Short: "Show what a rule would match, with no side effects",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesPreview,
}

var rulesRunCmd = &cobra.Command{
	Use:   "run <rule-id>",
	Short: "Run a rule now",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesRun,
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <rule-id>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesDelete,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesPreviewCmd)
	rulesCmd.AddCommand(rulesRunCmd)
	rulesCmd.AddCommand(rulesDeleteCmd)

	rulesRunCmd.Flags().Bool("dry-run", false, "Queue nothing, report what would happen")
}

func runRulesList(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	rules, err := client.Rules()
	if err != nil {
		return fmt.Errorf("rules fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(rules)
		return nil
	}

	if len(rules.Items) == 0 {
		fmt.Println("No rules configured")
		return nil
	}

	fmt.Printf("Rules (%d):\n\n", rules.Total)
	fmt.Printf("  %-4s %-30s %-8s %-8s %-6s %s\n", "ID", "NAME", "KIND", "ACTIVE", "PRIO", "LAST MATCHED")
	fmt.Println("  " + strings.Repeat("-", 72))
	for _, r := range rules.Items {
		name := r.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		fmt.Printf("  %-4d %-30s %-8s %-8t %-6d %d\n", r.ID, name, r.Kind, r.Active, r.Priority, r.LastMatchCount)
	}
	return nil
}

func runRulesPreview(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rule id: %s", args[0])
	}

	client := NewClient(serverURL)
	preview, err := client.PreviewRule(id)
	if err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}

	if jsonOutput {
		printJSON(preview)
		return nil
	}

	fmt.Printf("Rule %d matches %d item(s):\n", id, preview.Matched)
	for _, it := range preview.Items {
		fmt.Printf("  %-8d %-8s %s\n", it.ID, it.Kind, it.Title)
	}
	return nil
}

func runRulesRun(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rule id: %s", args[0])
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	client := NewClient(serverURL)
	run, err := client.RunRule(id, dryRun)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if jsonOutput {
		printJSON(run)
		return nil
	}
	fmt.Printf("Run accepted: %s\n", run.RunID)
	fmt.Printf("Poll with: prunarr status run %s\n", run.RunID)
	return nil
}

func runRulesDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rule id: %s", args[0])
	}

	client := NewClient(serverURL)
	if err := client.delete(fmt.Sprintf("/api/v1/rules/%d", id)); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Printf("Rule %d deleted\n", id)
	return nil
}
