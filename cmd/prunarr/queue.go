package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the deletion queue",
	RunE:  runQueueList,
}

var queueSaveCmd = &cobra.Command{
	Use:   "save <item-id>",
	Short: "Cancel a pending deletion",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueSave,
}

var queueDeleteNowCmd = &cobra.Command{
	Use:   "delete-now <item-id>",
	Short: "Delete an item immediately, skipping the buffer",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueDeleteNow,
}

var queueExtendCmd = &cobra.Command{
	Use:   "extend <item-id>",
	Short: "Push an item's deletion date forward",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueExtend,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueSaveCmd)
	queueCmd.AddCommand(queueDeleteNowCmd)
	queueCmd.AddCommand(queueExtendCmd)

	queueCmd.Flags().StringP("status", "s", "pending", "Filter by status (pending, completed, cancelled, error); empty for all")
	queueExtendCmd.Flags().IntP("days", "d", 7, "Days to extend by")
}

func runQueueList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")

	client := NewClient(serverURL)
	q, err := client.Queue(status)
	if err != nil {
		return fmt.Errorf("queue fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(q)
		return nil
	}

	if len(q.Items) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}

	fmt.Printf("Queue (%d):\n\n", q.Total)
	fmt.Printf("  %-4s %-36s %-10s %-10s %s\n", "ID", "TITLE", "STATUS", "RULE", "ACTION AT")
	fmt.Println("  " + strings.Repeat("-", 78))
	for _, it := range q.Items {
		title := it.Title
		if len(title) > 36 {
			title = title[:33] + "..."
		}
		rule := "-"
		if it.RuleID != nil {
			rule = strconv.FormatInt(*it.RuleID, 10)
		}
		actionAt := it.ActionAt
		if t, err := time.Parse(time.RFC3339, it.ActionAt); err == nil {
			actionAt = t.Format("2006-01-02 15:04")
		}
		fmt.Printf("  %-4d %-36s %-10s %-10s %s\n", it.ID, title, it.Status, rule, actionAt)
	}
	return nil
}

func runQueueSave(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id: %s", args[0])
	}

	client := NewClient(serverURL)
	it, err := client.SaveItem(id)
	if err != nil {
		return fmt.Errorf("save failed: %w", err)
	}

	if jsonOutput {
		printJSON(it)
		return nil
	}
	fmt.Printf("Saved: %s (item %d, now %s)\n", it.Title, it.ID, it.Status)
	return nil
}

func runQueueDeleteNow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id: %s", args[0])
	}

	client := NewClient(serverURL)
	it, err := client.DeleteNow(id)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if jsonOutput {
		printJSON(it)
		return nil
	}
	fmt.Printf("Deleted: %s (item %d)\n", it.Title, it.ID)
	return nil
}

func runQueueExtend(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id: %s", args[0])
	}
	days, _ := cmd.Flags().GetInt("days")

	client := NewClient(serverURL)
	it, err := client.ExtendItem(id, days)
	if err != nil {
		return fmt.Errorf("extend failed: %w", err)
	}

	if jsonOutput {
		printJSON(it)
		return nil
	}
	fmt.Printf("Extended: %s (item %d, action at %s)\n", it.Title, it.ID, it.ActionAt)
	return nil
}
