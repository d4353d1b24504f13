package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var protectCmd = &cobra.Command{
	Use:   "protect",
	Short: "Show episode protection windows",
	RunE:  runProtectList,
}

var protectRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Recompute protection windows now",
	RunE:  runProtectRun,
}

func init() {
	rootCmd.AddCommand(protectCmd)
	protectCmd.AddCommand(protectRunCmd)

	protectRunCmd.Flags().Bool("dry-run", false, "Compute without persisting")
}

func runProtectList(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	prots, err := client.Protections()
	if err != nil {
		return fmt.Errorf("protection fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(prots)
		return nil
	}

	if len(prots) == 0 {
		fmt.Println("No protection windows")
		return nil
	}

	fmt.Printf("Protected shows (%d):\n\n", len(prots))
	fmt.Printf("  %-10s %-8s %-10s %s\n", "SHOW", "FLOOR", "ELIGIBLE", "VIEWERS")
	fmt.Println("  " + strings.Repeat("-", 56))
	for _, p := range prots {
		viewers := make([]string, 0, len(p.Viewers))
		for _, v := range p.Viewers {
			viewers = append(viewers, fmt.Sprintf("%s@%d(%.2f/d)", v.ViewerID, v.Position, v.Velocity))
		}
		fmt.Printf("  %-10d %-8d %-10d %s\n", p.ShowID, p.Floor, p.EligibleThrough, strings.Join(viewers, ", "))
	}
	return nil
}

func runProtectRun(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	client := NewClient(serverURL)
	summary, err := client.RunProtection(dryRun)
	if err != nil {
		return fmt.Errorf("protection run failed: %w", err)
	}

	printJSON(summary)
	return nil
}
