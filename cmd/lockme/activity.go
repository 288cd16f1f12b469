package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent encrypt/decrypt operations",
	Long: `Activity lists recent operations from the local activity store.
Only operation kind and outcome are recorded; never passphrases,
keys, or file contents.`,
	Args: cobra.NoArgs,
	RunE: runActivity,
}

var activityLimit int

func init() {
	rootCmd.AddCommand(activityCmd)

	activityCmd.Flags().IntVarP(&activityLimit, "limit", "n", 20,
		"Maximum entries to show")
}

func runActivity(cmd *cobra.Command, args []string) error {
	records, err := app.Audit.List(context.Background(), activityLimit)
	if err != nil {
		return fmt.Errorf("list activity: %w", err)
	}

	if jsonOutput {
		printJSON(records)
		return nil
	}

	if len(records) == 0 {
		printInfo("No recorded activity")
		return nil
	}

	for _, rec := range records {
		line := fmt.Sprintf("%s  %-7s %-10s %s",
			rec.Time.Local().Format("2006-01-02 15:04:05"),
			rec.Kind, rec.Outcome, rec.Name)
		if rec.Error != "" {
			line += fmt.Sprintf(" (%s)", rec.Error)
		}
		fmt.Println(line)
	}

	return nil
}
