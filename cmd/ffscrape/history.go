package main

import (
	"encoding/json"
	"fmt"

	"github.com/pevans/ffscrape/history"
	"github.com/spf13/cobra"
)

var (
	flagHistoryOutcome string
	flagHistorySite    string
	flagHistoryLimit   int
	flagHistoryOffset  int
	flagHistoryFormat  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past scrape attempts, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&flagHistoryOutcome, "outcome", "", "Only show done, not_found or failed")
	historyCmd.Flags().StringVar(&flagHistorySite, "site", "", "Only show one site, e.g. \"Archive of Our Own\"")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Maximum records to show (0 for all)")
	historyCmd.Flags().IntVar(&flagHistoryOffset, "offset", 0, "Records to skip")
	historyCmd.Flags().StringVar(&flagHistoryFormat, "format", "table", "Output format: table or json")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	switch flagHistoryOutcome {
	case "", "done", "not_found", "failed":
	default:
		return history.ErrInvalidOutcome
	}

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.History.List(history.Filter{
		Outcome: flagHistoryOutcome,
		Site:    flagHistorySite,
		Limit:   flagHistoryLimit,
		Offset:  flagHistoryOffset,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagHistoryFormat == "json" {
		data, err := json.MarshalIndent(map[string]any{
			"scrapes": entries,
			"total":   len(entries),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	counts, err := a.History.Counts()
	if err != nil {
		return err
	}
	printHistory(out, entries, counts)
	return nil
}
