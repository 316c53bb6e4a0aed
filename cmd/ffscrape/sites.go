package main

import (
	"errors"
	"fmt"

	"github.com/pevans/ffscrape/sites"
	"github.com/spf13/cobra"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the supported sites",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, site := range sites.Default(sites.Options{}).Sites() {
			fmt.Fprintln(cmd.OutOrStdout(), site.Name())
		}
	},
}

var correctCmd = &cobra.Command{
	Use:   "correct <url>...",
	Short: "Print the canonical story URL for each URL without fetching anything",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCorrect,
}

func init() {
	rootCmd.AddCommand(sitesCmd, correctCmd)
}

func runCorrect(cmd *cobra.Command, args []string) error {
	registry := sites.Default(sites.Options{})
	out := cmd.OutOrStdout()

	var failed bool
	for _, url := range args {
		corrected, err := correctURL(registry, url)
		if err != nil {
			failed = true
			fmt.Fprintf(out, "✗ %s: %v\n", url, err)
			continue
		}
		fmt.Fprintln(out, corrected)
	}

	if failed {
		return errors.New("some URLs could not be corrected")
	}
	return nil
}

func correctURL(registry *sites.Registry, url string) (string, error) {
	site, err := registry.Select(url)
	if err != nil {
		return "", err
	}
	return site.CorrectURL(url)
}
