package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pevans/ffscrape/export"
	"github.com/spf13/cobra"
)

var (
	flagListFormat string
	flagShowFormat string
	flagShowOutput string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stories in the library",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <story-id>",
	Short: "Print a saved story as Markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <story-id>",
	Short: "Remove a story from the library",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	listCmd.Flags().StringVar(&flagListFormat, "format", "table", "Output format: table, compact or json")
	showCmd.Flags().StringVar(&flagShowFormat, "format", "markdown", "Output format: markdown or json")
	showCmd.Flags().StringVarP(&flagShowOutput, "output", "o", "", "Write to a file instead of stdout")

	rootCmd.AddCommand(listCmd, showCmd, deleteCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	switch flagListFormat {
	case "table", "compact", "json":
	default:
		return fmt.Errorf("invalid --format %q: must be table, compact or json", flagListFormat)
	}

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Library.List()
	if err != nil {
		return err
	}
	for _, readErr := range result.Errors {
		a.Logger.Warn("skipped unreadable story", "err", readErr.Error())
	}

	out := cmd.OutOrStdout()
	switch flagListFormat {
	case "json":
		data, err := json.MarshalIndent(map[string]any{
			"stories": result.Entries,
			"total":   len(result.Entries),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "compact":
		printStoriesCompact(out, result.Entries)
	default:
		printStoriesTable(out, result.Entries)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid story ID: %w", err)
	}

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.Library.Get(id)
	if err != nil {
		return err
	}

	var data []byte
	switch flagShowFormat {
	case "markdown", "md":
		md, err := export.Markdown(entry.Story)
		if err != nil {
			return err
		}
		data = []byte(md)
	case "json":
		data, err = export.JSON(entry.Story)
		if err != nil {
			return err
		}
		data = append(data, '\n')
	default:
		return fmt.Errorf("invalid --format %q: must be markdown or json", flagShowFormat)
	}

	if flagShowOutput != "" {
		if err := os.WriteFile(flagShowOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", flagShowOutput, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", flagShowOutput)
		return nil
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid story ID: %w", err)
	}

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Library.Delete(id); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted story: %s\n", id)
	return nil
}
