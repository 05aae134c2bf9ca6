// internal/cli/search.go
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var searchAll bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the repository catalogue",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().BoolVarP(&searchAll, "all", "a", false, "match against comment text too, not just name")
}

func runSearch(cmd *cobra.Command, args []string) error {
	results, err := eng.Search(context.Background(), args[0], searchAll)
	if err != nil {
		return err
	}
	for _, r := range results {
		sink.Info("%-20s %-12s %s", r.Name, r.Version, r.Comment)
	}
	return nil
}
