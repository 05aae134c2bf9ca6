// internal/cli/list.go
package cli

import (
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// descriptionWidth is the fixed column width §4.J requires `list`'s
// description column to truncate to, with an ellipsis.
const descriptionWidth = 50

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	records, err := eng.List()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"NAME", "VERSION", "COMMENT"})
	table.SetAutoWrapText(false)
	for _, r := range records {
		table.Append([]string{r.Name, r.Version, truncate(r.Comment, descriptionWidth)})
	}
	table.Render()
	return nil
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return strings.TrimSpace(s[:width-3]) + "..."
}
