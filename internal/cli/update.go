// internal/cli/update.go
package cli

import (
	"context"

	"github.com/spf13/cobra"

	lilith "github.com/lilith-pkg/lilith"
)

var updateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Reinstall a package if a newer version is available upstream",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	lock, err := eng.Tree.AcquireLock()
	if err != nil {
		return lilith.Wrap("update", args[0], lilith.ErrBusy, err)
	}
	defer lock.Release()

	return eng.Update(context.Background(), args[0])
}
