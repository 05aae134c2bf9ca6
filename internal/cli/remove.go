// internal/cli/remove.go
package cli

import (
	"context"

	"github.com/spf13/cobra"

	lilith "github.com/lilith-pkg/lilith"
	"github.com/lilith-pkg/lilith/pkg/engine"
)

var (
	removeForce        bool
	removeNoAutoRemove bool
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an installed package",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&removeForce, "force", false, "remove even if other installed packages depend on it")
	removeCmd.Flags().BoolVar(&removeNoAutoRemove, "no-auto-remove", false, "do not sweep dependencies orphaned by this removal")
}

func runRemove(cmd *cobra.Command, args []string) error {
	lock, err := eng.Tree.AcquireLock()
	if err != nil {
		return lilith.Wrap("remove", args[0], lilith.ErrBusy, err)
	}
	defer lock.Release()

	opts := engine.RemoveOptions{Force: removeForce, NoAutoRemove: removeNoAutoRemove}
	return eng.Remove(context.Background(), args[0], opts)
}
