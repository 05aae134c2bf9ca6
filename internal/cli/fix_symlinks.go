// internal/cli/fix_symlinks.go
package cli

import (
	"github.com/spf13/cobra"

	lilith "github.com/lilith-pkg/lilith"
)

var fixSymlinksCmd = &cobra.Command{
	Use:   "fix-symlinks",
	Short: "Purge dangling shared-library symlinks and rebuild the symlink farm",
	Args:  cobra.NoArgs,
	RunE:  runFixSymlinks,
}

func runFixSymlinks(cmd *cobra.Command, args []string) error {
	lock, err := eng.Tree.AcquireLock()
	if err != nil {
		return lilith.Wrap("fix-symlinks", "", lilith.ErrBusy, err)
	}
	defer lock.Release()

	if err := eng.FixSymlinks(); err != nil {
		return err
	}
	sink.Success("symlink farm repaired")
	return nil
}
