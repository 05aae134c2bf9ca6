// internal/cli/update_metadata.go
package cli

import (
	"context"

	"github.com/spf13/cobra"

	lilith "github.com/lilith-pkg/lilith"
)

var updateMetadataCmd = &cobra.Command{
	Use:   "update-metadata",
	Short: "Refresh the repository catalogue",
	Args:  cobra.NoArgs,
	RunE:  runUpdateMetadata,
}

func runUpdateMetadata(cmd *cobra.Command, args []string) error {
	lock, err := eng.Tree.AcquireLock()
	if err != nil {
		return lilith.Wrap("update-metadata", "", lilith.ErrBusy, err)
	}
	defer lock.Release()

	if err := eng.UpdateMetadata(context.Background()); err != nil {
		return err
	}
	sink.Success("catalogue refreshed")
	return nil
}
