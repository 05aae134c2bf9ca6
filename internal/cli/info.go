// internal/cli/info.go
package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show catalogue information about a package",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	fields, err := eng.Info(context.Background(), args[0])
	if err != nil {
		return err
	}

	sink.Info("Name: %s", fields.Name)
	sink.Info("Version: %s", fields.Version)
	sink.Info("Comment: %s", fields.Comment)
	sink.Info("Maintainer: %s", fields.Maintainer)
	sink.Info("WWW: %s", fields.WWW)
	sink.Info("Origin: %s", fields.Origin)
	if len(fields.Licenses) > 0 {
		sink.Info("Licenses: %v", fields.Licenses)
	}
	sink.Info("Dependencies: %s", strings.Join(fields.Dependencies, ", "))
	return nil
}
