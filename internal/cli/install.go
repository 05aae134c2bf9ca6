// internal/cli/install.go
package cli

import (
	"context"

	"github.com/spf13/cobra"

	lilith "github.com/lilith-pkg/lilith"
	"github.com/lilith-pkg/lilith/pkg/config"
	"github.com/lilith-pkg/lilith/pkg/engine"
)

var (
	installFullDeps bool
	installNoDeps   bool
)

var installCmd = &cobra.Command{
	Use:   "install <name>",
	Short: "Install a package and its unresolved dependencies",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installFullDeps, "full-deps", false, "install dependencies even if already satisfied by the host system")
	installCmd.Flags().BoolVar(&installNoDeps, "no-deps", false, "skip dependency resolution entirely")
}

func runInstall(cmd *cobra.Command, args []string) error {
	lock, err := eng.Tree.AcquireLock()
	if err != nil {
		return lilith.Wrap("install", args[0], lilith.ErrBusy, err)
	}
	defer lock.Release()

	opts := engine.InstallOptions{FullDeps: installFullDeps, NoDeps: installNoDeps}
	if err := eng.Install(context.Background(), args[0], opts); err != nil {
		return err
	}

	cfg.FullDeps = installFullDeps
	cfg.NoDeps = installNoDeps
	return config.Save(config.Path(eng.Tree.Root), cfg)
}
