// internal/cli/root.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	lilith "github.com/lilith-pkg/lilith"
	"github.com/lilith-pkg/lilith/pkg/config"
	"github.com/lilith-pkg/lilith/pkg/engine"
	"github.com/lilith-pkg/lilith/pkg/prefix"
	"github.com/lilith-pkg/lilith/pkg/ui"
)

var (
	prefixFlag string
	cfg        *config.Config
	eng        *engine.Engine
	sink       ui.Sink
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:           "lilith",
	Short:         "A rootless package manager for shared hosting",
	Long:          `lilith fetches prebuilt packages and installs them into a user-owned prefix, without administrative privileges.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

// Execute runs the root command, reporting any taxonomy-tagged error
// through the sink before returning it for exit-code mapping.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		if sink != nil {
			sink.Error("%v", err)
		} else {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		}
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&prefixFlag, "prefix", "", "prefix root directory (default $HOME/.lilith)")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updateMetadataCmd)
	rootCmd.AddCommand(fixSymlinksCmd)
}

// setup resolves the prefix tree, loads configuration, and constructs
// the Engine shared by every subcommand.
func setup() error {
	var tree *prefix.Tree
	if prefixFlag != "" {
		tree = prefix.New(prefixFlag)
	} else {
		t, err := prefix.Default()
		if err != nil {
			return lilith.Wrap("setup", "", lilith.ErrEnvProbe, err)
		}
		tree = t
	}

	loaded, err := config.Load(config.Path(tree.Root))
	if err != nil {
		return lilith.Wrap("setup", "", lilith.ErrFilesystem, err)
	}
	cfg = loaded
	if cfg.Prefix != "" && prefixFlag == "" {
		tree = prefix.New(cfg.Prefix)
	}

	sink = ui.NewPlain(os.Stdout, os.Stderr)
	eng = engine.New(tree, sink)

	if cfg.RepoScheme != "" {
		eng.Prober.Scheme = cfg.RepoScheme
	}
	if cfg.RepoHost != "" {
		eng.Prober.Host = cfg.RepoHost
	}
	if cfg.RepoBranch != "" {
		eng.Prober.Branch = cfg.RepoBranch
	}

	return nil
}
