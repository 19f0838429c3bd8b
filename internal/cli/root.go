package cli

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/cygdb/internal/cli/config"
	"github.com/coral-mesh/cygdb/internal/cli/helpers"
	"github.com/coral-mesh/cygdb/internal/cli/serve"
	"github.com/coral-mesh/cygdb/internal/cli/shell"
	"github.com/coral-mesh/cygdb/pkg/version"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &helpers.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "cygdb",
		Short: "Remote debugger for Cython projects",
		Long: `Debug Cython extensions from your editor.

cygdb drives gdb with the Cython debugger extension and exposes a small
session API: set the program, place breakpoints by source line, run,
continue and inspect frames.

- serve: HTTP server for editor integrations
- shell: interactive prompt in the terminal`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	helpers.AddGlobalFlags(rootCmd, opts)

	rootCmd.AddCommand(serve.NewServeCmd(opts))
	rootCmd.AddCommand(shell.NewShellCmd(opts))
	rootCmd.AddCommand(config.NewConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("cygdb version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
