// Package config implements the 'cygdb config' command family.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/cygdb/internal/cli/helpers"
	"github.com/coral-mesh/cygdb/internal/config"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd(opts *helpers.GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cygdb configuration",
		Long: `Manage cygdb configuration.

Configuration Priority:
  1. CYGDB_* environment variables (highest)
  2. Config file (--config, or config.yaml in the config directory)
  3. Built-in defaults

Environment Variables:
  CYGDB_CONFIG    Override config directory (default: ~/.cygdb)`,
	}

	cmd.AddCommand(newViewCmd(opts))
	cmd.AddCommand(newPathCmd(opts))
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newValidateCmd(opts))

	return cmd
}

func newViewCmd(opts *helpers.GlobalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		Long: `Display the configuration after defaults, the config file and
environment overrides are merged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}

			formatter, err := helpers.NewFormatter(helpers.OutputFormat(format))
			if err != nil {
				return err
			}
			return formatter.Format(cfg, cmd.OutOrStdout())
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatYAML, []helpers.OutputFormat{
		helpers.FormatYAML,
		helpers.FormatJSON,
	})

	return cmd
}

func newPathCmd(opts *helpers.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Run: func(cmd *cobra.Command, args []string) {
			path := opts.ConfigPath
			if path == "" {
				path = config.NewLoader().Path()
			}
			cmd.Println(path)
		},
	}
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			path := loader.Path()

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			if err := loader.Save(config.DefaultConfig()); err != nil {
				return err
			}

			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}

func newValidateCmd(opts *helpers.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Load the configuration and report any errors.

Checks for:
- Positive timeouts and stepping ceilings
- Non-empty executables and directories
- Valid port range`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.LoadConfig(); err != nil {
				return err
			}
			cmd.Println("Configuration is valid.")
			return nil
		},
	}
}
