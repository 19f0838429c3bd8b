// Package serve implements 'cygdb serve', the HTTP debugging server.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/cygdb/internal/cli/helpers"
	"github.com/coral-mesh/cygdb/internal/config"
	"github.com/coral-mesh/cygdb/internal/constants"
	cerrors "github.com/coral-mesh/cygdb/internal/errors"
	"github.com/coral-mesh/cygdb/internal/httpapi"
	"github.com/coral-mesh/cygdb/pkg/version"
)

type flags struct {
	host       string
	port       int
	projectDir string
	workingDir string
}

// NewServeCmd creates the serve command.
func NewServeCmd(opts *helpers.GlobalOptions) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a debugging session over HTTP",
		Long: `Starts the HTTP server an editor extension talks to.

The project directory is mirrored into the working directory, built there,
and debugged under gdb. Breakpoint markers are only ever written to the
working copy.

Environment Variables:
  CYGDB_CONFIG        Config directory (default: ~/.cygdb)
  CYGDB_PROJECT_DIR   Project to debug
  CYGDB_WORKING_DIR   Rewritable working copy
  CYGDB_GDB_PATH      gdb executable with Python support
  CYGDB_PORT          Listen port`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}
			return run(cmd.Context(), opts, cfg)
		},
	}

	cmd.Flags().StringVar(&f.host, "host", constants.DefaultServerHost, "Listen host")
	cmd.Flags().IntVarP(&f.port, "port", "p", constants.DefaultServerPort, "Listen port")
	cmd.Flags().StringVar(&f.projectDir, "project-dir", "", "Project directory (overrides config)")
	cmd.Flags().StringVar(&f.workingDir, "working-dir", "", "Working copy directory (overrides config)")

	return cmd
}

// apply overrides cfg with the flags set on the command line.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = f.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = f.port
	}
	if f.projectDir != "" {
		cfg.Workspace.ProjectDir = f.projectDir
	}
	if f.workingDir != "" {
		cfg.Workspace.WorkingDir = f.workingDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func run(ctx context.Context, opts *helpers.GlobalOptions, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := opts.NewLogger(cfg)

	sess, err := helpers.NewSession(cfg, logger)
	if err != nil {
		return err
	}
	defer cerrors.DeferClose(logger, sess, "failed to close session")

	srv, err := httpapi.New(httpapi.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Session: sess,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	logger.Info().
		Str("version", version.String()).
		Str("project_dir", cfg.Workspace.ProjectDir).
		Str("working_dir", cfg.Workspace.WorkingDir).
		Str("gdb", cfg.Debugger.GDBPath).
		Msg("Starting cygdb server")

	if err := srv.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Error stopping HTTP server")
	}
	return nil
}
