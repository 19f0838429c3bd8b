package helpers

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/cygdb/internal/config"
	"github.com/coral-mesh/cygdb/internal/gdb/transport"
	"github.com/coral-mesh/cygdb/internal/logging"
	"github.com/coral-mesh/cygdb/internal/session"
	"github.com/coral-mesh/cygdb/internal/stepping"
	"github.com/coral-mesh/cygdb/internal/workspace"
)

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	LogPretty  bool

	prettySet bool
}

// AddGlobalFlags registers the shared flags as persistent flags of the root
// command.
func AddGlobalFlags(cmd *cobra.Command, opts *GlobalOptions) {
	opts.AddFlags(cmd.PersistentFlags())

	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		opts.prettySet = cmd.Flags().Changed("log-pretty")
	}
}

// LoadConfig loads the config file, environment overrides included.
func (o *GlobalOptions) LoadConfig() (*config.Config, error) {
	return config.NewLoader().Load(o.ConfigPath)
}

// NewLogger builds the process logger. Flags override the config file.
func (o *GlobalOptions) NewLogger(cfg *config.Config) zerolog.Logger {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Logging.Level
	if o.LogLevel != "" {
		lc.Level = o.LogLevel
	}
	if cfg.Logging.Pretty != nil {
		lc.Pretty = *cfg.Logging.Pretty
	}
	if o.prettySet {
		lc.Pretty = o.LogPretty
	}
	lc.Output = os.Stderr
	return logging.New(lc)
}

// NewSession wires a debugging session from the configuration.
func NewSession(cfg *config.Config, logger zerolog.Logger) (*session.Session, error) {
	ws, err := workspace.New(workspace.Config{
		ProjectDir:   cfg.Workspace.ProjectDir,
		WorkingDir:   cfg.Workspace.WorkingDir,
		BuildCommand: cfg.Workspace.BuildCommand,
		Python:       cfg.Debugger.PythonDebugPath,
		Exclude:      cfg.Workspace.Exclude,
	}, logger)
	if err != nil {
		return nil, err
	}

	d := cfg.Debugger

	return session.New(ws, session.Options{
		GDBPath:     d.GDBPath,
		ReadTimeout: d.ReadTimeout,
		Stepping: stepping.Config{
			MaxIterations:      d.MaxStepIterations,
			MaxEmptyBacktraces: d.MaxEmptyBacktraces,
			Backoff:            d.EmptyBacktraceBackoff,
		},
		Spawn: session.PTYSpawner(transport.Options{
			Prompt:      d.Prompt,
			ReadTimeout: d.ReadTimeout,
			Dir:         ws.Dir(),
			Logger:      logger,
		}),
		Logger: logger,
	}), nil
}
