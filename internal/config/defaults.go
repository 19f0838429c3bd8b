package config

import (
	"github.com/coral-mesh/cygdb/internal/constants"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: SchemaVersion,
		Debugger: DebuggerConfig{
			GDBPath:               constants.DefaultGDBPath,
			PythonDebugPath:       constants.DefaultPythonDebugPath,
			Prompt:                constants.DefaultPrompt,
			ReadTimeout:           constants.DefaultReadTimeout,
			MaxStepIterations:     constants.DefaultMaxStepIterations,
			MaxEmptyBacktraces:    constants.DefaultMaxEmptyBacktraces,
			EmptyBacktraceBackoff: constants.DefaultEmptyBacktraceBackoff,
		},
		Workspace: WorkspaceConfig{
			ProjectDir:   constants.DefaultProjectDir,
			WorkingDir:   constants.DefaultWorkingDir,
			BuildCommand: constants.DefaultBuildCommand,
			Exclude:      []string{".git", "build", constants.DebugInfoDir, "__pycache__"},
		},
		Server: ServerConfig{
			Host: constants.DefaultServerHost,
			Port: constants.DefaultServerPort,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Version == "" {
		cfg.Version = def.Version
	}

	d := &cfg.Debugger
	if d.GDBPath == "" {
		d.GDBPath = def.Debugger.GDBPath
	}
	if d.PythonDebugPath == "" {
		d.PythonDebugPath = def.Debugger.PythonDebugPath
	}
	if d.Prompt == "" {
		d.Prompt = def.Debugger.Prompt
	}
	if d.ReadTimeout == 0 {
		d.ReadTimeout = def.Debugger.ReadTimeout
	}
	if d.MaxStepIterations == 0 {
		d.MaxStepIterations = def.Debugger.MaxStepIterations
	}
	if d.MaxEmptyBacktraces == 0 {
		d.MaxEmptyBacktraces = def.Debugger.MaxEmptyBacktraces
	}
	if d.EmptyBacktraceBackoff == 0 {
		d.EmptyBacktraceBackoff = def.Debugger.EmptyBacktraceBackoff
	}

	w := &cfg.Workspace
	if w.ProjectDir == "" {
		w.ProjectDir = def.Workspace.ProjectDir
	}
	if w.WorkingDir == "" {
		w.WorkingDir = def.Workspace.WorkingDir
	}
	if w.BuildCommand == "" {
		w.BuildCommand = def.Workspace.BuildCommand
	}
	if w.Exclude == nil {
		w.Exclude = def.Workspace.Exclude
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}
