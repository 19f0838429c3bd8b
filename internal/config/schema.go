package config

import "time"

// SchemaVersion is the current config file schema version.
const SchemaVersion = "1"

// Config is the complete server configuration (~/.cygdb/config.yaml).
type Config struct {
	Version   string          `yaml:"version"`
	Debugger  DebuggerConfig  `yaml:"debugger"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DebuggerConfig controls how the native debugger is launched and driven.
type DebuggerConfig struct {
	// GDBPath is the gdb executable (must carry Python support).
	GDBPath string `yaml:"gdb_path" env:"CYGDB_GDB_PATH"`

	// PythonDebugPath is the debug interpreter used to build and run the project.
	PythonDebugPath string `yaml:"python_debug_path" env:"CYGDB_PYTHON_DEBUG_PATH"`

	// Prompt is the exact byte sequence that terminates every response.
	Prompt string `yaml:"prompt" env:"CYGDB_PROMPT"`

	// ReadTimeout bounds the wait for each byte of a response. A timeout
	// yields whatever was read so far.
	ReadTimeout time.Duration `yaml:"read_timeout" env:"CYGDB_READ_TIMEOUT"`

	// MaxStepIterations bounds the backtrace/next loop per run or continue.
	MaxStepIterations int `yaml:"max_step_iterations" env:"CYGDB_MAX_STEP_ITERATIONS"`

	// MaxEmptyBacktraces bounds consecutive empty backtraces before the
	// program is treated as no longer stopped.
	MaxEmptyBacktraces int `yaml:"max_empty_backtraces" env:"CYGDB_MAX_EMPTY_BACKTRACES"`

	// EmptyBacktraceBackoff is the first wait between empty backtraces.
	EmptyBacktraceBackoff time.Duration `yaml:"empty_backtrace_backoff" env:"CYGDB_EMPTY_BACKTRACE_BACKOFF"`
}

// WorkspaceConfig locates the project and its rewritable working copy.
type WorkspaceConfig struct {
	ProjectDir   string   `yaml:"project_dir" env:"CYGDB_PROJECT_DIR"`
	WorkingDir   string   `yaml:"working_dir" env:"CYGDB_WORKING_DIR"`
	BuildCommand string   `yaml:"build_command" env:"CYGDB_BUILD_COMMAND"`
	Exclude      []string `yaml:"exclude" env:"CYGDB_SYNC_EXCLUDE"`
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Host string `yaml:"host" env:"CYGDB_HOST"`
	Port int    `yaml:"port" env:"CYGDB_PORT"`
}

// LoggingConfig mirrors logging.Config for the file format.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"CYGDB_LOG_LEVEL"`
	Pretty *bool  `yaml:"pretty,omitempty"`
}
