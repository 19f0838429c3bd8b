// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	DefaultDir = ".cygdb"

	// DefaultGDBPath is resolved through PATH when not absolute.
	DefaultGDBPath = "gdb"

	// DefaultPythonDebugPath is the debug build of the interpreter the
	// extension is compiled against.
	DefaultPythonDebugPath = "/usr/bin/python3-dbg"

	// DefaultProjectDir is the pristine project mounted into the container.
	DefaultProjectDir = "/project_folder"

	// DefaultWorkingDir receives the synced copy that gets rewritten and built.
	DefaultWorkingDir = "working_folder"

	DefaultServerHost = "0.0.0.0"

	DefaultServerPort = 3456

	DefaultHistoryFile = DefaultDir + "/" + "shell_history"
)

// Debug-info layout written by the extension compiler when gdb_debug is enabled.
const (
	DebugInfoDir        = "cython_debug"
	DebugInfoGlob       = "cython_debug_info_*"
	InterpreterFile     = "interpreter"
	CommandFile         = "gdb_configuration_file"
	DebuggerInitFile    = ".cygdbinit"
	BuildFailureMarker  = "Error compiling Cython file"
	DefaultBuildCommand = "{python} setup.py build_ext --inplace --force"
)

// MarkerStatement is the no-effect statement inserted above a breakpoint line.
const MarkerStatement = "print()  # empty print to prevent Cython optimizing out this line"
