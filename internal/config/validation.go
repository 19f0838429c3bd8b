package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the session cannot run with.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	d := c.Debugger
	if strings.TrimSpace(d.GDBPath) == "" {
		errs = append(errs, errors.New("debugger.gdb_path must be set"))
	}
	if strings.TrimSpace(d.PythonDebugPath) == "" {
		errs = append(errs, errors.New("debugger.python_debug_path must be set"))
	}
	if d.Prompt == "" {
		errs = append(errs, errors.New("debugger.prompt must not be empty"))
	}
	if d.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("debugger.read_timeout must be positive, got %s", d.ReadTimeout))
	}
	if d.MaxStepIterations <= 0 {
		errs = append(errs, fmt.Errorf("debugger.max_step_iterations must be positive, got %d", d.MaxStepIterations))
	}
	if d.MaxEmptyBacktraces <= 0 {
		errs = append(errs, fmt.Errorf("debugger.max_empty_backtraces must be positive, got %d", d.MaxEmptyBacktraces))
	}
	if d.EmptyBacktraceBackoff < 0 {
		errs = append(errs, fmt.Errorf("debugger.empty_backtrace_backoff must not be negative, got %s", d.EmptyBacktraceBackoff))
	}

	w := c.Workspace
	if strings.TrimSpace(w.WorkingDir) == "" {
		errs = append(errs, errors.New("workspace.working_dir must be set"))
	}
	if strings.TrimSpace(w.BuildCommand) == "" {
		errs = append(errs, errors.New("workspace.build_command must be set"))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be within 1-65535, got %d", c.Server.Port))
	}

	return errors.Join(errs...)
}
