package transport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned by Send once the process has been terminated.
var ErrClosed = errors.New("debugger process is not running")

// ProcessSpawnError reports that the debugger executable could not be started.
type ProcessSpawnError struct {
	Argv []string
	Err  error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %q: %v", strings.Join(e.Argv, " "), e.Err)
}

func (e *ProcessSpawnError) Unwrap() error {
	return e.Err
}
