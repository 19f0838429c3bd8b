package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/cygdb/internal/constants"
	"github.com/coral-mesh/cygdb/internal/logging"
)

// ErrBuildFailed is wrapped by BuildError.
var ErrBuildFailed = errors.New("build failed")

// BuildError carries the compiler output of a failed build.
type BuildError struct {
	Output []string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", ErrBuildFailed, e.Err)
	}
	return ErrBuildFailed.Error()
}

func (e *BuildError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrBuildFailed, e.Err}
	}
	return []error{ErrBuildFailed}
}

// Builder compiles the extension modules of the working copy.
type Builder struct {
	Dir string

	// Command is split on whitespace; "{python}" is replaced by Python.
	Command string
	Python  string

	logger zerolog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(dir, command, python string, logger zerolog.Logger) *Builder {
	return &Builder{
		Dir:     dir,
		Command: command,
		Python:  python,
		logger:  logging.WithComponent(logger, "workspace"),
	}
}

// Argv returns the build command line.
func (b *Builder) Argv() []string {
	fields := strings.Fields(b.Command)
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, "{python}", b.Python)
	}
	return fields
}

// Build runs the build command in the working copy and returns its output
// lines. A compile error reported by Cython, or a failing command, yields a
// *BuildError.
func (b *Builder) Build(ctx context.Context) ([]string, error) {
	argv := b.Argv()
	if len(argv) == 0 {
		return nil, &BuildError{Err: errors.New("empty build command")}
	}

	//nolint:gosec // G204: build command comes from operator configuration.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = b.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	b.logger.Info().Str("command", strings.Join(argv, " ")).Str("dir", b.Dir).Msg("Building extension")

	runErr := cmd.Run()

	if strings.Contains(stderr.String(), constants.BuildFailureMarker) {
		b.logger.Warn().Msg("Cython reported a compile error")
		return nil, &BuildError{Output: splitOutput(stderr.String())}
	}
	if runErr != nil {
		b.logger.Warn().Err(runErr).Msg("Build command failed")
		return nil, &BuildError{Output: splitOutput(stderr.String()), Err: runErr}
	}

	if stderr.Len() > 0 {
		b.logger.Debug().Str("stderr", stderr.String()).Msg("Build wrote to stderr")
	}

	return splitOutput(stdout.String()), nil
}

func splitOutput(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
