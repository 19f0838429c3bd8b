// Package constants defines shared configuration constants and defaults.
package constants

import "time"

// Debugger framing.
const (
	// DefaultPrompt is the MI prompt as it arrives through a pty (onlcr turns
	// the trailing newline into CRLF).
	DefaultPrompt = "(gdb) \r\n"

	// DefaultReadTimeout bounds the wait for each byte of a response.
	DefaultReadTimeout = 5 * time.Second

	// DefaultTerminateTimeout bounds the wait for a killed debugger to be reaped.
	DefaultTerminateTimeout = 2 * time.Second
)

// Stepping ceilings.
const (
	// DefaultMaxStepIterations is the number of backtrace/next rounds before
	// the stepping engine reports a stall.
	DefaultMaxStepIterations = 50

	// DefaultMaxEmptyBacktraces is the number of consecutive empty backtraces
	// tolerated before the program is considered no longer stopped.
	DefaultMaxEmptyBacktraces = 10

	DefaultEmptyBacktraceBackoff = 100 * time.Millisecond

	DefaultMaxEmptyBacktraceBackoff = time.Second
)

// Files.
const (
	// DefaultMaxSourceSize caps source files handled by the breakpoint virtualizer.
	DefaultMaxSourceSize = 16 << 20

	// DefaultMaxSyncFileSize caps files mirrored into the working copy.
	DefaultMaxSyncFileSize = 256 << 20
)

// HTTP server.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 5 * time.Second
)
