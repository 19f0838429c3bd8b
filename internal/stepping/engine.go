// Package stepping advances a stopped program line by line until it reports
// being at one of the requested breakpoint locations.
package stepping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/cygdb/internal/constants"
	"github.com/coral-mesh/cygdb/internal/logging"
	"github.com/coral-mesh/cygdb/internal/parse"
	"github.com/coral-mesh/cygdb/internal/retry"
)

var (
	// ErrSteppingTimeout is returned when no target was reached within the
	// iteration ceiling.
	ErrSteppingTimeout = errors.New("stepping did not reach a breakpoint")

	// ErrNotStopped is returned when the backtrace stayed empty for every
	// poll, which happens once the program has finished or crashed.
	ErrNotStopped = errors.New("program is not stopped")
)

// errEmptyBacktrace marks a poll that may succeed when retried.
var errEmptyBacktrace = errors.New("empty backtrace")

// Debugger is the part of the command protocol the engine drives.
type Debugger interface {
	Backtrace() []parse.StackEntry
	Next()
}

// Target is a breakpoint location in physical line numbers.
type Target struct {
	File string
	Line int
}

// Config bounds the stepping loop.
type Config struct {
	// MaxIterations is the number of backtrace/next rounds per AdvanceTo.
	MaxIterations int

	// MaxEmptyBacktraces is the number of consecutive empty backtraces
	// tolerated in one round.
	MaxEmptyBacktraces int

	// Backoff is the first wait between empty backtraces; it doubles up to
	// MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// DefaultConfig returns the built-in ceilings.
func DefaultConfig() Config {
	return Config{
		MaxIterations:      constants.DefaultMaxStepIterations,
		MaxEmptyBacktraces: constants.DefaultMaxEmptyBacktraces,
		Backoff:            constants.DefaultEmptyBacktraceBackoff,
		MaxBackoff:         constants.DefaultMaxEmptyBacktraceBackoff,
	}
}

// Engine runs the advance loop against a Debugger.
type Engine struct {
	debugger Debugger
	cfg      Config
	logger   zerolog.Logger
}

// New creates an Engine. Zero fields of cfg take their defaults.
func New(debugger Debugger, cfg Config, logger zerolog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.MaxEmptyBacktraces <= 0 {
		cfg.MaxEmptyBacktraces = def.MaxEmptyBacktraces
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}

	return &Engine{
		debugger: debugger,
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "stepping"),
	}
}

// AdvanceTo steps until the current frame is at one of targets and returns
// the backtrace at that point.
//
// A frame matches when its file stem and line equal a target's. Each round
// without a match issues one next. The loop gives up with
// ErrSteppingTimeout after MaxIterations rounds, or with ErrNotStopped when
// the program stops reporting a stack.
func (e *Engine) AdvanceTo(ctx context.Context, targets []Target) ([]parse.StackEntry, error) {
	for i := 1; i <= e.cfg.MaxIterations; i++ {
		trace, err := e.awaitStop(ctx)
		if err != nil {
			return nil, err
		}

		top, _ := parse.Top(trace)
		if target, ok := match(top, targets); ok {
			e.logger.Debug().
				Str("file", target.File).
				Int("line", target.Line).
				Int("iterations", i).
				Msg("Breakpoint reached")
			return trace, nil
		}

		e.logger.Trace().
			Str("file", top.Filename).
			Int("line", top.Lineno).
			Msg("Not at a breakpoint, stepping")
		e.debugger.Next()
	}

	e.logger.Warn().Int("iterations", e.cfg.MaxIterations).Msg("Stepping ceiling reached")
	return nil, fmt.Errorf("%w after %d iterations", ErrSteppingTimeout, e.cfg.MaxIterations)
}

// awaitStop polls the backtrace until it is non-empty.
func (e *Engine) awaitStop(ctx context.Context) ([]parse.StackEntry, error) {
	var trace []parse.StackEntry

	err := retry.Do(ctx, retry.Config{
		MaxRetries:     e.cfg.MaxEmptyBacktraces,
		InitialBackoff: e.cfg.Backoff,
		MaxBackoff:     e.cfg.MaxBackoff,
		OnRetry: func(attempt int, _ error) {
			e.logger.Trace().Int("attempt", attempt).Msg("Backtrace empty, waiting for stop")
		},
	}, func() error {
		trace = e.debugger.Backtrace()
		if len(trace) == 0 {
			return errEmptyBacktrace
		}
		return nil
	}, func(err error) bool {
		return errors.Is(err, errEmptyBacktrace)
	})

	switch {
	case err == nil:
		return trace, nil
	case errors.Is(err, retry.ErrExhausted):
		return nil, fmt.Errorf("%w: %w", ErrNotStopped, err)
	default:
		return nil, err
	}
}

func match(frame parse.StackEntry, targets []Target) (Target, bool) {
	stem := frame.Stem()
	for _, t := range targets {
		if parse.Stem(t.File) == stem && t.Line == frame.Lineno {
			return t, true
		}
	}
	return Target{}, false
}
