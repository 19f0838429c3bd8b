package stepping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/cygdb/internal/parse"
	"github.com/coral-mesh/cygdb/internal/testutil"
)

// lineDebugger walks through a fixed sequence of current lines, one per Next.
type lineDebugger struct {
	file   string
	lines  []int
	pos    int
	nexts  int
	empty  int // backtraces to answer empty before reporting a stack
	polled int
}

func (d *lineDebugger) Backtrace() []parse.StackEntry {
	d.polled++
	if d.empty > 0 {
		d.empty--
		return nil
	}
	if d.pos >= len(d.lines) {
		return nil
	}
	return []parse.StackEntry{
		{Filename: "run_file.py", Lineno: 15, FunctionOrObject: "run()"},
		{Filename: d.file, Lineno: d.lines[d.pos], FunctionOrObject: "estimate()"},
	}
}

func (d *lineDebugger) Next() {
	d.nexts++
	d.pos++
}

func testConfig() Config {
	return Config{
		MaxIterations:      5,
		MaxEmptyBacktraces: 3,
		Backoff:            time.Millisecond,
		MaxBackoff:         2 * time.Millisecond,
	}
}

func TestAdvanceTo_StepsUntilMatch(t *testing.T) {
	dbg := &lineDebugger{file: "demo.pyx", lines: []int{21, 22, 23}}
	engine := New(dbg, testConfig(), testutil.NewTestLogger(t))

	trace, err := engine.AdvanceTo(context.Background(), []Target{
		{File: "/work/demo.pyx", Line: 23},
		{File: "demo.pyx", Line: 30},
	})
	require.NoError(t, err)

	top, ok := parse.Top(trace)
	require.True(t, ok)
	assert.Equal(t, 23, top.Lineno)
	assert.Equal(t, 2, dbg.nexts)
}

func TestAdvanceTo_ImmediateMatch(t *testing.T) {
	dbg := &lineDebugger{file: "demo.pyx", lines: []int{22}}
	engine := New(dbg, testConfig(), testutil.NewTestLogger(t))

	_, err := engine.AdvanceTo(context.Background(), []Target{{File: "demo", Line: 22}})
	require.NoError(t, err)
	assert.Zero(t, dbg.nexts)
}

func TestAdvanceTo_OnlyTopFrameMatches(t *testing.T) {
	dbg := &lineDebugger{file: "demo.pyx", lines: []int{1, 2, 3, 4, 5, 6, 7}}
	engine := New(dbg, testConfig(), testutil.NewTestLogger(t))

	// run_file.py:15 is in every backtrace but never on top.
	_, err := engine.AdvanceTo(context.Background(), []Target{{File: "run_file.py", Line: 15}})
	assert.ErrorIs(t, err, ErrSteppingTimeout)
}

func TestAdvanceTo_UnreachableTargetTimesOut(t *testing.T) {
	lines := make([]int, 100)
	for i := range lines {
		lines[i] = 10 + i%3
	}
	dbg := &lineDebugger{file: "demo.pyx", lines: lines}
	engine := New(dbg, testConfig(), testutil.NewTestLogger(t))

	_, err := engine.AdvanceTo(context.Background(), []Target{{File: "demo.pyx", Line: 99}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSteppingTimeout))
	assert.Equal(t, 5, dbg.nexts)
}

func TestAdvanceTo_EmptyBacktraceRetried(t *testing.T) {
	dbg := &lineDebugger{file: "demo.pyx", lines: []int{22}, empty: 2}
	engine := New(dbg, testConfig(), testutil.NewTestLogger(t))

	_, err := engine.AdvanceTo(context.Background(), []Target{{File: "demo.pyx", Line: 22}})
	require.NoError(t, err)
	assert.Equal(t, 3, dbg.polled)
}

func TestAdvanceTo_NotStopped(t *testing.T) {
	dbg := &lineDebugger{file: "demo.pyx"}
	engine := New(dbg, testConfig(), testutil.NewTestLogger(t))

	_, err := engine.AdvanceTo(context.Background(), []Target{{File: "demo.pyx", Line: 22}})
	assert.ErrorIs(t, err, ErrNotStopped)
	assert.Equal(t, 3, dbg.polled)
	assert.Zero(t, dbg.nexts)
}

func TestAdvanceTo_ContextCanceled(t *testing.T) {
	dbg := &lineDebugger{file: "demo.pyx"}
	engine := New(dbg, Config{MaxIterations: 5, MaxEmptyBacktraces: 3, Backoff: time.Hour}, testutil.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.AdvanceTo(ctx, []Target{{File: "demo.pyx", Line: 22}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Defaults(t *testing.T) {
	engine := New(&lineDebugger{}, Config{}, testutil.NewTestLogger(t))
	assert.Equal(t, DefaultConfig(), engine.cfg)
}
