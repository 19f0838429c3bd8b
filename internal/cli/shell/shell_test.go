package shell

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/cygdb/internal/parse"
	"github.com/coral-mesh/cygdb/internal/session"
	"github.com/coral-mesh/cygdb/internal/testutil"
	"github.com/coral-mesh/cygdb/internal/workspace"
)

type fakeDebugger struct {
	target   string
	runErr   error
	frameErr error
	added    []int
	restarts int
	results  []session.Result
	frame    session.Frame
}

func (d *fakeDebugger) SetTarget(_ context.Context, script string) ([]string, error) {
	d.target = script
	return []string{"cythoning demo.pyx"}, nil
}

func (d *fakeDebugger) Build(context.Context) ([]string, error) { return []string{"built"}, nil }

func (d *fakeDebugger) AddBreakpoint(_ string, line int) (bool, error) {
	if line == 5 {
		return false, nil
	}
	d.added = append(d.added, line)
	return true, nil
}

func (d *fakeDebugger) Breakpoints() []session.Breakpoint {
	out := make([]session.Breakpoint, len(d.added))
	for i, l := range d.added {
		out[i] = session.Breakpoint{File: "demo.pyx", Logical: l, Physical: l + i + 1}
	}
	return out
}

func (d *fakeDebugger) next() session.Result {
	if len(d.results) == 0 {
		return session.Result{Ended: true}
	}
	r := d.results[0]
	d.results = d.results[1:]
	return r
}

func (d *fakeDebugger) Run(context.Context) (session.Result, error) {
	if d.runErr != nil {
		return session.Result{}, d.runErr
	}
	return d.next(), nil
}

func (d *fakeDebugger) Continue(context.Context) (session.Result, error) { return d.next(), nil }
func (d *fakeDebugger) Step(context.Context) (session.Result, error)     { return d.next(), nil }

func (d *fakeDebugger) GetFrame() (session.Frame, error) { return d.frame, d.frameErr }

func (d *fakeDebugger) Restart(context.Context) error {
	d.restarts++
	d.added = nil
	return nil
}

func (d *fakeDebugger) Status() session.Status {
	return session.Status{ID: "abc", Script: d.target, Breakpoints: len(d.added)}
}

func newShell(d *fakeDebugger) (*Shell, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(d, &buf), &buf
}

func TestExecute_Session(t *testing.T) {
	d := &fakeDebugger{
		results: []session.Result{
			{Breakpoint: &session.Location{Filename: "demo.pyx", Lineno: "22"}},
			{Breakpoint: &session.Location{Filename: "demo.pyx", Lineno: "25"}},
		},
	}
	sh, out := newShell(d)
	ctx := testutil.NewTestContext(t)

	require.NoError(t, sh.Execute(ctx, "target main.py"))
	assert.Equal(t, "main.py", d.target)
	assert.Contains(t, out.String(), "cythoning demo.pyx")

	out.Reset()
	require.NoError(t, sh.Execute(ctx, "break demo.pyx 22 5 25"))
	assert.Equal(t, []int{22, 25}, d.added)
	assert.Contains(t, out.String(), "Breakpoint at demo.pyx:22")
	assert.Contains(t, out.String(), "Line demo.pyx:5 cannot hold a breakpoint")

	out.Reset()
	require.NoError(t, sh.Execute(ctx, "breakpoints"))
	assert.Contains(t, out.String(), "FILE")
	assert.Contains(t, out.String(), "PHYSICAL")

	out.Reset()
	require.NoError(t, sh.Execute(ctx, "run"))
	assert.Contains(t, out.String(), "Stopped at demo.pyx:22")

	out.Reset()
	require.NoError(t, sh.Execute(ctx, "c"))
	assert.Contains(t, out.String(), "Stopped at demo.pyx:25")

	out.Reset()
	require.NoError(t, sh.Execute(ctx, "continue"))
	assert.Contains(t, out.String(), "Program ended.")
}

func TestExecute_Frame(t *testing.T) {
	d := &fakeDebugger{
		frame: session.Frame{
			Filename:     "demo.pyx",
			Lineno:       22,
			FunctionName: "main",
			ProcessID:    4242,
			ThreadID:     1,
			Trace: []parse.StackEntry{
				{Filename: "main.py", Lineno: 2, FunctionOrObject: "<module>()", Code: "demo.main()"},
				{Filename: "demo.pyx", Lineno: 22, FunctionOrObject: "main()", Code: "total = total + 22"},
			},
			LocalVariables: []parse.Variable{{Name: "total", Type: "cy long", Value: "42"}},
		},
	}
	sh, out := newShell(d)
	ctx := testutil.NewTestContext(t)

	require.NoError(t, sh.Execute(ctx, "frame"))
	s := out.String()
	assert.Contains(t, s, "demo.pyx:22 in main()")
	assert.Contains(t, s, "pid 4242, thread 1")
	assert.Contains(t, s, "total = total + 22")
	assert.Contains(t, s, "cy long")
	assert.Contains(t, s, "(none)", "no globals")

	// Innermost frame is listed first.
	assert.Less(t, bytes.Index(out.Bytes(), []byte("#0")), bytes.Index(out.Bytes(), []byte("#1")))
	assert.Less(t, bytes.Index(out.Bytes(), []byte("demo.pyx:22\t")), 0, "tabs are expanded")

	out.Reset()
	require.NoError(t, sh.Execute(ctx, "locals"))
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "total")

	d.frame = session.Frame{}
	out.Reset()
	require.NoError(t, sh.Execute(ctx, "frame"))
	assert.Contains(t, out.String(), "the program has ended")

	d.frameErr = session.ErrNoFrame
	assert.ErrorIs(t, sh.Execute(ctx, "bt"), session.ErrNoFrame)
}

func TestExecute_RunBuildFailure(t *testing.T) {
	d := &fakeDebugger{runErr: &workspace.BuildError{Output: []string{"Error compiling Cython file:"}}}
	sh, out := newShell(d)

	err := sh.Execute(testutil.NewTestContext(t), "run")
	assert.ErrorIs(t, err, workspace.ErrBuildFailed)
	assert.Contains(t, out.String(), "Error compiling Cython file:")
}

func TestExecute_Misc(t *testing.T) {
	d := &fakeDebugger{}
	sh, out := newShell(d)
	ctx := testutil.NewTestContext(t)

	assert.NoError(t, sh.Execute(ctx, "   "))
	assert.ErrorIs(t, sh.Execute(ctx, "exit"), errExit)
	assert.ErrorIs(t, sh.Execute(ctx, "quit"), errExit)

	assert.Error(t, sh.Execute(ctx, "frobnicate"))
	assert.Error(t, sh.Execute(ctx, "target"))
	assert.Error(t, sh.Execute(ctx, "break demo.pyx"))
	assert.Error(t, sh.Execute(ctx, "break demo.pyx x"))

	require.NoError(t, sh.Execute(ctx, "help"))
	assert.Contains(t, out.String(), "Commands")

	out.Reset()
	require.NoError(t, sh.Execute(ctx, "breakpoints"))
	assert.Contains(t, out.String(), "No breakpoints.")

	out.Reset()
	require.NoError(t, sh.Execute(ctx, "status"))
	assert.Contains(t, out.String(), "abc")
	assert.Contains(t, out.String(), "(none)")

	require.NoError(t, sh.Execute(ctx, "restart"))
	assert.Equal(t, 1, d.restarts)

	out.Reset()
	require.NoError(t, sh.Execute(ctx, "build"))
	assert.Contains(t, out.String(), "built")
}
