// Package proc inspects the processes running under the debugger.
package proc

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// ErrNotFound is returned when the debugger has no child process.
var ErrNotFound = errors.New("inspected process not found")

// Info describes a running process.
type Info struct {
	PID        int32
	Name       string
	Cmdline    string
	NumThreads int32
}

// Describe returns information about pid.
func Describe(ctx context.Context, pid int32) (Info, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	return describe(ctx, p)
}

func describe(ctx context.Context, p *process.Process) (Info, error) {
	info := Info{PID: p.Pid}

	name, err := p.NameWithContext(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read name of %d: %w", p.Pid, err)
	}
	info.Name = name

	// Cmdline and thread count are best effort; the process may be exiting.
	if cmdline, err := p.CmdlineWithContext(ctx); err == nil {
		info.Cmdline = cmdline
	}
	if threads, err := p.NumThreadsWithContext(ctx); err == nil {
		info.NumThreads = threads
	}

	return info, nil
}

// InspectedProcess returns the program the debugger with debuggerPID is
// running, which is its first child.
func InspectedProcess(ctx context.Context, debuggerPID int32) (Info, error) {
	debugger, err := process.NewProcessWithContext(ctx, debuggerPID)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open debugger process %d: %w", debuggerPID, err)
	}

	children, err := debugger.ChildrenWithContext(ctx)
	if err != nil || len(children) == 0 {
		return Info{}, fmt.Errorf("%w: debugger %d", ErrNotFound, debuggerPID)
	}

	return describe(ctx, children[0])
}
