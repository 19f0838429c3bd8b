package session

import (
	"strconv"

	"github.com/coral-mesh/cygdb/internal/parse"
)

// Frame is the state of the inspected program at a stop. It is rebuilt on
// every stop.
type Frame struct {
	LocalVariables  []parse.Variable   `json:"local_variables"`
	GlobalVariables []parse.Variable   `json:"global_variables"`
	Trace           []parse.StackEntry `json:"trace"`
	Lineno          int                `json:"lineno"`
	Filename        string             `json:"filename"`
	FunctionName    string             `json:"function_name"`
	ProcessID       int                `json:"process_id"`
	ThreadID        int                `json:"thread_id"`
}

// Location identifies where the program stopped.
type Location struct {
	Filename string `json:"filename"`
	Lineno   string `json:"lineno"`
}

// Result is returned by Run and Continue: either the program ended, or it
// stopped at Breakpoint.
type Result struct {
	Ended      bool      `json:"ended"`
	Breakpoint *Location `json:"breakpoint,omitempty"`
}

// Breakpoint is a registered breakpoint. Physical is the line in the
// rewritten working copy at the time it was listed.
type Breakpoint struct {
	File     string `json:"file" header:"FILE"`
	Logical  int    `json:"line" header:"LINE"`
	Physical int    `json:"physical_line" header:"PHYSICAL"`
}

func endedResult() Result {
	return Result{Ended: true}
}

func stoppedResult(f *Frame) Result {
	return Result{
		Breakpoint: &Location{
			Filename: f.Filename,
			Lineno:   strconv.Itoa(f.Lineno),
		},
	}
}

func (f *Frame) clone() Frame {
	c := *f
	c.LocalVariables = append([]parse.Variable{}, f.LocalVariables...)
	c.GlobalVariables = append([]parse.Variable{}, f.GlobalVariables...)
	c.Trace = append([]parse.StackEntry{}, f.Trace...)
	return c
}
