package shell

import (
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/coral-mesh/cygdb/internal/cli/helpers"
	"github.com/coral-mesh/cygdb/internal/parse"
	"github.com/coral-mesh/cygdb/internal/session"
)

var (
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	locationStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	endedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
)

func (s *Shell) printFrame(f session.Frame) error {
	if len(f.Trace) == 0 {
		s.printf("%s\n", endedStyle.Render("No frame: the program has ended."))
		return nil
	}

	s.printf("%s %s in %s()\n",
		headingStyle.Render("Frame"),
		locationStyle.Render(fmt.Sprintf("%s:%d", f.Filename, f.Lineno)),
		f.FunctionName)
	s.printf("%s\n\n", dimStyle.Render(fmt.Sprintf("pid %d, thread %d", f.ProcessID, f.ThreadID)))

	s.printTrace(f.Trace)
	if err := s.variables("Locals", f.LocalVariables); err != nil {
		return err
	}
	return s.variables("Globals", f.GlobalVariables)
}

// printTrace lists the stack innermost first.
func (s *Shell) printTrace(trace []parse.StackEntry) {
	s.printf("%s\n", headingStyle.Render("Backtrace"))

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	for i := len(trace) - 1; i >= 0; i-- {
		e := trace[i]
		_, _ = fmt.Fprintf(w, "#%d\t%s:%d\t%s\t%s\n", len(trace)-1-i, e.Filename, e.Lineno, e.FunctionOrObject, e.Code)
	}
	_ = w.Flush()
	s.printf("\n")
}

func (s *Shell) variables(title string, vars []parse.Variable) error {
	s.printf("%s\n", headingStyle.Render(title))
	if len(vars) == 0 {
		s.printf("%s\n\n", dimStyle.Render("(none)"))
		return nil
	}
	if err := s.table(vars); err != nil {
		return err
	}
	s.printf("\n")
	return nil
}

func (s *Shell) table(data interface{}) error {
	return (&helpers.TableFormatter{}).Format(data, s.out)
}

func (s *Shell) printOutput(lines []string) {
	for _, l := range lines {
		s.printf("%s\n", dimStyle.Render(l))
	}
}

func (s *Shell) printStatus(st session.Status) {
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Session:\t%s\n", st.ID)
	_, _ = fmt.Fprintf(w, "Script:\t%s\n", orNone(st.Script))
	_, _ = fmt.Fprintf(w, "Breakpoints:\t%d\n", st.Breakpoints)
	_, _ = fmt.Fprintf(w, "Running:\t%t\n", st.Running)
	_, _ = fmt.Fprintf(w, "Ended:\t%t\n", st.Ended)
	for _, f := range st.TrackedFiles {
		_, _ = fmt.Fprintf(w, "Tracked:\t%s\n", f)
	}
	if st.DebuggerPID > 0 {
		_, _ = fmt.Fprintf(w, "Debugger PID:\t%d\n", st.DebuggerPID)
	}
	_ = w.Flush()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
