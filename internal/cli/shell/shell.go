// Package shell implements 'cygdb shell', an interactive debugger prompt
// over a local session.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/cygdb/internal/cli/helpers"
	"github.com/coral-mesh/cygdb/internal/constants"
	"github.com/coral-mesh/cygdb/internal/session"
	"github.com/coral-mesh/cygdb/internal/workspace"
)

const prompt = "cygdb> "

var errExit = errors.New("exit")

// Debugger is the session the shell drives.
type Debugger interface {
	SetTarget(ctx context.Context, script string) ([]string, error)
	Build(ctx context.Context) ([]string, error)
	AddBreakpoint(file string, line int) (bool, error)
	Breakpoints() []session.Breakpoint
	Run(ctx context.Context) (session.Result, error)
	Continue(ctx context.Context) (session.Result, error)
	Step(ctx context.Context) (session.Result, error)
	GetFrame() (session.Frame, error)
	Restart(ctx context.Context) error
	Status() session.Status
}

// NewShellCmd creates the shell command.
func NewShellCmd(opts *helpers.GlobalOptions) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Debug interactively from the terminal",
		Long: `Opens an interactive prompt over a local debugging session.

Commands:
  target <script>          - Set the program to debug and build it
  break <file> <line>...   - Add breakpoints (logical lines)
  breakpoints              - List breakpoints
  run                      - Run to the first breakpoint
  continue                 - Continue to the next breakpoint
  step                     - Execute one line
  frame                    - Show the current frame
  bt / locals / globals    - Show parts of the current frame
  build                    - Rebuild the working copy
  restart                  - Discard breakpoints and restart the debugger
  status                   - Show session status
  exit                     - Exit (or Ctrl+D)

Examples:
  cygdb shell --target main.py
  cygdb> break demo.pyx 22 25
  cygdb> run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}

			sess, err := helpers.NewSession(cfg, opts.NewLogger(cfg))
			if err != nil {
				return err
			}
			defer sess.Exit()

			sh := New(sess, cmd.OutOrStdout())

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if target != "" {
				if err := sh.Execute(ctx, "target "+target); err != nil {
					return err
				}
			}

			return sh.Loop(ctx)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Program to debug, relative to the project directory")

	return cmd
}

// Shell evaluates debugger commands and renders their results.
type Shell struct {
	dbg Debugger
	out io.Writer
}

// New creates a shell writing to out.
func New(dbg Debugger, out io.Writer) *Shell {
	return &Shell{dbg: dbg, out: out}
}

// Loop reads commands until exit or end of input.
func (s *Shell) Loop(ctx context.Context) error {
	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, constants.DefaultHistoryFile)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          s.out,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s.printf("Cython debugger shell. Type 'help' for commands, 'exit' to quit.\n\n")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			s.printf("\n")
			return nil
		}
		if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			s.printf("Error: %v\n", err)
		}
	}
}

// Execute runs one command line. It returns errExit for exit commands.
func (s *Shell) Execute(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "exit", "quit", "q":
		return errExit

	case "help", "h":
		s.printHelp()
		return nil

	case "target", "file":
		if len(args) != 1 {
			return fmt.Errorf("usage: target <script>")
		}
		output, err := s.dbg.SetTarget(ctx, args[0])
		s.printOutput(output)
		if err != nil {
			return err
		}
		s.printf("Debugging %s\n", args[0])
		return nil

	case "break", "b":
		return s.addBreakpoints(args)

	case "breakpoints", "info":
		bps := s.dbg.Breakpoints()
		if len(bps) == 0 {
			s.printf("No breakpoints.\n")
			return nil
		}
		return s.table(bps)

	case "build":
		output, err := s.dbg.Build(ctx)
		s.printOutput(output)
		return err

	case "run", "r":
		res, err := s.dbg.Run(ctx)
		var buildErr *workspace.BuildError
		if errors.As(err, &buildErr) {
			s.printOutput(buildErr.Output)
		}
		return s.progress(res, err)

	case "continue", "cont", "c":
		return s.progress(s.dbg.Continue(ctx))

	case "step", "next", "n", "s":
		return s.progress(s.dbg.Step(ctx))

	case "frame", "f":
		frame, err := s.dbg.GetFrame()
		if err != nil {
			return err
		}
		return s.printFrame(frame)

	case "bt", "backtrace", "where":
		frame, err := s.dbg.GetFrame()
		if err != nil {
			return err
		}
		s.printTrace(frame.Trace)
		return nil

	case "locals":
		frame, err := s.dbg.GetFrame()
		if err != nil {
			return err
		}
		return s.variables("Locals", frame.LocalVariables)

	case "globals":
		frame, err := s.dbg.GetFrame()
		if err != nil {
			return err
		}
		return s.variables("Globals", frame.GlobalVariables)

	case "restart":
		if err := s.dbg.Restart(ctx); err != nil {
			return err
		}
		s.printf("Restarted. Breakpoints cleared.\n")
		return nil

	case "status":
		s.printStatus(s.dbg.Status())
		return nil

	default:
		return fmt.Errorf("unknown command: %s (try help)", cmd)
	}
}

func (s *Shell) addBreakpoints(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: break <file> <line>...")
	}

	file := args[0]
	for _, arg := range args[1:] {
		line, err := strconv.Atoi(arg)
		if err != nil || line < 1 {
			return fmt.Errorf("invalid line number %q", arg)
		}

		ok, err := s.dbg.AddBreakpoint(file, line)
		if err != nil {
			return err
		}
		if ok {
			s.printf("Breakpoint at %s:%d\n", file, line)
		} else {
			s.printf("Line %s:%d cannot hold a breakpoint\n", file, line)
		}
	}
	return nil
}

func (s *Shell) progress(res session.Result, err error) error {
	if err != nil {
		return err
	}
	if res.Ended {
		s.printf("%s\n", endedStyle.Render("Program ended."))
		return nil
	}
	s.printf("Stopped at %s\n", locationStyle.Render(session.FormatLocation(res)))
	return nil
}

func (s *Shell) printHelp() {
	s.printf("%s\n", headingStyle.Render("Commands"))
	for _, c := range [][2]string{
		{"target <script>", "Set the program to debug and build it"},
		{"break <file> <line>...", "Add breakpoints"},
		{"breakpoints", "List breakpoints"},
		{"run", "Run to the first breakpoint"},
		{"continue", "Continue to the next breakpoint"},
		{"step", "Execute one line"},
		{"frame", "Show the current frame"},
		{"bt, locals, globals", "Show parts of the current frame"},
		{"build", "Rebuild the working copy"},
		{"restart", "Discard breakpoints and restart the debugger"},
		{"status", "Show session status"},
		{"exit", "Exit the shell"},
	} {
		s.printf("  %-24s %s\n", c[0], c[1])
	}
}

func (s *Shell) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}
