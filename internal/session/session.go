// Package session drives one Cython debugging session: it prepares the
// working copy, places breakpoints, runs the program under gdb and captures
// the frame at every stop.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/cygdb/internal/breakpoint"
	"github.com/coral-mesh/cygdb/internal/constants"
	"github.com/coral-mesh/cygdb/internal/gdb/mi"
	"github.com/coral-mesh/cygdb/internal/gdb/transport"
	"github.com/coral-mesh/cygdb/internal/logging"
	"github.com/coral-mesh/cygdb/internal/parse"
	"github.com/coral-mesh/cygdb/internal/stepping"
	"github.com/coral-mesh/cygdb/internal/sys/proc"
	"github.com/coral-mesh/cygdb/internal/workspace"
)

var (
	// ErrNotConfigured is returned by Run before a debug target was set.
	ErrNotConfigured = errors.New("no program to debug has been set")

	// ErrNotRunning is returned by Continue and Step before Run.
	ErrNotRunning = errors.New("program is not running")

	// ErrNoFrame is returned by GetFrame before the first stop.
	ErrNoFrame = errors.New("no frame captured yet")
)

// Process is a running debugger.
type Process interface {
	mi.Transport
	Respawn() error
	Terminate()
	PID() int
}

// SpawnFunc starts a debugger with argv.
type SpawnFunc func(argv []string) (Process, error)

// PTYSpawner starts debuggers on a pseudo-terminal.
func PTYSpawner(opts transport.Options) SpawnFunc {
	return func(argv []string) (Process, error) {
		p, err := transport.Spawn(argv, opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Workspace prepares the working copy the debugger runs against.
type Workspace interface {
	Dir() string
	Sync(ctx context.Context) error
	Build(ctx context.Context) ([]string, error)
	WriteCommandFile() (*workspace.CommandFile, error)
}

// Options configures a Session.
type Options struct {
	GDBPath     string
	ReadTimeout time.Duration
	Stepping    stepping.Config
	Spawn       SpawnFunc
	Logger      zerolog.Logger
}

// Session serializes all operations on the single debugger it owns.
type Session struct {
	mu sync.Mutex

	opts   Options
	ws     Workspace
	virt   *breakpoint.Virtualizer
	logger zerolog.Logger
	id     string

	// script is the program passed to the interpreter, inside the working copy.
	script      string
	commandFile *workspace.CommandFile
	breakpoints []Breakpoint

	proc   Process
	client *mi.Client
	engine *stepping.Engine
	parser *parse.Parser

	// dirty is set when sources changed since the last build; stale when
	// the debugger process predates the last build.
	dirty   bool
	stale   bool
	running bool
	ended   bool

	// layout and runTargets describe the build the debugger is running. They
	// are fixed at Run and lag behind breakpoints added while running.
	layout     *breakpoint.Layout
	runTargets []stepping.Target

	frame *Frame
}

// New creates an idle Session.
func New(ws Workspace, opts Options) *Session {
	if opts.GDBPath == "" {
		opts.GDBPath = constants.DefaultGDBPath
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = constants.DefaultReadTimeout
	}

	s := &Session{
		opts: opts,
		ws:   ws,
		virt: breakpoint.NewVirtualizer(opts.Logger),
	}
	s.renew()
	return s
}

// renew starts a new session generation.
func (s *Session) renew() {
	s.id = uuid.New().String()
	s.logger = logging.WithComponent(s.opts.Logger, "session").With().Str("session_id", s.id).Logger()
}

// ID identifies the current session generation.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SetTarget selects the program to debug, given relative to the project.
// The working copy is synced and built; build output is returned. Existing
// breakpoints and the debugger are discarded.
func (s *Session) SetTarget(ctx context.Context, script string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopDebugger()
	s.resetState()
	s.renew()

	if err := s.ws.Sync(ctx); err != nil {
		return nil, fmt.Errorf("failed to sync working copy: %w", err)
	}

	s.script = filepath.Join(s.ws.Dir(), script)

	output, err := s.build(ctx)
	if err != nil {
		return output, err
	}
	s.trackScript()

	s.logger.Info().Str("script", s.script).Msg("Debug target set")
	return output, nil
}

// Build rebuilds the working copy and returns the build output.
func (s *Session) Build(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.build(ctx)
}

// build compiles the working copy and regenerates the command file.
func (s *Session) build(ctx context.Context) ([]string, error) {
	output, err := s.ws.Build(ctx)
	if err != nil {
		var buildErr *workspace.BuildError
		if errors.As(err, &buildErr) {
			output = buildErr.Output
		}
		return output, err
	}

	cf, err := s.ws.WriteCommandFile()
	if err != nil {
		return output, err
	}

	s.commandFile = cf
	s.dirty = false
	s.stale = true
	return output, nil
}

// trackScript maps the main script so its frames report logical lines even
// before it holds a breakpoint.
func (s *Session) trackScript() {
	if err := s.virt.Track(s.script); err != nil {
		s.logger.Debug().Err(err).Str("script", s.script).Msg("Main script not tracked")
	}
}

func (s *Session) argv() []string {
	return workspace.DebuggerArgv(s.opts.GDBPath, s.commandFile, s.script)
}

// resolve returns the working-copy path of a project-relative file.
func (s *Session) resolve(file string) string {
	if filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	return filepath.Join(s.ws.Dir(), file)
}

// AddBreakpoint registers a breakpoint at a logical line of file. It reports
// false, without error, when the line cannot hold a breakpoint. Adding the
// same breakpoint twice is accepted once. Breakpoints take effect on the
// next Run: the source is rewritten at once, but the running program keeps
// the layout it was built from.
func (s *Session) AddBreakpoint(file string, line int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.resolve(file)
	for _, bp := range s.breakpoints {
		if bp.File == path && bp.Logical == line {
			return true, nil
		}
	}

	physical, err := s.virt.EnsureBreakable(path, line)
	switch {
	case errors.Is(err, breakpoint.ErrNotBreakable), errors.Is(err, breakpoint.ErrLineOutOfRange):
		s.logger.Info().Err(err).Str("file", file).Int("line", line).Msg("Breakpoint rejected")
		return false, nil
	case err != nil:
		return false, err
	}

	s.breakpoints = append(s.breakpoints, Breakpoint{File: path, Logical: line, Physical: physical})
	s.dirty = true

	s.logger.Info().
		Str("file", file).
		Int("line", line).
		Int("physical_line", physical).
		Msg("Breakpoint added")

	return true, nil
}

// Breakpoints lists the registered breakpoints with their current physical lines.
func (s *Session) Breakpoints() []Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Breakpoint, len(s.breakpoints))
	for i, bp := range s.breakpoints {
		if physical, err := s.virt.Translate(bp.File, bp.Logical); err == nil {
			bp.Physical = physical
		}
		out[i] = bp
	}
	return out
}

// Run starts the program under a fresh debugger and advances to the first
// breakpoint reached.
func (s *Session) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.script == "" {
		return Result{}, ErrNotConfigured
	}

	if s.dirty || s.commandFile == nil {
		if _, err := s.build(ctx); err != nil {
			return Result{}, err
		}
	}

	if s.proc == nil || s.running || s.stale {
		if err := s.startDebugger(); err != nil {
			return Result{}, err
		}
	}

	s.layout = s.virt.Snapshot()
	targets, err := s.targets()
	if err != nil {
		return Result{}, err
	}
	s.runTargets = targets

	if len(targets) > 0 {
		locations := make([]string, len(targets))
		for i, t := range targets {
			locations[i] = fmt.Sprintf("%s:%d", parse.Stem(t.File), t.Line)
		}
		s.client.Break(locations...)
	}

	s.running = true
	s.ended = false
	s.frame = nil

	s.logger.Info().Int("breakpoints", len(targets)).Msg("Running program")

	if mi.Exited(s.client.Run()) {
		return s.finish(), nil
	}
	return s.advance(ctx, targets)
}

// Continue resumes the program until the next breakpoint or its end.
func (s *Session) Continue(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil || !s.running {
		return Result{}, ErrNotRunning
	}
	if s.ended {
		return endedResult(), nil
	}

	if mi.Exited(s.client.Continue()) {
		return s.finish(), nil
	}
	return s.advance(ctx, s.runTargets)
}

// Step executes one source line and captures the frame there, whether or
// not it is a breakpoint.
func (s *Session) Step(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil || !s.running {
		return Result{}, ErrNotRunning
	}
	if s.ended {
		return endedResult(), nil
	}

	if mi.Exited(s.client.Next()) {
		return s.finish(), nil
	}

	trace := parse.Backtrace(s.client.Backtrace())
	if len(trace) == 0 {
		return s.finish(), nil
	}

	s.captureFrame(ctx, trace)
	return stoppedResult(s.frame), nil
}

// GetFrame returns the frame captured at the last stop.
func (s *Session) GetFrame() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return Frame{}, ErrNoFrame
	}
	return s.frame.clone(), nil
}

// Restart discards breakpoints and rewritten sources, rebuilds the working
// copy and respawns the debugger.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hadDebugger := s.proc != nil
	if hadDebugger {
		s.proc.Terminate()
	}

	s.resetState()
	s.renew()

	if err := s.ws.Sync(ctx); err != nil {
		s.stopDebugger()
		return fmt.Errorf("failed to sync working copy: %w", err)
	}

	if s.script == "" {
		s.stopDebugger()
		return nil
	}

	if _, err := s.build(ctx); err != nil {
		s.stopDebugger()
		return err
	}
	s.trackScript()

	if !hadDebugger {
		return nil
	}

	if err := s.proc.Respawn(); err != nil {
		s.proc = nil
		return err
	}
	s.client.Reset()
	s.stale = false

	s.logger.Info().Int("pid", s.proc.PID()).Msg("Session restarted")
	return nil
}

// Exit terminates the debugger. Breakpoints are kept for the next Run.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopDebugger()
	s.frame = nil
	s.logger.Info().Msg("Debugger exited")
}

// Close is Exit for use with defer.
func (s *Session) Close() error {
	s.Exit()
	return nil
}

func (s *Session) resetState() {
	s.breakpoints = nil
	s.virt.Reset()
	s.frame = nil
	s.running = false
	s.ended = false
	s.dirty = false
}

func (s *Session) startDebugger() error {
	s.stopDebugger()

	p, err := s.opts.Spawn(s.argv())
	if err != nil {
		return err
	}

	s.proc = p
	s.client = mi.NewClient(p, s.opts.ReadTimeout, s.logger)
	s.parser = parse.NewParser(s.client)
	s.engine = stepping.New(debugger{s.client}, s.opts.Stepping, s.logger)
	s.stale = false

	s.logger.Info().Int("pid", p.PID()).Msg("Debugger started")
	return nil
}

func (s *Session) stopDebugger() {
	if s.proc != nil {
		s.proc.Terminate()
	}
	s.proc = nil
	s.client = nil
	s.engine = nil
	s.parser = nil
	s.running = false
	s.ended = false
	s.layout = nil
	s.runTargets = nil
}

// targets translates the breakpoints to physical lines of the running layout.
func (s *Session) targets() ([]stepping.Target, error) {
	targets := make([]stepping.Target, 0, len(s.breakpoints))
	for _, bp := range s.breakpoints {
		physical, err := s.layout.Translate(bp.File, bp.Logical)
		if err != nil {
			return nil, err
		}
		targets = append(targets, stepping.Target{File: bp.File, Line: physical})
	}
	return targets, nil
}

// advance steps to the next target. The stepping ceilings bound it, not
// the caller's context.
func (s *Session) advance(ctx context.Context, targets []stepping.Target) (Result, error) {
	if len(targets) == 0 {
		return s.finish(), nil
	}

	trace, err := s.engine.AdvanceTo(context.WithoutCancel(ctx), targets)
	switch {
	case errors.Is(err, stepping.ErrNotStopped):
		return s.finish(), nil
	case err != nil:
		s.logger.Warn().Err(err).Msg("Program stalled")
		return Result{}, err
	}

	s.captureFrame(ctx, trace)

	s.logger.Info().
		Str("file", s.frame.Filename).
		Int("line", s.frame.Lineno).
		Msg("Stopped at breakpoint")

	return stoppedResult(s.frame), nil
}

// finish records that the program has ended.
func (s *Session) finish() Result {
	s.ended = true
	s.frame = &Frame{}
	s.logger.Info().Msg("Program ended")
	return endedResult()
}

// captureFrame rebuilds the frame from a non-empty backtrace.
func (s *Session) captureFrame(ctx context.Context, trace []parse.StackEntry) {
	trace = s.logicalTrace(trace)
	top, _ := parse.Top(trace)

	frame := &Frame{
		LocalVariables:  s.parser.Locals(s.client.Locals()),
		GlobalVariables: s.parser.Globals(s.client.Globals()),
		Trace:           trace,
		Lineno:          top.Lineno,
		Filename:        top.Filename,
		FunctionName:    strings.TrimSuffix(top.FunctionOrObject, "()"),
	}

	if pid, ok := s.client.ProcessID(); ok {
		frame.ProcessID = pid
	} else if gdbPID := s.proc.PID(); gdbPID > 0 {
		if info, err := proc.InspectedProcess(ctx, int32(gdbPID)); err == nil {
			frame.ProcessID = int(info.PID)
		}
	}
	if tid, ok := s.client.ThreadID(); ok {
		frame.ThreadID = tid
	}

	s.frame = frame
}

// logicalTrace reports line numbers of rewritten files as the user's
// logical lines.
func (s *Session) logicalTrace(trace []parse.StackEntry) []parse.StackEntry {
	out := make([]parse.StackEntry, len(trace))
	for i, e := range trace {
		if logical, ok := s.layout.Logical(e.FileParent+e.Filename, e.Lineno); ok {
			e.Lineno = logical
		}
		out[i] = e
	}
	return out
}

// debugger adapts the command client to the stepping engine.
type debugger struct {
	client *mi.Client
}

func (d debugger) Backtrace() []parse.StackEntry {
	return parse.Backtrace(d.client.Backtrace())
}

func (d debugger) Next() {
	d.client.Next()
}

// Status summarizes the session for health reporting.
type Status struct {
	ID          string `json:"session_id"`
	Script      string `json:"script,omitempty"`
	Breakpoints int    `json:"breakpoints"`
	DebuggerPID int    `json:"debugger_pid,omitempty"`
	Running     bool   `json:"running"`
	Ended       bool   `json:"ended"`

	// TrackedFiles are the sources the breakpoint virtualizer has mapped.
	TrackedFiles []string `json:"tracked_files,omitempty"`
}

// Status returns a snapshot of the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:          s.id,
		Script:      s.script,
		Breakpoints: len(s.breakpoints),
		Running:     s.running,
		Ended:       s.ended,

		TrackedFiles: s.virt.Files(),
	}
	if s.proc != nil {
		st.DebuggerPID = s.proc.PID()
	}
	return st
}

// FormatLocation renders a result location as file:line.
func FormatLocation(r Result) string {
	if r.Ended || r.Breakpoint == nil {
		return "ended"
	}
	return r.Breakpoint.Filename + ":" + r.Breakpoint.Lineno
}
