// Package transport runs the native debugger on a pseudo-terminal and frames
// its output into responses delimited by the interactive prompt.
package transport

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kr/pty"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/coral-mesh/cygdb/internal/constants"
	cerrors "github.com/coral-mesh/cygdb/internal/errors"
	"github.com/coral-mesh/cygdb/internal/logging"
)

// Options configures a debugger process.
type Options struct {
	// Prompt is the exact byte sequence that ends every response.
	Prompt string

	// ReadTimeout is used to absorb the startup banner.
	ReadTimeout time.Duration

	// TerminateTimeout bounds the wait for a killed process to be reaped.
	TerminateTimeout time.Duration

	// Dir is the working directory of the process.
	Dir string

	// Env is appended to the current environment.
	Env []string

	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Prompt == "" {
		o.Prompt = constants.DefaultPrompt
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = constants.DefaultReadTimeout
	}
	if o.TerminateTimeout <= 0 {
		o.TerminateTimeout = constants.DefaultTerminateTimeout
	}
	return o
}

// Process owns one debugger subprocess attached to a pty.
//
// Send, ReadUntilPrompt and Respawn must be called from one goroutine at a
// time. Terminate may be called from any goroutine, and unblocks a pending
// ReadUntilPrompt.
type Process struct {
	opts   Options
	logger zerolog.Logger
	argv   []string

	mu         sync.Mutex
	cmd        *exec.Cmd
	ptmx       *os.File
	chunks     <-chan []byte
	exited     chan struct{}
	stop       chan struct{}
	terminated bool

	// pending holds bytes received after the last prompt. It is owned by the
	// reading goroutine and not guarded by mu.
	pending []byte
}

// Spawn starts argv on a new pty and absorbs its startup banner up to the
// first prompt.
func Spawn(argv []string, opts Options) (*Process, error) {
	if len(argv) == 0 {
		return nil, &ProcessSpawnError{Argv: argv, Err: errors.New("empty command line")}
	}

	opts = opts.withDefaults()
	p := &Process{
		opts:   opts,
		logger: logging.WithComponent(opts.Logger, "transport"),
		argv:   append([]string(nil), argv...),
	}

	if err := p.start(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Process) start() error {
	path, err := exec.LookPath(p.argv[0])
	if err != nil {
		return &ProcessSpawnError{Argv: p.argv, Err: err}
	}

	// Open PTY manually for better control in containerized environments.
	ptmx, tty, err := pty.Open()
	if err != nil {
		return &ProcessSpawnError{Argv: p.argv, Err: fmt.Errorf("failed to open PTY: %w", err)}
	}

	//nolint:gosec // G204: the command line is assembled from operator configuration.
	cmd := exec.Command(path, p.argv[1:]...)
	cmd.Dir = p.opts.Dir
	cmd.Env = append(os.Environ(), p.opts.Env...)
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0,
	}

	if err := cmd.Start(); err != nil {
		_ = tty.Close()
		_ = ptmx.Close()
		return &ProcessSpawnError{Argv: p.argv, Err: err}
	}

	// The child holds its own copy of the slave side.
	_ = tty.Close()

	chunks := make(chan []byte, 64)
	exited := make(chan struct{})
	stop := make(chan struct{})

	go pump(ptmx, chunks, stop)
	go func() {
		err := cmd.Wait()
		p.logger.Debug().Err(err).Int("pid", cmd.Process.Pid).Msg("Debugger process exited")
		close(exited)
	}()

	p.pending = nil

	p.mu.Lock()
	p.cmd = cmd
	p.ptmx = ptmx
	p.chunks = chunks
	p.exited = exited
	p.stop = stop
	p.terminated = false
	p.mu.Unlock()

	p.logger.Info().
		Int("pid", cmd.Process.Pid).
		Str("command", strings.Join(p.argv, " ")).
		Msg("Debugger process started")

	banner := p.ReadUntilPrompt(p.opts.ReadTimeout)
	p.logger.Debug().Int("lines", len(banner)).Msg("Startup banner absorbed")

	return nil
}

// pump forwards everything read from the pty until it is closed, the child
// hangs up, or the process is terminated.
func pump(ptmx *os.File, out chan<- []byte, done <-chan struct{}) {
	defer close(out)

	buf := make([]byte, 4096)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- chunk:
			case <-done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Send writes line followed by a newline to the debugger.
func (p *Process) Send(line string) error {
	p.mu.Lock()
	ptmx, terminated := p.ptmx, p.terminated
	p.mu.Unlock()

	if ptmx == nil || terminated {
		return ErrClosed
	}

	p.logger.Trace().Str("command", line).Msg("Sending")

	if _, err := ptmx.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write to debugger: %w", err)
	}
	return nil
}

// ReadUntilPrompt collects output until it ends with the prompt and returns
// it cleaned and split into lines. When no byte arrives for timeout, or the
// process hangs up, whatever was collected so far is returned.
func (p *Process) ReadUntilPrompt(timeout time.Duration) []string {
	raw := p.readRaw(timeout)
	p.logger.Trace().Str("raw", raw).Msg("Received")
	return SplitLines(Clean(raw))
}

func (p *Process) readRaw(timeout time.Duration) string {
	p.mu.Lock()
	chunks := p.chunks
	p.mu.Unlock()

	if chunks == nil {
		return ""
	}

	prompt := []byte(p.opts.Prompt)
	var buf []byte

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		for len(p.pending) > 0 {
			buf = append(buf, p.pending[0])
			p.pending = p.pending[1:]
			if bytes.HasSuffix(buf, prompt) {
				return string(buf)
			}
		}

		timer.Reset(timeout)

		select {
		case chunk, ok := <-chunks:
			if !ok {
				return string(buf)
			}
			p.pending = chunk
		case <-timer.C:
			p.logger.Debug().
				Int("bytes", len(buf)).
				Dur("timeout", timeout).
				Msg("Prompt not seen before timeout, returning partial response")
			return string(buf)
		}
	}
}

// Terminate kills the debugger and its process group. It is idempotent.
func (p *Process) Terminate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.terminated {
		return
	}
	p.terminated = true

	pid := p.cmd.Process.Pid
	// Setsid made the debugger a group leader; the inspected program is in
	// the same group.
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		p.logger.Warn().Err(err).Int("pid", pid).Msg("Failed to kill process group")
		_ = p.cmd.Process.Kill()
	}

	close(p.stop)
	cerrors.DeferClose(p.logger, p.ptmx, "failed to close pty")

	select {
	case <-p.exited:
	case <-time.After(p.opts.TerminateTimeout):
		p.logger.Warn().Int("pid", pid).Msg("Debugger process not reaped before timeout")
	}

	p.logger.Info().Int("pid", pid).Msg("Debugger process terminated")
}

// Respawn terminates the current process and starts the same command line again.
func (p *Process) Respawn() error {
	p.Terminate()
	return p.start()
}

// PID returns the debugger's process id, or 0 before it started.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Exited is closed once the current debugger process has been reaped.
func (p *Process) Exited() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

// Argv returns the command line the process was started with.
func (p *Process) Argv() []string {
	return append([]string(nil), p.argv...)
}
