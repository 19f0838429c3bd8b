package mi

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/cygdb/internal/logging"
)

// Transport is the framed byte channel to the debugger.
type Transport interface {
	Send(line string) error
	ReadUntilPrompt(timeout time.Duration) []string
}

// Client issues Cython debugger (cy) commands.
//
// Client never fails on a missing or garbled response; it returns whatever
// was classified, possibly nothing, and leaves interpretation to the caller.
type Client struct {
	transport Transport
	timeout   time.Duration
	logger    zerolog.Logger

	// Last announced inspected-program pid and stopped thread; 0 when unknown.
	pid      int
	threadID int
}

// NewClient creates a client that waits up to timeout per byte of a response.
func NewClient(transport Transport, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		transport: transport,
		timeout:   timeout,
		logger:    logging.WithComponent(logger, "mi"),
	}
}

// Execute sends command and returns the classified response.
func (c *Client) Execute(command string) []ResponseLine {
	if err := c.transport.Send(command); err != nil {
		c.logger.Warn().Err(err).Str("command", command).Msg("Failed to send command")
		return nil
	}

	lines := Classify(c.transport.ReadUntilPrompt(c.timeout))

	if pid, ok := ProcessID(lines); ok {
		c.pid = pid
	}
	if tid, ok := ThreadID(lines); ok {
		c.threadID = tid
	}

	c.logger.Debug().
		Str("command", command).
		Int("lines", len(lines)).
		Msg("Command executed")

	return lines
}

// Break sets one combined breakpoint command for all locations, each in
// module:line form.
func (c *Client) Break(locations ...string) []ResponseLine {
	return c.Execute("cy break " + strings.Join(locations, " "))
}

func (c *Client) Run() []ResponseLine {
	return c.Execute("cy run")
}

func (c *Client) Continue() []ResponseLine {
	return c.Execute("cy cont")
}

// Next steps over one source line.
func (c *Client) Next() []ResponseLine {
	return c.Execute("cy next")
}

// Step steps into calls.
func (c *Client) Step() []ResponseLine {
	return c.Execute("cy step")
}

// Backtrace returns the console text of cy bt.
func (c *Client) Backtrace() []string {
	return Console(c.Execute("cy bt"))
}

func (c *Client) Locals() []string {
	return Console(c.Execute("cy locals"))
}

func (c *Client) Globals() []string {
	return Console(c.Execute("cy globals"))
}

// Exec evaluates expr in the inspected program and returns its console output.
func (c *Client) Exec(expr string) []string {
	return Console(c.Execute(fmt.Sprintf("cy exec %s", expr)))
}

// List returns the source listing around the current line.
func (c *Client) List() []string {
	return Console(c.Execute("cy list"))
}

// ProcessID returns the inspected program's pid if the debugger announced it.
func (c *Client) ProcessID() (int, bool) {
	return c.pid, c.pid != 0
}

// ThreadID returns the thread of the most recent stop.
func (c *Client) ThreadID() (int, bool) {
	return c.threadID, c.threadID != 0
}

// Reset forgets what was learned from a previous debugger process.
func (c *Client) Reset() {
	c.pid, c.threadID = 0, 0
}
