package transport

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/cygdb/internal/testutil"
)

// echoDebugger prints a banner and then answers every input line with a
// console record followed by the prompt. The pty turns \n into \r\n.
const echoDebugger = `printf 'GNU gdb (fake)\n(gdb) \n'
while read line; do
  printf '~"%s"\n(gdb) \n' "$line"
done`

func spawnShell(t *testing.T, script string) *Process {
	t.Helper()

	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	p, err := Spawn([]string{"/bin/sh", "-c", script}, Options{
		ReadTimeout:      2 * time.Second,
		TerminateTimeout: time.Second,
		Logger:           testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(p.Terminate)

	return p
}

func TestProcess_SendAndReadUntilPrompt(t *testing.T) {
	p := spawnShell(t, echoDebugger)

	require.NoError(t, p.Send("cy bt"))
	lines := p.ReadUntilPrompt(2 * time.Second)

	assert.Contains(t, lines, `~"cy bt"`)
	assert.Equal(t, "(gdb) ", lines[len(lines)-1])
	assert.NotContains(t, lines, "GNU gdb (fake)", "banner belongs to spawn")

	require.NoError(t, p.Send("cy locals"))
	lines = p.ReadUntilPrompt(2 * time.Second)
	assert.Contains(t, lines, `~"cy locals"`)
	assert.NotContains(t, lines, `~"cy bt"`)
}

func TestProcess_ReadTimeoutReturnsPartial(t *testing.T) {
	p := spawnShell(t, `printf '(gdb) \n'
read line
printf 'still running'
sleep 30`)

	require.NoError(t, p.Send("cy cont"))

	start := time.Now()
	lines := p.ReadUntilPrompt(300 * time.Millisecond)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, lines, "still running")
}

func TestProcess_Terminate(t *testing.T) {
	p := spawnShell(t, echoDebugger)
	require.NotZero(t, p.PID())

	p.Terminate()
	p.Terminate()

	select {
	case <-p.Exited():
	case <-time.After(2 * time.Second):
		t.Fatal("process was not reaped")
	}

	assert.ErrorIs(t, p.Send("cy bt"), ErrClosed)
}

func TestProcess_TerminateDuringRead(t *testing.T) {
	p := spawnShell(t, `printf '(gdb) \n'
read line
printf 'running'
sleep 30`)

	require.NoError(t, p.Send("cy cont"))

	done := make(chan []string, 1)
	go func() {
		done <- p.ReadUntilPrompt(20 * time.Second)
	}()

	time.Sleep(200 * time.Millisecond)
	p.Terminate()

	select {
	case lines := <-done:
		assert.NotContains(t, lines, "(gdb) ")
	case <-time.After(5 * time.Second):
		t.Fatal("read was not unblocked by Terminate")
	}

	require.NoError(t, p.Respawn())
	assert.NoError(t, p.Send("cy run"))
}

func TestProcess_Respawn(t *testing.T) {
	p := spawnShell(t, echoDebugger)
	firstPID := p.PID()

	require.NoError(t, p.Respawn())
	assert.NotEqual(t, firstPID, p.PID())

	require.NoError(t, p.Send("cy run"))
	assert.Contains(t, p.ReadUntilPrompt(2*time.Second), `~"cy run"`)
}

func TestSpawn_Errors(t *testing.T) {
	_, err := Spawn([]string{"/nonexistent/gdb", "--nx"}, Options{Logger: testutil.NewTestLogger(t)})
	require.Error(t, err)

	var spawnErr *ProcessSpawnError
	require.True(t, errors.As(err, &spawnErr))
	assert.Equal(t, "/nonexistent/gdb", spawnErr.Argv[0])
	assert.Contains(t, err.Error(), "/nonexistent/gdb")

	_, err = Spawn(nil, Options{})
	assert.True(t, errors.As(err, &spawnErr))
}
