package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/cygdb/internal/constants"
	"github.com/coral-mesh/cygdb/internal/workspace"
)

// demoSource has a main() whose body spans lines 16-44, one statement per line.
func demoSource() string {
	lines := []string{"# demo module", "import math", ""}
	for i := 4; i <= 14; i++ {
		lines = append(lines, fmt.Sprintf("# filler %d", i))
	}
	lines = append(lines, "def main():")
	for i := 16; i <= 44; i++ {
		lines = append(lines, fmt.Sprintf("    total = total + %d", i))
	}
	return strings.Join(lines, "\n") + "\n"
}

// fakeWorkspace keeps a pristine copy of the project in memory.
type fakeWorkspace struct {
	dir      string
	files    map[string]string
	syncs    int
	builds   int
	buildErr error
}

func newFakeWorkspace(t *testing.T) *fakeWorkspace {
	return &fakeWorkspace{
		dir: t.TempDir(),
		files: map[string]string{
			"main.py":  "import demo\ndemo.main()\n",
			"demo.pyx": demoSource(),
		},
	}
}

func (w *fakeWorkspace) Dir() string { return w.dir }

func (w *fakeWorkspace) Sync(context.Context) error {
	w.syncs++
	for name, content := range w.files {
		if err := os.WriteFile(filepath.Join(w.dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (w *fakeWorkspace) Build(context.Context) ([]string, error) {
	w.builds++
	if w.buildErr != nil {
		return nil, w.buildErr
	}
	return []string{"cythoning demo.pyx"}, nil
}

func (w *fakeWorkspace) WriteCommandFile() (*workspace.CommandFile, error) {
	return &workspace.CommandFile{
		Path:        filepath.Join(w.dir, constants.DebugInfoDir, constants.CommandFile),
		Interpreter: "/usr/bin/python3-dbg",
	}, nil
}

// fakeGDB simulates the Cython debugger running demo.pyx: main() executes
// every line of its body in order, markers included.
type fakeGDB struct {
	t      *testing.T
	source string

	// stopEarly reports a breakpoint hit on the line before the breakpoint,
	// as gdb does when the stop lands on the inserted marker.
	stopEarly bool

	spawns     int
	respawns   int
	terminated bool
	argv       []string
	sent       []string
	reply      []string

	breaks  map[int]bool
	path    []int
	pos     int
	started bool
}

func newFakeGDB(t *testing.T, source string) *fakeGDB {
	return &fakeGDB{t: t, source: source}
}

func (g *fakeGDB) spawn(argv []string) (Process, error) {
	g.spawns++
	g.argv = argv
	g.reset()
	return g, nil
}

func (g *fakeGDB) reset() {
	g.terminated = false
	g.breaks = map[int]bool{}
	g.path = nil
	g.pos = -1
	g.started = false
}

func (g *fakeGDB) Send(line string) error {
	if g.terminated {
		return fmt.Errorf("terminated")
	}
	g.sent = append(g.sent, line)
	g.reply = g.handle(line)
	return nil
}

func (g *fakeGDB) ReadUntilPrompt(time.Duration) []string {
	reply := append([]string{}, g.reply...)
	g.reply = nil
	return append(reply, "(gdb) ")
}

func (g *fakeGDB) Respawn() error {
	g.respawns++
	g.reset()
	return nil
}

func (g *fakeGDB) Terminate() { g.terminated = true }

func (g *fakeGDB) PID() int { return 0 }

func (g *fakeGDB) handle(cmd string) []string {
	switch {
	case strings.HasPrefix(cmd, "cy break "):
		for _, loc := range strings.Fields(strings.TrimPrefix(cmd, "cy break ")) {
			stem, line, ok := strings.Cut(loc, ":")
			require.True(g.t, ok, loc)
			require.Equal(g.t, "demo", stem)
			n, err := strconv.Atoi(line)
			require.NoError(g.t, err)
			g.breaks[n] = true
		}
		return []string{`&"` + cmd + `\n"`, `~"Breakpoint 1 (demo:22) pending.\n"`, "^done"}

	case cmd == "cy run":
		g.load()
		g.started = true
		return append([]string{`=thread-group-started,id="i1",pid="4242"`, "^running"}, g.resume()...)

	case cmd == "cy cont":
		return append([]string{"^running"}, g.resume()...)

	case cmd == "cy next":
		g.pos++
		if g.pos >= len(g.path) {
			return []string{"^running", `*stopped,reason="exited-normally"`}
		}
		return []string{"^running", `*stopped,reason="end-stepping-range",thread-id="1"`}

	case cmd == "cy bt":
		if !g.started || g.pos < 0 || g.pos >= len(g.path) {
			return []string{`&"cy bt\n"`, `^error,msg="No stack."`}
		}
		line := g.path[g.pos]
		code := strings.TrimSpace(g.lines()[line-1])
		return []string{
			`~"#0  0x00000000005d8a4c in <module>() at ` + filepath.Join(filepath.Dir(g.source), "main.py") + `:2\n"`,
			`~"        2    demo.main()\n"`,
			fmt.Sprintf(`~"#1  0x00007ffff6e31c2f in main() at %s:%d\n"`, g.source, line),
			fmt.Sprintf(`~"        %d        %s\n"`, line, code),
			"^done",
		}

	case cmd == "cy locals":
		return []string{
			`~"  total = (long) 42\n"`,
			`~"  names = ['sam', 'emma']\n"`,
			`~"  cache = (PyObject *) 0x7ffff6f4a0b0\n"`,
			"^done",
		}

	case cmd == "cy globals":
		return []string{
			`~"Python globals:\n"`,
			`~"    __name__ = 'demo'\n"`,
			`~"C globals:\n"`,
			`~"    counter = 3\n"`,
			"^done",
		}

	case cmd == "cy exec type(cache)":
		return []string{"<class 'dict'>", "^done"}
	}

	return []string{"^done"}
}

func (g *fakeGDB) lines() []string {
	data, err := os.ReadFile(g.source)
	require.NoError(g.t, err)
	return strings.Split(string(data), "\n")
}

// load computes the executed physical lines: main's body, lines 16-44 of
// the original, plus any markers inserted among them.
func (g *fakeGDB) load() {
	logical := 0
	for i, line := range g.lines() {
		// A marker belongs to the line below it.
		n := logical + 1
		if strings.TrimSpace(line) != constants.MarkerStatement {
			logical++
		}
		if n >= 16 && n <= 44 {
			g.path = append(g.path, i+1)
		}
	}
}

// resume runs from the next line to the next breakpoint or the end.
func (g *fakeGDB) resume() []string {
	for i := g.pos + 1; i < len(g.path); i++ {
		if g.breaks[g.path[i]] {
			g.pos = i
			if g.stopEarly && i > 0 {
				g.pos = i - 1
			}
			return []string{`*stopped,reason="breakpoint-hit",thread-id="1"`}
		}
	}
	g.pos = len(g.path)
	return []string{`*stopped,reason="exited-normally"`}
}
