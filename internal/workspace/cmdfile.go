package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/coral-mesh/cygdb/internal/constants"
	"github.com/coral-mesh/cygdb/internal/safe"
)

var commandFileTemplate = template.Must(template.New("gdb").Parse(`# This is a gdb command file
# See https://sourceware.org/gdb/onlinedocs/gdb/Command-Files.html

set breakpoint pending on
set print pretty on

python
try:
    # Activate virtualenv, if we were launched from one
    import os
    virtualenv = os.getenv('VIRTUAL_ENV')
    if virtualenv:
        path_to_activate_this_py = os.path.join(virtualenv, 'bin', 'activate_this.py')
        print("gdb command file: Activating virtualenv: %s" % virtualenv)
        with open(path_to_activate_this_py) as f:
            exec(f.read(), dict(__file__=path_to_activate_this_py))
    from Cython.Debugger import libcython, libpython
except Exception as ex:
    from traceback import print_exc
    print("There was an error in Python code of the gdb command file")
    print_exc()
    exit(1)
end

file {{.Interpreter}}
{{range .DebugInfo}}cy import {{.}}
{{end}}
python
import sys
try:
    gdb.lookup_type('PyModuleObject')
except RuntimeError:
    sys.stderr.write(
        "{{.Interpreter}} was not compiled with debug symbols (or it was "
        "stripped). Some functionality may not work (properly).\n")
end

source {{.InitFile}}
`))

// CommandFile is a generated gdb startup command file.
type CommandFile struct {
	// Path of the written file.
	Path string

	// Interpreter is the debug interpreter recorded by the build.
	Interpreter string

	// DebugInfo lists the Cython debug info files imported.
	DebugInfo []string
}

// WriteCommandFile generates the gdb command file for the built working copy
// at dir. The build must have produced the interpreter descriptor and the
// debug info files under cython_debug.
func WriteCommandFile(dir string) (*CommandFile, error) {
	debugDir := filepath.Join(dir, constants.DebugInfoDir)

	raw, err := safe.ReadFile(filepath.Join(debugDir, constants.InterpreterFile), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read interpreter descriptor: %w", err)
	}
	interpreter := strings.TrimSpace(string(raw))
	if interpreter == "" {
		return nil, fmt.Errorf("interpreter descriptor in %s is empty", debugDir)
	}

	debugInfo, err := filepath.Glob(filepath.Join(debugDir, constants.DebugInfoGlob))
	if err != nil {
		return nil, fmt.Errorf("failed to list debug info: %w", err)
	}
	sort.Strings(debugInfo)

	cf := &CommandFile{
		Path:        filepath.Join(debugDir, constants.CommandFile),
		Interpreter: interpreter,
		DebugInfo:   debugInfo,
	}

	var b strings.Builder
	if err := commandFileTemplate.Execute(&b, struct {
		*CommandFile
		InitFile string
	}{cf, constants.DebuggerInitFile}); err != nil {
		return nil, fmt.Errorf("failed to render command file: %w", err)
	}

	//nolint:gosec // G301: gdb reads the directory as the same user.
	if err := os.MkdirAll(debugDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", debugDir, err)
	}
	if err := safe.WriteFile(cf.Path, []byte(b.String()), &safe.FileOptions{Perm: 0644}); err != nil {
		return nil, fmt.Errorf("failed to write command file: %w", err)
	}

	return cf, nil
}

// DebuggerArgv returns the gdb command line: no init files, MI output, the
// generated command file, and the interpreter running script.
func DebuggerArgv(gdbPath string, cf *CommandFile, script string) []string {
	return []string{
		gdbPath,
		"--nx",
		"--interpreter=mi3",
		"--quiet",
		"-command", cf.Path,
		"--args", cf.Interpreter, script,
	}
}
