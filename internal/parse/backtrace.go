// Package parse turns Cython debugger console text into structured records.
//
// Every parser is best effort: a line or frame that does not match its
// pattern produces no record and no error.
package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// StackEntry is one frame of a cy bt backtrace.
type StackEntry struct {
	Filename         string `json:"filename"`
	FileParent       string `json:"file_parent,omitempty"`
	Lineno           int    `json:"lineno,string"`
	Code             string `json:"code,omitempty"`
	FunctionOrObject string `json:"function_or_object"`
	MemoryAddress    string `json:"memory_address,omitempty"`
}

// Stem returns the file name up to its first dot, the form used to name
// Cython modules in breakpoint locations.
func (e StackEntry) Stem() string {
	return Stem(e.Filename)
}

// Stem returns the base name of path up to its first dot.
func Stem(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

// Frames in a dump start with "#<n>" at the beginning of a line.
var frameDelimiter = regexp.MustCompile(`(?m)^#`)

// frameHeader matches
//
//	0  0x00007ffff7a4b5c0 in estimate_pi_cy() at /work/monte_carlo.pyx:22
//
// The address and the directory are optional. The source line usually
// follows on the next line but may share the header's.
var frameHeader = regexp.MustCompile(
	`^\s*(\d+)\s+(?:(0x[0-9a-fA-F]+) in )?(.*?) at (.*/)?([^/\s]+?):(\d+)(?:\s+(.*))?$`,
)

// sourceLine strips the line number gdb prints in front of the code.
var sourceLine = regexp.MustCompile(`^\s*(?:\d+\s+)?(.*?)\s*$`)

// Backtrace parses the console lines of cy bt. Frames are returned in the
// order printed: outermost first, the current frame last.
func Backtrace(lines []string) []StackEntry {
	dump := strings.Join(lines, "\n")

	var entries []StackEntry
	for _, segment := range frameDelimiter.Split(dump, -1) {
		if entry, ok := parseFrame(segment); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func parseFrame(segment string) (StackEntry, bool) {
	header, rest, _ := strings.Cut(strings.TrimRight(segment, " \t\r\n"), "\n")

	m := frameHeader.FindStringSubmatch(strings.TrimRight(header, " \t\r"))
	if m == nil {
		return StackEntry{}, false
	}

	lineno, err := strconv.Atoi(m[6])
	if err != nil {
		return StackEntry{}, false
	}

	code := m[7]
	if code == "" {
		code, _, _ = strings.Cut(rest, "\n")
	}
	if sm := sourceLine.FindStringSubmatch(code); sm != nil {
		code = sm[1]
	}

	return StackEntry{
		Filename:         m[5],
		FileParent:       m[4],
		Lineno:           lineno,
		Code:             strings.ReplaceAll(code, `\"`, `"`),
		FunctionOrObject: m[3],
		MemoryAddress:    m[2],
	}, true
}

// Top returns the current (innermost) frame.
func Top(trace []StackEntry) (StackEntry, bool) {
	if len(trace) == 0 {
		return StackEntry{}, false
	}
	return trace[len(trace)-1], true
}
