package breakpoint

import (
	"strings"

	"github.com/coral-mesh/cygdb/internal/constants"
)

// Clause keywords that continue the preceding block; a statement placed
// before them would detach them from it.
var continuationKeywords = []string{"else", "elif", "except", "finally"}

// checkBreakable reports why the line at index idx cannot be preceded by a
// marker statement, or "" when it can.
func checkBreakable(lines []string, idx int) string {
	line := lines[idx]
	code := strings.TrimSpace(line)

	switch {
	case code == "":
		return "blank line"
	case strings.HasPrefix(code, "#"):
		return "comment-only line"
	case code == constants.MarkerStatement:
		return "marker line"
	}

	for _, kw := range continuationKeywords {
		if code == kw+":" || strings.HasPrefix(code, kw+" ") || strings.HasPrefix(code, kw+":") || strings.HasPrefix(code, kw+"(") {
			return "line continues a block with " + kw
		}
	}

	if decorated(lines, idx) {
		return "line follows a decorator"
	}

	if openConstruct(lines[:idx]) {
		return "line is inside a multi-line statement or string"
	}

	return ""
}

// decorated reports whether the nearest code line above idx is a decorator
// at the same indentation, which must stay attached to the line below it.
func decorated(lines []string, idx int) bool {
	indent := indentOf(lines[idx])
	for i := idx - 1; i >= 0; i-- {
		code := strings.TrimSpace(lines[i])
		if code == "" || strings.HasPrefix(code, "#") {
			continue
		}
		return indentOf(lines[i]) == indent && strings.HasPrefix(code, "@")
	}
	return false
}

// indentOf returns the leading whitespace of line.
func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// openConstruct scans source lines and reports whether they end inside an
// open bracket, a triple-quoted string or after a backslash continuation.
func openConstruct(lines []string) bool {
	depth := 0
	var quote string // active string delimiter

	for _, line := range lines {
		for i := 0; i < len(line); i++ {
			c := line[i]

			if quote != "" {
				switch {
				case c == '\\':
					i++
				case strings.HasPrefix(line[i:], quote):
					i += len(quote) - 1
					quote = ""
				}
				continue
			}

			switch c {
			case '#':
				i = len(line)
			case '\'', '"':
				q := string(c)
				if strings.HasPrefix(line[i:], q+q+q) {
					q = q + q + q
				}
				quote = q
				i += len(q) - 1
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				if depth > 0 {
					depth--
				}
			}
		}

		// Single-quoted strings never span lines.
		if len(quote) == 1 {
			quote = ""
		}
	}

	if quote != "" || depth > 0 {
		return true
	}

	if n := len(lines); n > 0 {
		return strings.HasSuffix(strings.TrimRight(lines[n-1], " \t"), "\\")
	}
	return false
}
