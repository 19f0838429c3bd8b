// Package mi issues Cython debugger commands over gdb's machine interface and
// classifies the response records.
package mi

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a response line.
type Kind int

const (
	// KindConsole is human-readable text: console, target and log stream
	// output, or raw output of the inspected program.
	KindConsole Kind = iota

	// KindRecord is a machine-interface result or async record.
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindConsole:
		return "console"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// ResponseLine is one classified line of a debugger response.
type ResponseLine struct {
	Kind Kind

	// Prefix is the leading marker character.
	Prefix byte

	// Text is the decoded payload. For console stream records the C string
	// is unquoted; records keep everything after the prefix.
	Text string
}

// Classify turns raw response lines into ResponseLines. Lines without a
// known prefix (echoed input, the prompt, blank lines) are dropped.
func Classify(raw []string) []ResponseLine {
	lines := make([]ResponseLine, 0, len(raw))

	for _, line := range raw {
		if line == "" {
			continue
		}

		switch prefix := line[0]; prefix {
		case '~', '@':
			lines = append(lines, ResponseLine{Kind: KindConsole, Prefix: prefix, Text: unquote(line[1:])})
		case '<':
			// Output the inspected program wrote to the shared terminal, such
			// as the repr printed by cy exec.
			lines = append(lines, ResponseLine{Kind: KindConsole, Prefix: prefix, Text: line})
		case '^', '*', '=', '&', '+':
			lines = append(lines, ResponseLine{Kind: KindRecord, Prefix: prefix, Text: line[1:]})
		}
	}

	return lines
}

// Console returns the text of the console lines.
func Console(lines []ResponseLine) []string {
	var out []string
	for _, l := range lines {
		if l.Kind == KindConsole {
			out = append(out, l.Text)
		}
	}
	return out
}

// unquote decodes an MI C string and drops its trailing newline. Input that
// is not quoted is returned unchanged.
func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}

	body := s[1 : len(s)-1]
	var b strings.Builder
	b.Grow(len(body))

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i == len(body)-1 {
			b.WriteByte(c)
			continue
		}

		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Record is a parsed result or async record such as
// *stopped,reason="breakpoint-hit",thread-id="1".
type Record struct {
	Prefix byte
	Class  string
	Fields map[string]string
}

var fieldPattern = regexp.MustCompile(`([\w-]+)="((?:[^"\\]|\\.)*)"`)

// ParseRecord extracts the class and the top-level key="value" pairs of a
// record line. Nested tuples and lists are not decoded.
func ParseRecord(line ResponseLine) (Record, bool) {
	if line.Kind != KindRecord {
		return Record{}, false
	}

	rec := Record{Prefix: line.Prefix, Fields: map[string]string{}}

	class, rest, _ := strings.Cut(line.Text, ",")
	rec.Class = class

	for _, m := range fieldPattern.FindAllStringSubmatch(rest, -1) {
		if _, seen := rec.Fields[m[1]]; !seen {
			rec.Fields[m[1]] = unquote(`"` + m[2] + `"`)
		}
	}

	return rec, true
}

// Exited reports whether the response says the inspected program has exited.
func Exited(lines []ResponseLine) bool {
	for _, l := range lines {
		rec, ok := ParseRecord(l)
		if !ok {
			continue
		}

		switch {
		case rec.Prefix == '*' && rec.Class == "stopped" && strings.HasPrefix(rec.Fields["reason"], "exited"):
			return true
		case rec.Prefix == '=' && rec.Class == "thread-group-exited":
			return true
		}
	}
	return false
}

// ProcessID returns the inspected program's pid from a thread-group-started
// notification.
func ProcessID(lines []ResponseLine) (int, bool) {
	for _, l := range lines {
		rec, ok := ParseRecord(l)
		if !ok || rec.Prefix != '=' || rec.Class != "thread-group-started" {
			continue
		}
		if pid, err := strconv.Atoi(rec.Fields["pid"]); err == nil {
			return pid, true
		}
	}
	return 0, false
}

// ThreadID returns the thread-id of the last stop notification.
func ThreadID(lines []ResponseLine) (int, bool) {
	id, found := 0, false
	for _, l := range lines {
		rec, ok := ParseRecord(l)
		if !ok || rec.Prefix != '*' || rec.Class != "stopped" {
			continue
		}
		if tid, err := strconv.Atoi(rec.Fields["thread-id"]); err == nil {
			id, found = tid, true
		}
	}
	return id, found
}
