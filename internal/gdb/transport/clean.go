package transport

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// gdb relays escape characters from the pygments-highlighted source listing
// either verbatim or in their C-escaped form.
var escapeSpellings = strings.NewReplacer(`\e`, "\x1b", `\033`, "\x1b")

// Colour codes that survive when the escape character itself was dropped.
var bareColourCodes = strings.NewReplacer(
	"[94m", "",
	"[39;49;00m", "",
	"[96m", "",
	"[92m", "",
	"[33m", "",
	"[90m", "",
)

// Clean removes terminal colour and control sequences from raw debugger output.
func Clean(raw string) string {
	s := escapeSpellings.Replace(raw)
	s = ansi.Strip(s)
	return bareColourCodes.Replace(s)
}

// SplitLines splits cleaned output into lines. The line terminator is chosen
// by majority: echoed input through the pty arrives with CRLF while some
// records carry bare LF.
func SplitLines(s string) []string {
	crlf := strings.Count(s, "\r\n")
	lf := strings.Count(s, "\n") - crlf

	var parts []string
	if crlf > lf {
		parts = strings.Split(s, "\r\n")
	} else {
		parts = strings.Split(s, "\n")
	}

	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimRight(part, "\r")
		if part == "" {
			continue
		}
		lines = append(lines, part)
	}
	return lines
}
