package parse

import (
	"strconv"
	"strings"
	"unicode"
)

// LiteralType returns the Python type name of a literal value as printed by
// the debugger: None, booleans, numbers, strings, bytes, and lists, tuples,
// sets and dicts built from them.
func LiteralType(value string) (string, bool) {
	l := &literal{src: strings.TrimSpace(value)}
	if l.src == "" {
		return "", false
	}

	typ, ok := l.value()
	if !ok {
		return "", false
	}

	l.skipSpace()
	if l.pos != len(l.src) {
		return "", false
	}
	return typ, true
}

// literal is a recursive-descent recognizer over src.
type literal struct {
	src string
	pos int
}

func (l *literal) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n') {
		l.pos++
	}
}

func (l *literal) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *literal) consume(c byte) bool {
	l.skipSpace()
	if l.peek() == c {
		l.pos++
		return true
	}
	return false
}

func (l *literal) value() (string, bool) {
	l.skipSpace()

	switch c := l.peek(); {
	case c == '[':
		l.pos++
		if !l.sequence(']') {
			return "", false
		}
		return "list", true

	case c == '(':
		l.pos++
		return l.tuple()

	case c == '{':
		l.pos++
		return l.braces()

	case c == '\'' || c == '"':
		return "str", l.str()

	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return l.number()

	case unicode.IsLetter(rune(c)):
		return l.word()
	}

	return "", false
}

// sequence parses comma-separated values up to end, allowing a trailing comma.
func (l *literal) sequence(end byte) bool {
	for {
		if l.consume(end) {
			return true
		}
		if _, ok := l.value(); !ok {
			return false
		}
		if l.consume(',') {
			continue
		}
		return l.consume(end)
	}
}

func (l *literal) tuple() (string, bool) {
	if l.consume(')') {
		return "tuple", true
	}

	first, ok := l.value()
	if !ok {
		return "", false
	}

	// A parenthesized single value without a comma is just that value.
	if l.consume(')') {
		return first, true
	}
	if !l.consume(',') {
		return "", false
	}
	return "tuple", l.sequence(')')
}

func (l *literal) braces() (string, bool) {
	if l.consume('}') {
		return "dict", true
	}

	if _, ok := l.value(); !ok {
		return "", false
	}

	if !l.consume(':') {
		// Set literal.
		if l.consume('}') {
			return "set", true
		}
		if !l.consume(',') {
			return "", false
		}
		return "set", l.sequence('}')
	}

	if _, ok := l.value(); !ok {
		return "", false
	}
	for {
		if l.consume('}') {
			return "dict", true
		}
		if !l.consume(',') {
			return "", false
		}
		if l.consume('}') {
			return "dict", true
		}
		if _, ok := l.value(); !ok {
			return "", false
		}
		if !l.consume(':') {
			return "", false
		}
		if _, ok := l.value(); !ok {
			return "", false
		}
	}
}

// str consumes a quoted string, which may be triple-quoted.
func (l *literal) str() bool {
	q := l.src[l.pos : l.pos+1]
	if strings.HasPrefix(l.src[l.pos:], q+q+q) {
		q = q + q + q
	}
	l.pos += len(q)

	for l.pos < len(l.src) {
		if l.src[l.pos] == '\\' {
			l.pos += 2
			continue
		}
		if strings.HasPrefix(l.src[l.pos:], q) {
			l.pos += len(q)
			return true
		}
		l.pos++
	}
	return false
}

// word handles None, True, False and prefixed strings such as b'..'.
func (l *literal) word() (string, bool) {
	start := l.pos
	for l.pos < len(l.src) && (unicode.IsLetter(rune(l.src[l.pos])) || l.src[l.pos] == '_') {
		l.pos++
	}
	word := l.src[start:l.pos]

	if c := l.peek(); c == '\'' || c == '"' {
		prefix := strings.ToLower(word)
		switch prefix {
		case "r", "u":
			return "str", l.str()
		case "b", "br", "rb":
			return "bytes", l.str()
		}
		return "", false
	}

	switch word {
	case "None":
		return "NoneType", true
	case "True", "False":
		return "bool", true
	}
	return "", false
}

func (l *literal) number() (string, bool) {
	start := l.pos
	if c := l.peek(); c == '-' || c == '+' {
		l.pos++
	}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		isNumeric := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '.' || c == '_'
		// Exponent sign, as in 1e-05.
		isExpSign := (c == '-' || c == '+') && l.pos > start && (l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E')
		if !isNumeric && !isExpSign {
			break
		}
		l.pos++
	}

	return numberType(l.src[start:l.pos])
}

func numberType(s string) (string, bool) {
	if s == "" {
		return "", false
	}

	if strings.HasSuffix(s, "j") || strings.HasSuffix(s, "J") {
		if _, ok := numberType(s[:len(s)-1]); ok {
			return "complex", true
		}
		return "", false
	}

	if _, err := strconv.ParseInt(s, 0, 64); err == nil {
		return "int", true
	}

	// Arbitrary precision ints overflow int64 but stay ints.
	digits := strings.TrimLeft(strings.ReplaceAll(s, "_", ""), "+-")
	if digits != "" && strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
		return "int", true
	}

	if _, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64); err == nil {
		return "float", true
	}
	return "", false
}
