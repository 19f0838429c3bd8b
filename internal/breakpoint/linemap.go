package breakpoint

// token describes one physical line of a virtualized file: either an original
// line identified by its logical number, or a marker inserted for one.
type token struct {
	logical int
	marker  bool
}

// LineMap maps logical (user-visible) line numbers to physical lines of the
// rewritten file. Physical line n is tokens[n-1].
type LineMap struct {
	tokens []token
}

// NewLineMap returns the identity map for a file with n lines.
func NewLineMap(n int) *LineMap {
	m := &LineMap{tokens: make([]token, n)}
	for i := range m.tokens {
		m.tokens[i] = token{logical: i + 1}
	}
	return m
}

// Physical returns the physical line holding logical, or 0 when logical is
// outside the file.
func (m *LineMap) Physical(logical int) int {
	if logical < 1 {
		return 0
	}
	// Original lines keep their relative order, so the target can only sit
	// at or after its own number.
	for i := logical - 1; i < len(m.tokens); i++ {
		t := m.tokens[i]
		if !t.marker && t.logical == logical {
			return i + 1
		}
	}
	return 0
}

// Logical returns the logical line shown at physical. A marker reports the
// line it was inserted for.
func (m *LineMap) Logical(physical int) (int, bool) {
	if physical < 1 || physical > len(m.tokens) {
		return 0, false
	}
	return m.tokens[physical-1].logical, true
}

// HasMarker reports whether a marker was already inserted for logical.
func (m *LineMap) HasMarker(logical int) bool {
	p := m.Physical(logical)
	return p > 1 && m.tokens[p-2].marker && m.tokens[p-2].logical == logical
}

// insertMarker returns a copy of m with a marker for logical placed directly
// before physical line p.
func (m *LineMap) insertMarker(p, logical int) *LineMap {
	tokens := make([]token, 0, len(m.tokens)+1)
	tokens = append(tokens, m.tokens[:p-1]...)
	tokens = append(tokens, token{logical: logical, marker: true})
	tokens = append(tokens, m.tokens[p-1:]...)
	return &LineMap{tokens: tokens}
}
