// Package breakpoint keeps user-chosen source lines addressable by the
// debugger after compilation.
//
// Cython may emit no code for a line without an observable effect, which
// leaves gdb nothing to stop at. The Virtualizer inserts a no-effect marker
// statement directly above such a line in the working copy and keeps a
// per-file LineMap so logical line numbers (as the user sees them in the
// unmodified project) can still be translated to physical ones.
package breakpoint

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/coral-mesh/cygdb/internal/constants"
	"github.com/coral-mesh/cygdb/internal/logging"
	"github.com/coral-mesh/cygdb/internal/safe"
)

var (
	// ErrNotBreakable is returned when the target line has no statement that
	// could host a stop.
	ErrNotBreakable = errors.New("line cannot hold a breakpoint")

	// ErrUnknownFile is returned by Translate for files never tracked.
	ErrUnknownFile = errors.New("file has no line map")

	// ErrLineOutOfRange is returned for logical lines outside the file.
	ErrLineOutOfRange = errors.New("line out of range")

	// ErrSourceChanged is returned when a mapped file was modified behind
	// the Virtualizer's back. Its line map no longer describes the file.
	ErrSourceChanged = errors.New("source changed since it was mapped")
)

// Virtualizer rewrites source files in place and owns their line maps.
// It is safe for concurrent use.
type Virtualizer struct {
	mu   sync.Mutex
	maps map[string]*LineMap
	// digests holds the hash of each file as last read or written.
	digests map[string]uint64
	opts    *safe.FileOptions
	logger  zerolog.Logger
}

// NewVirtualizer creates an empty Virtualizer.
func NewVirtualizer(logger zerolog.Logger) *Virtualizer {
	return &Virtualizer{
		maps:    make(map[string]*LineMap),
		digests: make(map[string]uint64),
		opts:    &safe.FileOptions{MaxSize: constants.DefaultMaxSourceSize},
		logger:  logging.WithComponent(logger, "breakpoint"),
	}
}

func key(file string) string {
	if abs, err := filepath.Abs(file); err == nil {
		return abs
	}
	return filepath.Clean(file)
}

func (v *Virtualizer) read(path string) ([]byte, []string, error) {
	data, err := safe.ReadFile(path, v.opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source %s: %w", path, err)
	}
	return data, strings.Split(string(data), "\n"), nil
}

// mapFor returns the line map of path, creating the identity map on first
// use. data is the current content of the file. Callers hold v.mu.
func (v *Virtualizer) mapFor(path string, data []byte, lines []string) (*LineMap, error) {
	sum := xxh3.Hash(data)

	m, ok := v.maps[path]
	if !ok {
		m = NewLineMap(len(lines))
		v.maps[path] = m
		v.digests[path] = sum
		return m, nil
	}

	if v.digests[path] != sum {
		v.logger.Warn().Str("file", path).Msg("Source modified outside the debugger")
		return nil, fmt.Errorf("%w: %s", ErrSourceChanged, filepath.Base(path))
	}
	return m, nil
}

// Track starts mapping file without modifying it.
func (v *Virtualizer) Track(file string) error {
	path := key(file)

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.maps[path]; ok {
		return nil
	}

	data, lines, err := v.read(path)
	if err != nil {
		return err
	}
	_, err = v.mapFor(path, data, lines)
	return err
}

// EnsureBreakable makes logical line of file addressable and returns its
// physical line number. A marker statement with the target's indentation is
// inserted directly above it and every logical line from there on shifts
// down by one. Calling it again for the same line inserts nothing.
//
// Rejected lines leave the file untouched.
func (v *Virtualizer) EnsureBreakable(file string, logical int) (int, error) {
	path := key(file)

	v.mu.Lock()
	defer v.mu.Unlock()

	data, lines, err := v.read(path)
	if err != nil {
		return 0, err
	}

	m, err := v.mapFor(path, data, lines)
	if err != nil {
		return 0, err
	}

	physical := m.Physical(logical)
	if physical == 0 || physical > len(lines) {
		return 0, fmt.Errorf("%w: %s:%d", ErrLineOutOfRange, filepath.Base(path), logical)
	}

	if m.HasMarker(logical) {
		return physical, nil
	}

	idx := physical - 1
	if reason := checkBreakable(lines, idx); reason != "" {
		v.logger.Warn().
			Str("file", path).
			Int("line", logical).
			Str("reason", reason).
			Msg("Breakpoint rejected")
		return 0, fmt.Errorf("%w: %s:%d: %s", ErrNotBreakable, filepath.Base(path), logical, reason)
	}

	marker := indentOf(lines[idx]) + constants.MarkerStatement

	rewritten := make([]string, 0, len(lines)+1)
	rewritten = append(rewritten, lines[:idx]...)
	rewritten = append(rewritten, marker)
	rewritten = append(rewritten, lines[idx:]...)

	out := []byte(strings.Join(rewritten, "\n"))
	if err := safe.WriteFile(path, out, v.opts); err != nil {
		return 0, fmt.Errorf("failed to rewrite source %s: %w", path, err)
	}

	v.maps[path] = m.insertMarker(physical, logical)
	v.digests[path] = xxh3.Hash(out)

	v.logger.Debug().
		Str("file", path).
		Int("logical", logical).
		Int("physical", physical+1).
		Msg("Marker inserted")

	return physical + 1, nil
}

// Translate returns the physical line of logical in a tracked file.
func (v *Virtualizer) Translate(file string, logical int) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return translate(v.maps, file, logical)
}

// Logical maps a physical line reported by the debugger back to the logical
// line. file may be a path or, as in backtraces, just the base name; a base
// name matching several tracked files is ambiguous and not mapped.
func (v *Virtualizer) Logical(file string, physical int) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return logicalLine(v.maps, file, physical)
}

// Snapshot freezes the current line maps. Markers inserted afterwards do not
// show up in the returned Layout.
func (v *Virtualizer) Snapshot() *Layout {
	v.mu.Lock()
	defer v.mu.Unlock()

	maps := make(map[string]*LineMap, len(v.maps))
	for path, m := range v.maps {
		maps[path] = m
	}
	return &Layout{maps: maps}
}

// Layout is the set of line maps a build was compiled from. A debugger
// running that build reports lines in this layout even after further markers
// are written to the sources.
type Layout struct {
	maps map[string]*LineMap
}

// Translate returns the physical line of logical in this layout. A nil
// Layout knows no files.
func (l *Layout) Translate(file string, logical int) (int, error) {
	if l == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFile, key(file))
	}
	return translate(l.maps, file, logical)
}

// Logical is the reverse of Translate, with the lookup rules of
// Virtualizer.Logical.
func (l *Layout) Logical(file string, physical int) (int, bool) {
	if l == nil {
		return 0, false
	}
	return logicalLine(l.maps, file, physical)
}

func translate(maps map[string]*LineMap, file string, logical int) (int, error) {
	path := key(file)

	m, ok := maps[path]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFile, path)
	}

	physical := m.Physical(logical)
	if physical == 0 {
		return 0, fmt.Errorf("%w: %s:%d", ErrLineOutOfRange, filepath.Base(path), logical)
	}
	return physical, nil
}

func logicalLine(maps map[string]*LineMap, file string, physical int) (int, bool) {
	m, ok := maps[key(file)]
	if !ok {
		m, ok = byBase(maps, filepath.Base(file))
	}
	if !ok {
		return 0, false
	}
	return m.Logical(physical)
}

func byBase(maps map[string]*LineMap, base string) (*LineMap, bool) {
	var found *LineMap
	for path, m := range maps {
		if filepath.Base(path) != base {
			continue
		}
		if found != nil {
			return nil, false
		}
		found = m
	}
	return found, found != nil
}

// Files returns the tracked files in sorted order.
func (v *Virtualizer) Files() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	files := make([]string, 0, len(v.maps))
	for path := range v.maps {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

// Reset forgets every line map. The files themselves are left as they are;
// restoring them is the job of the working-copy sync.
func (v *Virtualizer) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.maps = make(map[string]*LineMap)
	v.digests = make(map[string]uint64)
}
