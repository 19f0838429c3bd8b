// Package workspace prepares the working copy the debugger runs against:
// it mirrors the project, builds the extension with debug information and
// writes the gdb command file.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coral-mesh/cygdb/internal/constants"
	cerrors "github.com/coral-mesh/cygdb/internal/errors"
	"github.com/coral-mesh/cygdb/internal/logging"
	"github.com/coral-mesh/cygdb/internal/safe"
)

// copyConcurrency bounds parallel file copies during Sync.
const copyConcurrency = 8

// Syncer mirrors a project directory into a disposable working copy.
type Syncer struct {
	ProjectDir string
	WorkingDir string

	// Exclude lists directory or file names skipped at any depth.
	Exclude []string

	logger zerolog.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(projectDir, workingDir string, exclude []string, logger zerolog.Logger) *Syncer {
	return &Syncer{
		ProjectDir: projectDir,
		WorkingDir: workingDir,
		Exclude:    exclude,
		logger:     logging.WithComponent(logger, "workspace"),
	}
}

func (s *Syncer) excluded(name string) bool {
	for _, ex := range s.Exclude {
		if name == ex {
			return true
		}
	}
	return false
}

// Sync replaces the working copy with a fresh copy of the project.
// Everything previously written to the working copy, including rewritten
// sources, is discarded.
func (s *Syncer) Sync(ctx context.Context) error {
	src, err := filepath.Abs(s.ProjectDir)
	if err != nil {
		return fmt.Errorf("failed to resolve project dir: %w", err)
	}
	dst, err := filepath.Abs(s.WorkingDir)
	if err != nil {
		return fmt.Errorf("failed to resolve working dir: %w", err)
	}

	sep := string(filepath.Separator)
	if inside := strings.HasPrefix(dst+sep, src+sep); inside && !s.excluded(firstElem(src, dst)) {
		return fmt.Errorf("working dir %s must not be inside project dir %s unless excluded", dst, src)
	}

	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("failed to clear working dir: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)

	opts := &safe.FileOptions{MaxSize: constants.DefaultMaxSyncFileSize}
	files := 0

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if gctx.Err() != nil {
			return gctx.Err()
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel != "." && s.excluded(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			//nolint:gosec // G301: working copy mirrors project permissions loosely.
			return os.MkdirAll(target, 0755)
		case d.Type().IsRegular():
			files++
			g.Go(func() error {
				if err := safe.CopyFile(path, target, opts); err != nil {
					return fmt.Errorf("failed to copy %s: %w", rel, err)
				}
				return nil
			})
		default:
			s.logger.Debug().Str("path", rel).Msg("Skipping non-regular file")
		}
		return nil
	})

	// A partial copy is removed so the next Sync starts clean.
	if err := g.Wait(); err != nil {
		cerrors.DeferRemoveAll(s.logger, dst)
		return err
	}
	if walkErr != nil {
		cerrors.DeferRemoveAll(s.logger, dst)
		return fmt.Errorf("failed to walk project dir: %w", walkErr)
	}

	s.logger.Info().
		Str("project_dir", src).
		Str("working_dir", dst).
		Int("files", files).
		Msg("Working copy synced")

	return nil
}

// firstElem returns the first path element of dst below src.
func firstElem(src, dst string) string {
	rel, err := filepath.Rel(src, dst)
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(rel, string(filepath.Separator))
	return first
}
