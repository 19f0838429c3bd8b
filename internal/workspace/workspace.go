package workspace

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Config locates the project and describes how to build it.
type Config struct {
	ProjectDir   string
	WorkingDir   string
	BuildCommand string
	Python       string
	Exclude      []string
}

// Workspace is the working copy of a project: synced from the project,
// built in place, with a generated gdb command file.
type Workspace struct {
	dir     string
	syncer  *Syncer
	builder *Builder
}

// New creates a Workspace. The working directory is made absolute so the
// debugger can be started from anywhere.
func New(cfg Config, logger zerolog.Logger) (*Workspace, error) {
	dir, err := filepath.Abs(cfg.WorkingDir)
	if err != nil {
		return nil, err
	}

	return &Workspace{
		dir:     dir,
		syncer:  NewSyncer(cfg.ProjectDir, dir, cfg.Exclude, logger),
		builder: NewBuilder(dir, cfg.BuildCommand, cfg.Python, logger),
	}, nil
}

// Dir returns the absolute working directory.
func (w *Workspace) Dir() string {
	return w.dir
}

func (w *Workspace) Sync(ctx context.Context) error {
	return w.syncer.Sync(ctx)
}

func (w *Workspace) Build(ctx context.Context) ([]string, error) {
	return w.builder.Build(ctx)
}

func (w *Workspace) WriteCommandFile() (*CommandFile, error) {
	return WriteCommandFile(w.dir)
}
