package helpers

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/cygdb/internal/config"
)

func TestGlobalOptions_AddFlags(t *testing.T) {
	var opts GlobalOptions
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--config", "/tmp/c.yaml", "--log-level", "debug"}))
	assert.Equal(t, "/tmp/c.yaml", opts.ConfigPath)
	assert.Equal(t, "debug", opts.LogLevel)
}

func TestGlobalOptions_LoadConfig(t *testing.T) {
	t.Setenv("CYGDB_CONFIG", t.TempDir())
	t.Setenv("CYGDB_GDB_PATH", "/opt/gdb/bin/gdb")

	cfg, err := (&GlobalOptions{}).LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/opt/gdb/bin/gdb", cfg.Debugger.GDBPath)
}

func TestGlobalOptions_NewLogger(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "warn"

	assert.Equal(t, zerolog.WarnLevel, (&GlobalOptions{}).NewLogger(cfg).GetLevel())
	assert.Equal(t, zerolog.DebugLevel, (&GlobalOptions{LogLevel: "debug"}).NewLogger(cfg).GetLevel())
}

func TestAddGlobalFlags_PrettyOverride(t *testing.T) {
	var opts GlobalOptions
	root := &cobra.Command{Use: "root"}
	AddGlobalFlags(root, &opts)

	child := &cobra.Command{Use: "child", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(child)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"child", "--log-pretty"})
	require.NoError(t, root.Execute())

	assert.True(t, opts.prettySet)
	assert.True(t, opts.LogPretty)
}

func TestNewSession(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace.ProjectDir = t.TempDir()
	cfg.Workspace.WorkingDir = t.TempDir()

	sess, err := NewSession(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID())
	assert.Empty(t, sess.Breakpoints())
}
