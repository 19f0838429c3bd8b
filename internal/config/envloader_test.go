package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFromEnv_Types(t *testing.T) {
	t.Setenv("CYGDB_GDB_PATH", "/usr/local/bin/gdb")
	t.Setenv("CYGDB_READ_TIMEOUT", "2s")
	t.Setenv("CYGDB_MAX_EMPTY_BACKTRACES", "3")
	t.Setenv("CYGDB_SYNC_EXCLUDE", ".git, build ,dist")

	cfg := DefaultConfig()
	require.NoError(t, MergeFromEnv(cfg))

	assert.Equal(t, "/usr/local/bin/gdb", cfg.Debugger.GDBPath)
	assert.Equal(t, 2*time.Second, cfg.Debugger.ReadTimeout)
	assert.Equal(t, 3, cfg.Debugger.MaxEmptyBacktraces)
	assert.Equal(t, []string{".git", "build", "dist"}, cfg.Workspace.Exclude)
}

func TestMergeFromEnv_UnsetLeavesValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = "127.0.0.1"

	require.NoError(t, MergeFromEnv(cfg))
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestMergeFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{name: "duration", env: "CYGDB_READ_TIMEOUT", val: "soon"},
		{name: "integer", env: "CYGDB_PORT", val: "eighty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			err := MergeFromEnv(DefaultConfig())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestMergeFromEnv_RequiresPointer(t *testing.T) {
	assert.Error(t, MergeFromEnv(Config{}))
	assert.Error(t, MergeFromEnv((*Config)(nil)))
}

func TestSetField_Bool(t *testing.T) {
	var target struct {
		Flag bool `env:"CYGDB_TEST_FLAG"`
	}
	t.Setenv("CYGDB_TEST_FLAG", "true")

	require.NoError(t, MergeFromEnv(&target))
	assert.True(t, target.Flag)
}
