package proc

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe_Self(t *testing.T) {
	info, err := Describe(context.Background(), int32(os.Getpid()))
	require.NoError(t, err)

	assert.Equal(t, int32(os.Getpid()), info.PID)
	assert.NotEmpty(t, info.Name)
	assert.Positive(t, info.NumThreads)
}

func TestDescribe_Missing(t *testing.T) {
	_, err := Describe(context.Background(), 1<<30)
	assert.Error(t, err)
}

func TestInspectedProcess_NoChildren(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep not available: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	_, err := InspectedProcess(context.Background(), int32(cmd.Process.Pid))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInspectedProcess_Child(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep not available: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	info, err := InspectedProcess(context.Background(), int32(os.Getpid()))
	if err != nil {
		t.Skipf("child listing unsupported here: %v", err)
	}

	assert.Equal(t, int32(cmd.Process.Pid), info.PID)
	assert.Equal(t, "sleep", info.Name)
}
