package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBacktrace(t *testing.T) {
	lines := []string{
		"#0  0x00000000005d8a4c in <module>() at /work/working_folder/run_file.py:20",
		"        20    run()",
		"#1  0x00007ffff6e2a1b0 in run() at /work/working_folder/run_file.py:15",
		"        15        pi = estimate_pi_cy(n)",
		"#2  0x00007ffff6e31c2f in estimate_pi_cy() at /work/working_folder/monte_carlo_simulation.pyx:22",
		`        22        print(f\"{x}\")`,
	}

	trace := Backtrace(lines)
	require.Len(t, trace, 3)

	assert.Equal(t, StackEntry{
		Filename:         "run_file.py",
		FileParent:       "/work/working_folder/",
		Lineno:           20,
		Code:             "run()",
		FunctionOrObject: "<module>()",
		MemoryAddress:    "0x00000000005d8a4c",
	}, trace[0])

	top, ok := Top(trace)
	require.True(t, ok)
	assert.Equal(t, "monte_carlo_simulation.pyx", top.Filename)
	assert.Equal(t, "monte_carlo_simulation", top.Stem())
	assert.Equal(t, 22, top.Lineno)
	assert.Equal(t, `print(f"{x}")`, top.Code)
}

func TestBacktrace_Variants(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []StackEntry
	}{
		{
			name:  "no directory and no address",
			lines: []string{"#0  estimate() at demo.pyx:7", "    7    total = 0"},
			want:  []StackEntry{{Filename: "demo.pyx", Lineno: 7, Code: "total = 0", FunctionOrObject: "estimate()"}},
		},
		{
			name:  "source on the header line",
			lines: []string{"#0  0x1 in f() at demo.pyx:9    9    return x"},
			want:  []StackEntry{{Filename: "demo.pyx", Lineno: 9, Code: "return x", FunctionOrObject: "f()", MemoryAddress: "0x1"}},
		},
		{
			name:  "no source line",
			lines: []string{"#0  0x1 in f() at demo.pyx:9"},
			want:  []StackEntry{{Filename: "demo.pyx", Lineno: 9, FunctionOrObject: "f()", MemoryAddress: "0x1"}},
		},
		{
			name: "garbled frame skipped",
			lines: []string{
				"#0  0x1 in main ()",
				"#1  0x2 in g() at demo.pyx:3",
				"    3    # a comment with # inside",
			},
			want: []StackEntry{{Filename: "demo.pyx", Lineno: 3, Code: "# a comment with # inside", FunctionOrObject: "g()", MemoryAddress: "0x2"}},
		},
		{
			name:  "no stack",
			lines: []string{"No stack."},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Backtrace(tt.lines))
		})
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "demo", Stem("demo.pyx"))
	assert.Equal(t, "demo", Stem("/a/b.c/demo.cpython-38d.so"))
	assert.Equal(t, "Makefile", Stem("Makefile"))
}

func TestTop_Empty(t *testing.T) {
	_, ok := Top(nil)
	assert.False(t, ok)
}
