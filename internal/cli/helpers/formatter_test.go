package helpers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name  string `header:"NAME"`
	Value int    `header:"VALUE"`
	Extra string
}

func TestNewFormatter(t *testing.T) {
	for _, f := range []OutputFormat{FormatTable, FormatJSON, FormatYAML} {
		got, err := NewFormatter(f)
		require.NoError(t, err, f)
		assert.NotNil(t, got)
	}

	_, err := NewFormatter("csv")
	assert.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	err := (&TableFormatter{}).Format([]row{{"total", 42, "x"}, {"names", 2, "y"}}, &buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"NAME", "VALUE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"total", "42"}, strings.Fields(lines[1]))
	assert.NotContains(t, buf.String(), "x")

	buf.Reset()
	require.NoError(t, (&TableFormatter{}).Format([]row{}, &buf))
	assert.Empty(t, buf.String())

	assert.Error(t, (&TableFormatter{}).Format(row{}, &buf))
}

func TestJSONAndYAMLFormatter(t *testing.T) {
	data := map[string]int{"port": 3456}

	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(data, &buf))
	assert.JSONEq(t, `{"port":3456}`, buf.String())

	buf.Reset()
	require.NoError(t, (&YAMLFormatter{}).Format(data, &buf))
	assert.Equal(t, "port: 3456\n", buf.String())
}

func TestValidateFormat(t *testing.T) {
	supported := []OutputFormat{FormatJSON, FormatYAML}
	assert.NoError(t, ValidateFormat("json", supported))
	err := ValidateFormat("table", supported)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json, yaml")
}
