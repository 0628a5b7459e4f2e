// FILE: src/internal/export/exporter_test.go
package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRows() []map[string]any {
	return []map[string]any{
		{"name": "alpha", "count": 1, "extra": map[string]any{"k": "v"}},
		{"name": "beta", "count": 2, "extra": nil},
	}
}

func readOut(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestExport_UnsupportedFormat(t *testing.T) {
	err := New(testRows()).Export(filepath.Join(t.TempDir(), "out.bin"), "parquet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestExport_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, New(testRows()).Export(path, "csv"))

	lines := strings.Split(strings.TrimSpace(readOut(t, path)), "\n")
	require.Len(t, lines, 3)
	// Columns sorted by key
	assert.Equal(t, "count,extra,name", lines[0])
	assert.Equal(t, `1,"{""k"":""v""}",alpha`, lines[1])
	assert.Equal(t, "2,,beta", lines[2])
}

func TestExport_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, New(testRows()).Export(path, "json"))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(readOut(t, path)), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "alpha", decoded[0]["name"])
	assert.EqualValues(t, 2, decoded[1]["count"])
}

func TestExport_Markdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	require.NoError(t, New(testRows()).Export(path, "md"))

	out := readOut(t, path)
	assert.Contains(t, out, "| count | extra | name |")
	assert.Contains(t, out, "| --- | --- | --- |")
	assert.Contains(t, out, "| 1 | ")
	assert.Contains(t, out, " | alpha |")
}

func TestExport_HTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.html")

	rows := []map[string]any{{"msg": "<script>alert(1)</script>"}}
	require.NoError(t, New(rows).Export(path, "html"))

	out := readOut(t, path)
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>alert")
	assert.Contains(t, out, "<table>")
}

func TestExport_Txt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, New(testRows()).Export(path, "txt"))

	lines := strings.Split(strings.TrimSpace(readOut(t, path)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "count\textra\tname", lines[0])
}

func TestExport_EmptyRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, New(nil).Export(path, "csv"))

	// No rows, no file
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
