package command

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.dw1.io/rhscache"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	err := InitApp(&buf).Run(context.Background(), append([]string{"rhscache"}, args...))

	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestCheckCommand(t *testing.T) {
	good := writeFile(t, "good.yaml", "rhs_checking:\n  max_cache_entries: 5\n  rtol: 1.0e-12\n")

	out, err := run(t, "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "max_cache_entries: 5")
	assert.Contains(t, out, "check_zero: true")

	bad := writeFile(t, "bad.yaml", "bad_key: 1\ncheck_zero: false\n")
	_, err = run(t, "check", bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, rhscache.ErrUnknownOption)
	assert.Contains(t, err.Error(), "bad_key")

	_, err = run(t, "check")
	assert.Error(t, err)
}

func TestDemoCommandJSON(t *testing.T) {
	out, err := run(t, "demo", "--format", "json", "--workers", "3")
	require.NoError(t, err)

	// Skip the solve count line.
	_, body, found := bytes.Cut([]byte(out), []byte("\n"))
	require.True(t, found)

	var snap rhscache.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	total := snap.Total()
	assert.Equal(t, uint64(3), total.EqHits)
	assert.Equal(t, uint64(3), total.Resets)
	assert.Equal(t, uint64(12), total.Misses)
}

func TestDemoThenReport(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "demo", "--save", dir)
	require.NoError(t, err)

	paths, err := filepath.Glob(filepath.Join(dir, "*.rhsstats"))
	require.NoError(t, err)
	require.Len(t, paths, 2)

	out, err := run(t, append([]string{"report", "--format", "yaml"}, paths...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "path: model.coupled")
	assert.Contains(t, out, "misses: 8")

	html := filepath.Join(dir, "report.html")
	_, err = run(t, append([]string{"report", "-f", "html", "-o", html}, paths...)...)
	require.NoError(t, err)
	data, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<td>model.coupled</td>")
}

func TestReportCommandErrors(t *testing.T) {
	_, err := run(t, "report")
	assert.Error(t, err)

	_, err = run(t, "report", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = run(t, "report", "--format", "xml", "x")
	assert.Error(t, err)
}
