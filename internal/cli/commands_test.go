package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "focusql", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"query"}, {"mutate"}, {"script"}, {"validate-filter"}, {"history"}, {"test"},
		{"cache", "stats"}, {"cache", "invalidate"}, {"cache", "invalidate-all"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))

	wrapped := WrapExitError(ExitFailure, "outer", errors.New("inner"))
	assert.Equal(t, "outer: inner", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "inner")
}

func TestValidateFilter(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "validate-filter", "--entity", "task", "--where", `{"flagged":true}`,
		`{"type":"comparison","field":"name","operator":"CONTAINS","value":"bank"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ (flagged EQ true AND name CONTAINS \"bank\")")

	out, err = e.run(t, "validate-filter", "--entity", "task", "--format", "json",
		`{"type":"comparison","field":"colour","operator":"EQ","value":"red"}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decode(t, out)
	assert.Equal(t, "error", resp["status"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, false, data["valid"])
	errs := data["errors"].([]any)
	require.NotEmpty(t, errs)
	assert.Equal(t, "E201", errs[0].(map[string]any)["code"])
}

func TestValidateFilter_Empty(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "validate-filter", "--entity", "project")
	require.NoError(t, err)
	assert.Contains(t, out, "empty filter matches every project")

	_, err = e.run(t, "validate-filter", "--entity", "widget")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCacheCommands(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "cache", "stats", "--format", "json")
	require.NoError(t, err)
	data := decode(t, out)["data"].(map[string]any)
	assert.Equal(t, "memory", data["backend"])
	assert.Equal(t, true, data["enabled"])

	out, err = e.run(t, "cache", "invalidate", "tasks", "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ invalidated tasks, projects")

	_, err = e.run(t, "cache", "invalidate", "widgets")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = e.run(t, "cache", "invalidate-all")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ invalidated all collections")
}

func TestCacheStats_Badger(t *testing.T) {
	e := newEnv(t)
	cfg := "cache:\n  backend: badger\n  dir: " + filepath.Join(e.dir, "cache") + "\n"
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o600))

	out, err := e.run(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "backend=badger")
}

func TestHistory(t *testing.T) {
	e := newEnv(t)
	e.host.Enqueue(readReply("t1"))
	_, err := e.run(t, "query", "--entity", "task")
	require.NoError(t, err)

	out, err := e.run(t, "history", "--format", "json")
	require.NoError(t, err)
	data := decode(t, out)["data"].(map[string]any)
	execs := data["executions"].([]any)
	require.Len(t, execs, 1)
	first := execs[0].(map[string]any)
	assert.Equal(t, "query", first["operation"])
	assert.Equal(t, "success", first["outcome"])
	assert.Equal(t, "DirectRead", first["strategy"])

	out, err = e.run(t, "history", "--summary")
	require.NoError(t, err)
	assert.Contains(t, out, "DirectRead")
	assert.Contains(t, out, "success")
}

func TestHistory_JournalDisabled(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(e.config, []byte("cache:\n  backend: off\n"), 0o600))

	_, err := e.run(t, "history")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "journal disabled")
}

func TestTestCommand(t *testing.T) {
	e := newEnv(t)
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")

	out, err := e.run(t, "test", scenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ upcoming_window")
	assert.Contains(t, out, "✓ All scenarios passed")

	out, err = e.run(t, "test", scenarios, "--filter", "cache_*", "--format", "json")
	require.NoError(t, err)
	data := decode(t, out)["data"].(map[string]any)
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, float64(2), data["passed"])
}

func TestTestCommand_FailuresAndUpdate(t *testing.T) {
	e := newEnv(t)
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`
name: wrong
description: expects a cache hit on a cold cache
steps:
  - name: cold read
    query: {entity: task}
    host:
      - result: {items: [], matched: 0, scanned: 0, truncated: false}
    expect:
      from_cache: true
`), 0o600))

	out, err := e.run(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "expected fromCache=true")

	_, err = e.run(t, "test", dir, "--update")
	require.Error(t, err, "expectation failures survive --update")
	golden, readErr := os.ReadFile(filepath.Join(root, "golden", "wrong.golden"))
	require.NoError(t, readErr)
	assert.Contains(t, string(golden), `"scenario":"wrong"`)

	_, err = e.run(t, "test", filepath.Join(root, "missing"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
