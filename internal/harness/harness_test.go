package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(file)
			require.NoError(t, err)
			assert.Equal(t, name, s.Name, "scenario name must match its file")

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ReportsUnmetExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_expectations
description: every expectation here is wrong
steps:
  - name: read
    query: {entity: task}
    host:
      - result: {items: [{id: t1}], matched: 1, scanned: 1, truncated: false}
    expect:
      success: false
      from_cache: true
      host_calls: 2
      ids: [t9]
      metadata: {count: 5, missing: 1}
      outcome: failure
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Steps, 1)
	assert.True(t, result.Steps[0].Envelope.Success)

	joined := strings.Join(result.Errors, "\n")
	for _, want := range []string{
		"expected success=false",
		"expected fromCache=true",
		"expected 2 host calls, got 1",
		"expected ids [t9], got [t1]",
		`metadata "count": expected 5, got 1`,
		`metadata "missing" missing`,
		"expected journal outcome failure",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestRun_UnconsumedRepliesFail(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: leftover
description: a validation failure never reaches the host
steps:
  - name: bad limit
    query: {entity: task, limit: 100000}
    host:
      - result: {items: [], matched: 0, scanned: 0, truncated: false}
    expect:
      error_kind: ValidationError
  - name: next read gets its own reply
    query: {entity: task}
    host:
      - result: {items: [{id: t2}], matched: 1, scanned: 1, truncated: false}
    expect:
      ids: [t2]
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "1 host replies were not consumed")
}

func TestRun_HostTimeout(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: write_timeout
description: a write that times out has an unknown outcome and still invalidates
timeout: 50ms
steps:
  - name: slow update
    mutation:
      operation: update
      entity: task
      id: t1
      changes: {name: Renamed}
    host:
      - timeout: true
    expect:
      success: false
      error_kind: ScriptTimeout
      metadata:
        invalidated: [tasks, analytics]
      outcome: unknown
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
