package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/focusql/internal/engine"
)

const stagedScript = "(function () {\nvar params = {\"requestId\":\"abc\",\"entity\":\"task\"};\n})();\n"

func stage(t *testing.T) engine.Invocation {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s.js")
	require.NoError(t, os.WriteFile(path, []byte(stagedScript), 0o600))
	return engine.Invocation{Binary: "osascript", Args: []string{"-l", "JavaScript", path}}
}

func TestFakeHost_EchoesRequestID(t *testing.T) {
	h := NewFakeHost(Reply{Result: map[string]any{"items": []any{}}})
	out, _, err := h.Run(context.Background(), stage(t))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"requestId":"abc","result":{"items":[]}}`, string(out))

	calls := h.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "abc", calls[0].RequestID())
	assert.Equal(t, "task", calls[0].Params["entity"])
	assert.False(t, calls[0].ViaStdin)
}

func TestFakeHost_Stdin(t *testing.T) {
	h := NewFakeHost(Reply{Message: "Task not found", Code: "not_found"})
	out, _, err := h.Run(context.Background(), engine.Invocation{Binary: "osascript", Args: []string{"-l", "JavaScript", "-"}, Stdin: []byte(stagedScript)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"requestId":"abc","message":"Task not found","code":"not_found"}`, string(out))
	assert.True(t, h.Calls()[0].ViaStdin)
}

func TestFakeHost_FailureShapes(t *testing.T) {
	h := NewFakeHost(Reply{Stderr: "execution error: (-1743)"}, Reply{Raw: "garbage"})

	_, stderr, err := h.Run(context.Background(), stage(t))
	require.Error(t, err)
	assert.Equal(t, "execution error: (-1743)", string(stderr))

	out, _, err := h.Run(context.Background(), stage(t))
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(out))

	_, _, err = h.Run(context.Background(), stage(t))
	assert.Error(t, err, "no reply queued")
	assert.Equal(t, 0, h.Pending())
}

func TestFakeHost_TimeoutWaitsForContext(t *testing.T) {
	h := NewFakeHost(Reply{Timeout: true})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := h.Run(ctx, stage(t))
	require.Error(t, err)
	assert.Error(t, ctx.Err())
}

func TestClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start)
	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())
	assert.Equal(t, start, FixedClock(start)())
}

func TestFakeHost_Drain(t *testing.T) {
	h := NewFakeHost(Reply{Raw: "a"}, Reply{Raw: "b"})
	assert.Equal(t, 2, h.Drain())
	assert.Equal(t, 0, h.Pending())
	assert.Equal(t, 0, h.Drain())
}
