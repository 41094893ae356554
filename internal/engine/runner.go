package engine

import (
	"bytes"
	"context"
	"os/exec"
)

// Invocation is one subprocess call.
type Invocation struct {
	Binary string
	Args   []string
	// Stdin is fed to the process when non-nil (alternate channel).
	Stdin []byte
}

// Runner starts the host automation process. Implementations must honor
// ctx cancellation.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (stdout, stderr []byte, err error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, inv Invocation) (stdout, stderr []byte, err error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, inv Invocation) ([]byte, []byte, error) {
	return f(ctx, inv)
}

// ExecRunner runs invocations with os/exec.
type ExecRunner struct{}

// Run executes the invocation and returns its output streams.
func (ExecRunner) Run(ctx context.Context, inv Invocation) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)
	if inv.Stdin != nil {
		cmd.Stdin = bytes.NewReader(inv.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
