package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/roach88/focusql/internal/logging"
	"github.com/roach88/focusql/internal/script"
)

// Default timeouts.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 120 * time.Second
)

// Channel names how a script reached the host.
type Channel string

const (
	// ChannelFile writes the script to a temp file and passes its path.
	ChannelFile Channel = "file"
	// ChannelStdin pipes the script to the interpreter's standard input.
	ChannelStdin Channel = "stdin"
)

// Outcome is a successful execution.
type Outcome struct {
	Result   json.RawMessage
	Channel  Channel
	Duration time.Duration
}

// Executor runs artifacts one at a time.
type Executor struct {
	runner       Runner
	binary       string
	language     string
	tempDir      string
	readTimeout  time.Duration
	writeTimeout time.Duration
	sem          *semaphore.Weighted
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) Option {
	return func(e *Executor) { e.runner = r }
}

// WithBinary sets the interpreter binary and its -l language.
func WithBinary(binary, language string) Option {
	return func(e *Executor) {
		if binary != "" {
			e.binary = binary
		}
		if language != "" {
			e.language = language
		}
	}
}

// WithTempDir sets where script files are written.
func WithTempDir(dir string) Option {
	return func(e *Executor) { e.tempDir = dir }
}

// WithTimeouts sets the read and write budgets. Zero keeps the default.
func WithTimeouts(read, write time.Duration) Option {
	return func(e *Executor) {
		if read > 0 {
			e.readTimeout = read
		}
		if write > 0 {
			e.writeTimeout = write
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithClock sets the clock used for durations.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates an Executor that shells out to osascript by default.
func New(opts ...Option) *Executor {
	e := &Executor{
		runner:       ExecRunner{},
		binary:       "osascript",
		language:     "JavaScript",
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
		sem:          semaphore.NewWeighted(1),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.Default(e.logger).With("component", "engine")
	return e
}

// Timeout returns the budget for an artifact.
func (e *Executor) Timeout(art *script.Artifact) time.Duration {
	if art.Strategy.IsWrite() {
		return e.writeTimeout
	}
	return e.readTimeout
}

// Run executes the artifact and returns its result payload. Every
// failure is an *Error. A permission failure on an artifact that allows
// it is retried once over the stdin channel.
func (e *Executor) Run(ctx context.Context, art *script.Artifact) (*Outcome, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, NewError(KindInternal, "cancelled while waiting for the host", err.Error())
	}
	defer e.sem.Release(1)

	out, err := e.attempt(ctx, art, ChannelFile)
	if err != nil && art.AllowAlternate && IsKind(err, KindPermissionDenied) {
		e.logger.Warn("permission denied, retrying on alternate channel",
			"request_id", art.RequestID, "template", art.Template)
		out, err = e.attempt(ctx, art, ChannelStdin)
		if err != nil {
			AsError(err).WithDetail("alternateChannel", true)
		}
	}
	return out, err
}

func (e *Executor) attempt(ctx context.Context, art *script.Artifact, ch Channel) (*Outcome, error) {
	timeout := e.Timeout(art)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	inv := Invocation{Binary: e.binary}
	switch ch {
	case ChannelFile:
		path, cleanup, err := e.writeScript(art.Source)
		if err != nil {
			return nil, NewError(KindInternal, "could not stage script", err.Error())
		}
		defer cleanup()
		inv.Args = []string{"-l", e.language, path}
	case ChannelStdin:
		inv.Args = []string{"-l", e.language, "-"}
		inv.Stdin = []byte(art.Source)
	}

	e.logger.Debug("execute", "request_id", art.RequestID, "strategy", art.Strategy,
		"template", art.Template, "channel", ch)
	start := e.now()
	stdout, stderr, runErr := e.runner.Run(runCtx, inv)
	elapsed := e.now().Sub(start)

	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	result, cerr := Classify(Observation{
		RequestID: art.RequestID,
		Stdout:    stdout,
		Stderr:    stderr,
		Err:       runErr,
		TimedOut:  timedOut,
	})
	if cerr != nil {
		if timedOut {
			cerr.WithDetail("timeout", timeout.String())
			if art.Strategy.IsWrite() {
				cerr.WithDetail("outcome", "unknown")
			}
		}
		e.logger.Warn("execution failed", "request_id", art.RequestID, "kind", cerr.Kind,
			"channel", ch, "duration", elapsed)
		return nil, cerr
	}
	e.logger.Info("executed", "request_id", art.RequestID, "strategy", art.Strategy,
		"channel", ch, "duration", elapsed)
	return &Outcome{Result: result, Channel: ch, Duration: elapsed}, nil
}

// writeScript stages source in a private temp file.
func (e *Executor) writeScript(source string) (string, func(), error) {
	f, err := os.CreateTemp(e.tempDir, "focusql-*.js")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if _, err := f.WriteString(source); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write script: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
