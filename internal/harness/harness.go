package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/roach88/focusql/internal/cache"
	"github.com/roach88/focusql/internal/compiler"
	"github.com/roach88/focusql/internal/engine"
	"github.com/roach88/focusql/internal/logging"
	"github.com/roach88/focusql/internal/registry"
	"github.com/roach88/focusql/internal/store"
	"github.com/roach88/focusql/internal/testutil"
)

// StepResult is what one step produced.
type StepResult struct {
	Name      string             `json:"name"`
	Envelope  *compiler.Envelope `json:"envelope"`
	HostCalls int                `json:"hostCalls"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every expect clause matched.
	Pass   bool         `json:"pass"`
	Steps  []StepResult `json:"steps"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult returns a passing, empty result.
func NewResult() *Result {
	return &Result{Pass: true, Steps: []StepResult{}, Errors: []string{}}
}

// AddError records a failed expectation.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Harness holds the pipeline one scenario runs against.
type Harness struct {
	host     *testutil.FakeHost
	clock    *testutil.Clock
	store    *store.Store
	compiler *compiler.Compiler
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*config)

type config struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// WithRegistry runs scenarios against a custom field registry.
func WithRegistry(r *registry.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithLogger sets the pipeline logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Run executes a scenario in a fresh pipeline: an in-memory journal, a
// memory cache on the scenario clock and a fake host.
func Run(s *Scenario, opts ...Option) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	cfg := config{registry: registry.Default(), logger: logging.Discard()}
	for _, opt := range opts {
		opt(&cfg)
	}

	start, _ := s.start()
	timeout, _ := s.timeout()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	dir, err := os.MkdirTemp("", "focusql-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create script dir: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		host:   testutil.NewFakeHost(),
		clock:  testutil.NewClock(start),
		store:  st,
		logger: cfg.logger,
	}
	exec := engine.New(
		engine.WithRunner(h.host),
		engine.WithTempDir(dir),
		engine.WithTimeouts(timeout, timeout),
		engine.WithClock(h.clock.Now),
		engine.WithLogger(cfg.logger),
	)
	var seq atomic.Int64
	h.compiler = compiler.New(cfg.registry, exec,
		compiler.WithCache(cache.New(cache.NewMemoryBackend(0, h.clock.Now), cache.WithLogger(cfg.logger))),
		compiler.WithJournal(st),
		compiler.WithClock(h.clock.Now),
		compiler.WithLogger(cfg.logger),
		compiler.WithIDGenerator(func() string { return fmt.Sprintf("%s-%d", s.Name, seq.Add(1)) }),
	)

	ctx := context.Background()
	result := NewResult()
	for i := range s.Steps {
		if err := h.runStep(ctx, i, &s.Steps[i], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (h *Harness) runStep(ctx context.Context, i int, step *Step, result *Result) error {
	d, _ := step.advance()
	h.clock.Advance(d)

	h.host.Enqueue(step.Host...)
	before := len(h.host.Calls())
	env := h.compiler.CompileAndRun(ctx, step.Request())
	sr := StepResult{Name: step.Name, Envelope: env, HostCalls: len(h.host.Calls()) - before}
	result.Steps = append(result.Steps, sr)

	// Leftovers would otherwise be served to the next step.
	if n := h.host.Drain(); n > 0 {
		result.AddError(fmt.Sprintf("steps[%d] %s: %d host replies were not consumed", i, step.Name, n))
	}
	if step.Expect == nil {
		return nil
	}

	outcome := ""
	if step.Expect.Outcome != "" {
		recent, err := h.store.Recent(ctx, 1)
		if err != nil {
			return fmt.Errorf("steps[%d]: read journal: %w", i, err)
		}
		if len(recent) > 0 {
			outcome = recent[0].Outcome
		}
	}
	for _, msg := range checkExpect(step.Expect, sr, outcome) {
		result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Name, msg))
	}
	h.logger.Debug("step finished", "step", step.Name, "success", env.Success, "host_calls", sr.HostCalls)
	return nil
}
