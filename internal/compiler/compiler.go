package compiler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/focusql/internal/cache"
	"github.com/roach88/focusql/internal/engine"
	"github.com/roach88/focusql/internal/logging"
	"github.com/roach88/focusql/internal/query"
	"github.com/roach88/focusql/internal/registry"
	"github.com/roach88/focusql/internal/script"
	"github.com/roach88/focusql/internal/store"
)

// Executor runs one artifact against the host.
type Executor interface {
	Run(ctx context.Context, art *script.Artifact) (*engine.Outcome, error)
}

// Journal receives one entry per compiled request.
type Journal interface {
	Record(ctx context.Context, e store.Execution) error
}

// Compiler compiles and runs requests.
type Compiler struct {
	reg         *registry.Registry
	gen         *script.Generator
	exec        Executor
	cache       *cache.Cache
	journal     Journal
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
	limits      query.Limits
	application string

	flight singleflight.Group
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithCache sets the result cache. Without one, caching is off.
func WithCache(c *cache.Cache) Option {
	return func(cc *Compiler) { cc.cache = c }
}

// WithJournal records every request in j.
func WithJournal(j Journal) Option {
	return func(c *Compiler) { c.journal = j }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithClock sets the clock used for mode windows, scoring and metadata.
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) { c.now = now }
}

// WithIDGenerator replaces the request identifier source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Compiler) { c.newID = fn }
}

// WithLimits sets the page size bounds.
func WithLimits(l query.Limits) Option {
	return func(c *Compiler) {
		if l.Default > 0 && l.Max >= l.Default {
			c.limits = l
		}
	}
}

// WithApplication sets the host application scripts address.
func WithApplication(name string) Option {
	return func(c *Compiler) { c.application = name }
}

// New creates a Compiler over a field registry and an executor.
func New(reg *registry.Registry, exec Executor, opts ...Option) *Compiler {
	c := &Compiler{
		reg:    reg,
		exec:   exec,
		now:    time.Now,
		newID:  newRequestID,
		limits: query.DefaultLimits,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.New(nil)
	}
	c.logger = logging.Default(c.logger).With("component", "compiler")
	c.gen = script.New(reg, script.WithApplication(c.application))
	return c
}

// Cache returns the result cache.
func (c *Compiler) Cache() *cache.Cache { return c.cache }

// CompileAndRun executes req and returns its envelope.
func (c *Compiler) CompileAndRun(ctx context.Context, req query.Request) *Envelope {
	start := c.now()
	requestID := c.newID()
	switch r := req.(type) {
	case *query.QueryRequest:
		return c.runQuery(ctx, requestID, r, start)
	case *query.MutationRequest:
		return c.runMutation(ctx, requestID, r, start)
	}
	env := newEnvelope("unknown", start, requestID)
	return c.fail(env, start, engine.NewError(engine.KindInternal, "unsupported request type", ""))
}

func (c *Compiler) record(ctx context.Context, e store.Execution) {
	if c.journal == nil {
		return
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = c.now()
	}
	if err := c.journal.Record(ctx, e); err != nil {
		c.logger.Warn("journal write failed", "request_id", e.ID, "error", err)
	}
}

func outcomeOf(err *engine.Error, write bool) string {
	switch {
	case err == nil:
		return store.OutcomeSuccess
	case write && err.Kind == engine.KindScriptTimeout:
		return store.OutcomeUnknown
	}
	return store.OutcomeFailure
}

func kindOf(err *engine.Error) string {
	if err == nil {
		return ""
	}
	return string(err.Kind)
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
