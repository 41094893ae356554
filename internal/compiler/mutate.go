package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/roach88/focusql/internal/engine"
	"github.com/roach88/focusql/internal/query"
	"github.com/roach88/focusql/internal/store"
	"github.com/roach88/focusql/internal/strategy"
)

// ItemResult reports one member of a batch.
type ItemResult struct {
	Index     int           `json:"index"`
	Operation string        `json:"operation"`
	Entity    string        `json:"entity"`
	ID        string        `json:"id,omitempty"`
	Strategy  string        `json:"strategy"`
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *engine.Error `json:"error,omitempty"`
}

// BatchResult is the data of a batch envelope. Items after the first
// failure are not attempted and count as skipped.
type BatchResult struct {
	Results   []ItemResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
}

type mutationResult struct {
	strategy    strategy.Strategy
	data        any
	invalidated []string
	err         *engine.Error
}

func (c *Compiler) validateMutation(m *query.MutationRequest, inBatch, confirmed bool) *engine.Error {
	if m == nil {
		return validationf("missing mutation")
	}
	if _, err := query.ParseOperation(string(m.Operation)); err != nil {
		return validationf("%v", err)
	}
	if m.Operation == query.OpBatch {
		if inBatch {
			return validationf("batches cannot be nested")
		}
		if len(m.Items) == 0 || len(m.Items) > query.MaxBatch {
			return validationf("batch needs 1-%d items, got %d", query.MaxBatch, len(m.Items))
		}
		for i, item := range m.Items {
			if err := c.validateMutation(item, true, m.Confirmed); err != nil {
				err.Message = fmt.Sprintf("items[%d]: %s", i, err.Message)
				return err.WithDetail("index", i)
			}
		}
		return nil
	}

	entity, err := c.reg.Entity(m.EntityType)
	if err != nil {
		return validationf("%v", err)
	}
	if !entity.Supports(string(m.Operation)) {
		return validationf("entity %s does not support %s", entity.Name, m.Operation)
	}
	switch m.Operation {
	case query.OpCreate:
		if len(m.Data) == 0 {
			return validationf("create requires data")
		}
	case query.OpUpdate:
		if m.ID == "" {
			return validationf("update requires id")
		}
		if len(m.Changes) == 0 {
			return validationf("update requires at least one change")
		}
	case query.OpComplete, query.OpDelete:
		if m.ID == "" {
			return validationf("%s requires id", m.Operation)
		}
	}
	if m.Operation == query.OpDelete && !m.Confirmed && !confirmed {
		return validationf("delete of %s %s requires confirmation", entity.Name, m.ID).
			WithDetail("requiresConfirmation", true)
	}
	for _, name := range slices.Sorted(maps.Keys(m.Payload())) {
		f, ok := entity.Field(name)
		if !ok {
			return validationf("unknown field %s for entity %s", name, entity.Name)
		}
		if !f.Writable {
			return validationf("field %s of %s is not writable", name, entity.Name)
		}
	}
	return nil
}

func (c *Compiler) runMutation(ctx context.Context, requestID string, m *query.MutationRequest, start time.Time) *Envelope {
	op := "mutation"
	if m != nil {
		op = string(m.Operation)
	}
	env := newEnvelope(op, start, requestID)
	if verr := c.validateMutation(m, false, false); verr != nil {
		c.record(ctx, store.Execution{
			ID: requestID, Operation: op, Entity: entityOf(m),
			Outcome: store.OutcomeFailure, ErrorKind: kindOf(verr),
		})
		return c.fail(env, start, verr)
	}
	if m.EntityType != "" {
		env.Metadata["entity"] = m.EntityType
	}
	if m.Operation == query.OpBatch {
		return c.runBatch(ctx, requestID, m, env, start)
	}

	r := c.mutateOne(ctx, requestID, m)
	env.Metadata["strategy"] = r.strategy.String()
	env.Metadata["invalidated"] = r.invalidated
	if m.ID != "" {
		env.Metadata["id"] = m.ID
	}
	if r.err != nil {
		return c.fail(env, start, r.err)
	}
	return c.succeed(env, start, r.data)
}

func (c *Compiler) runBatch(ctx context.Context, requestID string, m *query.MutationRequest, env *Envelope, start time.Time) *Envelope {
	env.Metadata["strategy"] = strategy.Select(m, c.reg).String()

	batch := BatchResult{Results: make([]ItemResult, 0, len(m.Items))}
	invalidated := []string{}
	var failure *engine.Error
	for i, item := range m.Items {
		r := c.mutateOne(ctx, fmt.Sprintf("%s.%d", requestID, i), item)
		for _, col := range r.invalidated {
			if !slices.Contains(invalidated, col) {
				invalidated = append(invalidated, col)
			}
		}
		batch.Results = append(batch.Results, ItemResult{
			Index:     i,
			Operation: string(item.Operation),
			Entity:    item.EntityType,
			ID:        item.ID,
			Strategy:  r.strategy.String(),
			Success:   r.err == nil,
			Data:      r.data,
			Error:     r.err,
		})
		if r.err != nil {
			batch.Failed++
			failure = withIndex(r.err, i)
			break
		}
		batch.Succeeded++
	}
	batch.Skipped = len(m.Items) - len(batch.Results)
	slices.Sort(invalidated)
	env.Metadata["invalidated"] = invalidated
	env.Metadata["succeeded"] = batch.Succeeded
	env.Metadata["failed"] = batch.Failed

	if failure != nil {
		env = c.fail(env, start, failure)
		env.Data = batch
		return env
	}
	return c.succeed(env, start, batch)
}

// mutateOne executes a single non-batch mutation.
func (c *Compiler) mutateOne(ctx context.Context, requestID string, m *query.MutationRequest) mutationResult {
	s := strategy.Select(m, c.reg)
	r := mutationResult{strategy: s, invalidated: []string{}}
	entry := store.Execution{
		ID: requestID, Operation: string(m.Operation), Entity: m.EntityType, Strategy: s.String(),
	}
	started := c.now()

	art, err := c.gen.Mutation(requestID, m, s)
	if err != nil {
		r.err = validationf("%v", err)
		entry.Outcome, entry.ErrorKind = store.OutcomeFailure, kindOf(r.err)
		c.record(ctx, entry)
		return r
	}
	entry.ScriptDigest = art.Digest()

	out, runErr := c.exec.Run(ctx, art)
	if runErr != nil {
		r.err = engine.AsError(runErr)
	}
	if r.err == nil || reachedHost(r.err) {
		r.invalidated = c.invalidate(m.EntityType)
	}
	if r.err == nil {
		if err := json.Unmarshal(out.Result, &r.data); err != nil {
			r.err = engine.NewError(engine.KindMalformedOutput, "mutation result is not JSON: "+err.Error(), string(out.Result))
		}
	}

	entry.DurationMs = c.now().Sub(started).Milliseconds()
	entry.Outcome, entry.ErrorKind = outcomeOf(r.err, true), kindOf(r.err)
	c.record(ctx, entry)

	if r.err != nil {
		c.logger.Warn("mutation failed",
			"request_id", requestID,
			"operation", m.Operation,
			"strategy", s.String(),
			"kind", r.err.Kind,
		)
	} else {
		c.logger.Info("mutation executed",
			"request_id", requestID,
			"operation", m.Operation,
			"strategy", s.String(),
			"invalidated", r.invalidated,
		)
	}
	return r
}

// reachedHost reports whether the script may have run, so its writes
// may have landed.
func reachedHost(err *engine.Error) bool {
	switch err.Kind {
	case engine.KindValidation, engine.KindPermissionDenied, engine.KindHostNotRunning:
		return false
	}
	return true
}

func (c *Compiler) invalidate(entity string) []string {
	cols, err := c.cache.InvalidateFor(entity)
	if err != nil {
		c.logger.Warn("cache invalidation failed", "entity", entity, "error", err)
	}
	return cols
}

func withIndex(err *engine.Error, i int) *engine.Error {
	cp := *err
	cp.Details = maps.Clone(err.Details)
	return cp.WithDetail("index", i)
}

func entityOf(m *query.MutationRequest) string {
	if m == nil {
		return ""
	}
	return m.EntityType
}
