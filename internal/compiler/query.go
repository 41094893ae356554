package compiler

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/roach88/focusql/internal/engine"
	"github.com/roach88/focusql/internal/filter"
	"github.com/roach88/focusql/internal/ir"
	"github.com/roach88/focusql/internal/mode"
	"github.com/roach88/focusql/internal/postprocess"
	"github.com/roach88/focusql/internal/query"
	"github.com/roach88/focusql/internal/registry"
	"github.com/roach88/focusql/internal/script"
	"github.com/roach88/focusql/internal/store"
	"github.com/roach88/focusql/internal/strategy"
)

// plannedQuery is a normalized, validated read.
type plannedQuery struct {
	req     query.QueryRequest
	mode    query.Mode
	entity  *registry.Entity
	base    filter.Expression
	project []string
	sort    []query.SortSpec
	key     string
}

// clientSide reports whether ordering or pagination happens after the
// host returns, in which case the script must return every match.
func (p *plannedQuery) clientSide() bool {
	return len(p.sort) > 0 || p.mode == query.ModeSmartSuggest || p.mode == query.ModeSearch
}

// readResult is the decoded body of a read script.
type readResult struct {
	Items     []postprocess.Record `json:"items"`
	Matched   int                  `json:"matched"`
	Scanned   int                  `json:"scanned"`
	Truncated bool                 `json:"truncated"`
}

// queryResult is what the cache stores for a read.
type queryResult struct {
	Records []postprocess.Record `json:"records"`
	HasMore bool                 `json:"hasMore"`
	Meta    map[string]any       `json:"meta,omitempty"`
}

type queryExecution struct {
	result   *queryResult
	strategy strategy.Strategy
	digest   string
}

func (c *Compiler) planQuery(q *query.QueryRequest) (*plannedQuery, *engine.Error) {
	req := *q
	if err := req.NormalizeWith(c.limits); err != nil {
		return nil, validationf("%v", err)
	}
	m, err := query.ParseMode(string(req.Mode))
	if err != nil {
		return nil, validationf("%v", err)
	}
	if m == "" {
		m = query.ModeAll
	}
	req.Mode = m

	entity, err := c.reg.Entity(req.EntityType)
	if err != nil {
		return nil, validationf("%v", err)
	}
	if m.TaskOnly() && entity.Name != "task" {
		return nil, validationf("mode %s applies to tasks only, not %s", m, entity.Name)
	}
	if m == query.ModeSearch {
		req.ModeOptions.SearchText = strings.TrimSpace(req.ModeOptions.SearchText)
		if req.ModeOptions.SearchText == "" {
			return nil, validationf("search mode requires modeOptions.searchText")
		}
	} else {
		req.ModeOptions.SearchText = ""
	}
	if m != query.ModeToday && m != query.ModeUpcoming {
		req.ModeOptions.DaysAhead = nil
	}

	base, err := filter.Build(entity, req.Filter, req.Where)
	if err != nil {
		return nil, asValidation(err)
	}

	project := req.Fields
	if len(project) == 0 {
		project = entity.DefaultFields()
	}
	for _, name := range project {
		f, ok := entity.Field(name)
		if !ok {
			return nil, validationf("unknown field %s for entity %s", name, entity.Name)
		}
		if !f.Readable {
			return nil, validationf("field %s of %s cannot be read", name, entity.Name)
		}
	}

	sortSpecs := req.Sort
	if len(sortSpecs) == 0 {
		sortSpecs = mode.DefaultSort(m)
	}
	for _, s := range sortSpecs {
		f, ok := entity.Field(s.Field)
		if !ok {
			return nil, validationf("unknown sort field %s for entity %s", s.Field, entity.Name)
		}
		if !f.Sortable || !f.Readable {
			return nil, validationf("field %s of %s is not sortable", s.Field, entity.Name)
		}
		if s.Direction != query.Asc && s.Direction != query.Desc {
			return nil, validationf("invalid sort direction %q for %s", s.Direction, s.Field)
		}
	}

	p := &plannedQuery{
		req:     req,
		mode:    m,
		entity:  entity,
		base:    base,
		project: project,
		sort:    sortSpecs,
	}
	p.key, err = cacheKey(p)
	if err != nil {
		return nil, engine.NewError(engine.KindInternal, err.Error(), "")
	}
	return p, nil
}

func cacheKey(p *plannedQuery) (string, error) {
	fields := make(ir.Array, len(p.project))
	for i, f := range p.project {
		fields[i] = ir.String(f)
	}
	sortKeys := make(ir.Array, len(p.sort))
	for i, s := range p.sort {
		sortKeys[i] = ir.Object{"field": ir.String(s.Field), "direction": ir.String(s.Direction)}
	}
	return ir.CacheKey(ir.Object{
		"entity":    ir.String(p.entity.Name),
		"mode":      ir.String(p.mode),
		"filter":    filter.ToIR(p.base),
		"fields":    fields,
		"sort":      sortKeys,
		"limit":     ir.Int(p.req.Limit),
		"offset":    ir.Int(p.req.Offset),
		"daysAhead": ir.Int(mode.DaysAhead(p.mode, p.req.ModeOptions)),
		"search":    ir.String(p.req.ModeOptions.SearchText),
	})
}

// readFields is every field the script must return: the projection, sort
// keys, filter fields and whatever post-processing needs.
func (p *plannedQuery) readFields(augmented filter.Expression) []string {
	want := slices.Clone(p.project)
	want = append(want, postprocess.IDField)
	for _, s := range p.sort {
		want = append(want, s.Field)
	}
	want = append(want, filter.Fields(augmented)...)
	switch p.mode {
	case query.ModeSearch:
		want = append(want, "name", "note")
	case query.ModeSmartSuggest:
		want = append(want, "dueDate", "flagged", "available", "estimatedMinutes")
	case query.ModeToday:
		want = append(want, "dueDate", "flagged")
	}

	out := make([]string, 0, len(want))
	for _, name := range want {
		if f, ok := p.entity.Field(name); ok && f.Readable && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// buildRead augments the filter against now and renders the read script.
func (c *Compiler) buildRead(p *plannedQuery, requestID string, now time.Time) (*script.Artifact, filter.Expression, *engine.Error) {
	augmented := mode.Augment(p.mode, p.base, p.req.ModeOptions, now)
	if err := filter.Validate(p.entity, augmented); err != nil {
		return nil, nil, asValidation(err)
	}
	in := script.ReadInput{
		RequestID: requestID,
		Entity:    p.entity.Name,
		Inbox:     p.mode == query.ModeInbox,
		Filter:    augmented,
		Search:    p.req.ModeOptions.SearchText,
		Fields:    p.readFields(augmented),
	}
	if !p.clientSide() {
		in.Limit = p.req.Limit
		in.Offset = p.req.Offset
	}
	art, err := c.gen.Read(in)
	if err != nil {
		return nil, nil, engine.NewError(engine.KindInternal, err.Error(), "")
	}
	return art, augmented, nil
}

func (c *Compiler) runQuery(ctx context.Context, requestID string, q *query.QueryRequest, start time.Time) *Envelope {
	env := newEnvelope("query", start, requestID)
	entry := store.Execution{ID: requestID, Operation: "query", Entity: q.EntityType}

	p, verr := c.planQuery(q)
	if verr != nil {
		entry.Outcome, entry.ErrorKind = store.OutcomeFailure, kindOf(verr)
		c.record(ctx, entry)
		return c.fail(env, start, verr)
	}
	env.Metadata["entity"] = p.entity.Name
	env.Metadata["mode"] = string(p.mode)
	env.Metadata["sortApplied"] = len(p.sort) > 0
	entry.RequestKey = p.key

	var cached queryResult
	if c.cache.Get(p.entity.Collection, p.key, &cached) {
		c.logger.Debug("cache hit", "collection", p.entity.Collection, "request_id", requestID)
		env.Metadata["fromCache"] = true
		entry.Outcome, entry.FromCache = store.OutcomeSuccess, true
		entry.DurationMs = c.now().Sub(start).Milliseconds()
		c.record(ctx, entry)
		return c.succeedQuery(env, start, &cached)
	}
	c.logger.Debug("cache miss", "collection", p.entity.Collection, "request_id", requestID)

	// Joined callers share the first caller's request id and must not
	// fail because that caller went away; the engine timeout bounds the run.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := c.flight.Do(p.key, func() (any, error) {
		return c.executeQuery(flightCtx, p, requestID)
	})
	entry.DurationMs = c.now().Sub(start).Milliseconds()
	if err != nil {
		e := engine.AsError(err)
		entry.Outcome, entry.ErrorKind = store.OutcomeFailure, kindOf(e)
		c.record(ctx, entry)
		return c.fail(env, start, e)
	}
	exec := v.(*queryExecution)
	if shared {
		env.Metadata["coalesced"] = true
	}
	env.Metadata["strategy"] = exec.strategy.String()
	entry.Strategy = exec.strategy.String()
	entry.ScriptDigest = exec.digest
	entry.Outcome = store.OutcomeSuccess
	c.record(ctx, entry)
	return c.succeedQuery(env, start, exec.result)
}

func (c *Compiler) succeedQuery(env *Envelope, start time.Time, r *queryResult) *Envelope {
	for k, v := range r.Meta {
		env.Metadata[k] = v
	}
	env.Metadata["count"] = len(r.Records)
	env.Metadata["hasMore"] = r.HasMore
	records := r.Records
	if records == nil {
		records = []postprocess.Record{}
	}
	return c.succeed(env, start, records)
}

func (c *Compiler) executeQuery(ctx context.Context, p *plannedQuery, requestID string) (*queryExecution, error) {
	collection := p.entity.Collection
	generation := c.cache.Generation(collection)
	now := c.now()

	art, _, verr := c.buildRead(p, requestID, now)
	if verr != nil {
		return nil, verr
	}
	s := strategy.Select(&p.req, c.reg)

	out, err := c.exec.Run(ctx, art)
	if err != nil {
		return nil, engine.AsError(err)
	}
	var res readResult
	if err := json.Unmarshal(out.Result, &res); err != nil {
		return nil, engine.NewError(engine.KindMalformedOutput, "read result has an unexpected shape: "+err.Error(), string(out.Result))
	}
	c.logger.Info("read executed",
		"request_id", requestID,
		"strategy", s.String(),
		"matched", res.Matched,
		"scanned", res.Scanned,
		"duration", out.Duration,
	)

	result := c.shape(p, &res, now)
	if art.Cacheable {
		stored, err := c.cache.SetIfCurrent(collection, p.key, result, generation)
		switch {
		case err != nil:
			c.logger.Warn("cache store failed", "collection", collection, "error", err)
		case !stored:
			c.logger.Debug("discarded result computed before invalidation", "collection", collection)
		}
	}
	return &queryExecution{result: result, strategy: s, digest: art.Digest()}, nil
}

// shape runs post-processing: ranking or scoring, categorization, sort,
// pagination and projection, in that order.
func (c *Compiler) shape(p *plannedQuery, res *readResult, now time.Time) *queryResult {
	records := res.Items
	meta := map[string]any{}
	project := p.project

	switch p.mode {
	case query.ModeSearch:
		records = postprocess.RankByText(records, p.req.ModeOptions.SearchText)
	case query.ModeSmartSuggest:
		meta["candidates"] = len(records)
		records = postprocess.Score(records, p.req.Offset+p.req.Limit, now)
	case query.ModeToday:
		days := mode.DaysAhead(p.mode, p.req.ModeOptions)
		records = postprocess.Categorize(records, now, mode.DueSoonBoundary(now, days))
		counts := postprocess.CountByReason(records)
		meta["overdueCount"] = counts.Overdue
		meta["dueSoonCount"] = counts.DueSoon
		meta["flaggedCount"] = counts.Flagged
		meta["dueSoonDays"] = days
		project = append(slices.Clone(project), postprocess.ReasonField)
	case query.ModeUpcoming:
		meta["daysAhead"] = mode.DaysAhead(p.mode, p.req.ModeOptions)
	}

	if len(p.sort) > 0 {
		records = postprocess.Sort(records, p.sort)
	}
	hasMore := res.Truncated
	if p.clientSide() {
		records, hasMore = postprocess.Paginate(records, p.req.Offset, p.req.Limit)
	}
	return &queryResult{
		Records: postprocess.Project(records, project),
		HasMore: hasMore,
		Meta:    meta,
	}
}
