package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/focusql/internal/cache"
	"github.com/roach88/focusql/internal/engine"
	"github.com/roach88/focusql/internal/postprocess"
	"github.com/roach88/focusql/internal/query"
	"github.com/roach88/focusql/internal/registry"
	"github.com/roach88/focusql/internal/script"
	"github.com/roach88/focusql/internal/store"
	"github.com/roach88/focusql/internal/testutil"
)

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	host  *testutil.FakeHost
	cache *cache.Cache
	comp  *Compiler
}

func newFixture(t *testing.T, engineOpts []engine.Option, opts ...Option) *fixture {
	t.Helper()
	host := testutil.NewFakeHost()
	exec := engine.New(append([]engine.Option{engine.WithRunner(host), engine.WithTempDir(t.TempDir())}, engineOpts...)...)
	c := cache.New(cache.NewMemoryBackend(0, nil))
	var n atomic.Int64
	ids := func() string { return fmt.Sprintf("req-%d", n.Add(1)) }
	all := append([]Option{WithCache(c), WithClock(testutil.FixedClock(now)), WithIDGenerator(ids)}, opts...)
	return &fixture{host: host, cache: c, comp: New(registry.Default(), exec, all...)}
}

func items(records ...map[string]any) testutil.Reply {
	list := make([]any, len(records))
	for i, r := range records {
		list[i] = r
	}
	return testutil.Reply{Result: map[string]any{
		"items": list, "matched": len(records), "scanned": len(records), "truncated": false,
	}}
}

func records(t *testing.T, env *Envelope) []postprocess.Record {
	t.Helper()
	recs, ok := env.Data.([]postprocess.Record)
	require.True(t, ok, "data is %T", env.Data)
	return recs
}

func intPtr(n int) *int { return &n }

func TestCompileAndRun_UpcomingWindow(t *testing.T) {
	f := newFixture(t, nil)
	due := now.AddDate(0, 0, 10).Format(time.RFC3339)
	f.host.Enqueue(items(map[string]any{"id": "t1", "name": "Renew passport", "dueDate": due, "completed": false}))

	env := f.comp.CompileAndRun(context.Background(), &query.QueryRequest{
		EntityType:  "task",
		Mode:        query.ModeUpcoming,
		ModeOptions: query.ModeOptions{DaysAhead: intPtr(14)},
	})

	require.True(t, env.Success, "error: %+v", env.Error)
	assert.Equal(t, 14, env.Metadata["daysAhead"])
	assert.Equal(t, true, env.Metadata["sortApplied"])
	assert.Equal(t, "DirectRead", env.Metadata["strategy"])
	assert.Equal(t, false, env.Metadata["fromCache"])
	assert.Equal(t, "query", env.Metadata["operation"])
	assert.Equal(t, "2024-03-15T10:00:00Z", env.Metadata["timestamp"])
	assert.Contains(t, env.Metadata, "queryTimeMs")

	recs := records(t, env)
	require.Len(t, recs, 1)
	assert.Equal(t, "t1", recs[0]["id"])
	assert.Equal(t, "Renew passport", recs[0]["name"])

	calls := f.host.Calls()
	require.Len(t, calls, 1)
	params := calls[0].Params
	assert.Nil(t, params["limit"], "sorted reads paginate after the host returns")

	root := params["filter"].(map[string]any)
	assert.Equal(t, "AND", root["op"])
	children := root["children"].([]any)
	require.Len(t, children, 2)
	between := children[1].(map[string]any)
	assert.Equal(t, "dueDate", between["field"])
	assert.Equal(t, "BETWEEN", between["operator"])
	assert.Equal(t, "2024-03-15T10:00:00Z", between["value"])
	assert.Equal(t, "2024-03-29T10:00:00Z", between["upperBound"])
}

func TestCompileAndRun_CachesReads(t *testing.T) {
	f := newFixture(t, nil)
	f.host.Enqueue(items(map[string]any{"id": "t1", "name": "A"}))
	req := &query.QueryRequest{EntityType: "task", Where: map[string]any{"flagged": true}}

	first := f.comp.CompileAndRun(context.Background(), req)
	require.True(t, first.Success)
	second := f.comp.CompileAndRun(context.Background(), req)
	require.True(t, second.Success)

	assert.Equal(t, true, second.Metadata["fromCache"])
	assert.NotContains(t, second.Metadata, "strategy")
	assert.Equal(t, records(t, first), records(t, second))
	assert.Len(t, f.host.Calls(), 1)
}

func TestCompileAndRun_InHostPaginationWithoutSort(t *testing.T) {
	f := newFixture(t, nil)
	f.host.Enqueue(items())
	env := f.comp.CompileAndRun(context.Background(), &query.QueryRequest{EntityType: "project", Limit: 5, Offset: 10})
	require.True(t, env.Success)

	params := f.host.Calls()[0].Params
	assert.EqualValues(t, 5, params["limit"])
	assert.EqualValues(t, 10, params["offset"])
	assert.Equal(t, false, env.Metadata["sortApplied"])
	assert.Equal(t, []postprocess.Record{}, records(t, env))
}

func TestCompileAndRun_WriteInvalidatesBeforeReturning(t *testing.T) {
	f := newFixture(t, nil)
	req := &query.QueryRequest{EntityType: "task"}
	f.host.Enqueue(
		items(map[string]any{"id": "t1", "flagged": false}),
		testutil.Reply{Result: map[string]any{"id": "t1"}},
		items(map[string]any{"id": "t1", "flagged": true}),
	)

	require.True(t, f.comp.CompileAndRun(context.Background(), req).Success)

	env := f.comp.CompileAndRun(context.Background(), &query.MutationRequest{
		Operation: query.OpUpdate, EntityType: "task", ID: "t1",
		Changes: map[string]any{"flagged": true},
	})
	require.True(t, env.Success, "error: %+v", env.Error)
	assert.Equal(t, "DirectWrite", env.Metadata["strategy"])
	assert.Equal(t, []string{cache.Tasks, cache.Analytics}, env.Metadata["invalidated"])
	assert.Equal(t, map[string]any{"id": "t1"}, env.Data)

	after := f.comp.CompileAndRun(context.Background(), req)
	require.True(t, after.Success)
	assert.Equal(t, false, after.Metadata["fromCache"])
	assert.Equal(t, true, records(t, after)[0]["flagged"])
	assert.Len(t, f.host.Calls(), 3)
}

func TestCompileAndRun_ProjectWriteInvalidatesTasks(t *testing.T) {
	f := newFixture(t, nil)
	req := &query.QueryRequest{EntityType: "task", Fields: []string{"id", "projectName"}}
	f.host.Enqueue(
		items(map[string]any{"id": "t1", "projectName": "Errands"}),
		testutil.Reply{Result: map[string]any{"id": "p1"}},
		items(map[string]any{"id": "t1", "projectName": "Weekend"}),
	)

	require.True(t, f.comp.CompileAndRun(context.Background(), req).Success)
	cached := f.comp.CompileAndRun(context.Background(), req)
	require.True(t, cached.Success)
	require.Equal(t, true, cached.Metadata["fromCache"])

	env := f.comp.CompileAndRun(context.Background(), &query.MutationRequest{
		Operation: query.OpUpdate, EntityType: "project", ID: "p1",
		Changes: map[string]any{"name": "Weekend"},
	})
	require.True(t, env.Success, "error: %+v", env.Error)
	assert.Contains(t, env.Metadata["invalidated"], cache.Tasks)

	after := f.comp.CompileAndRun(context.Background(), req)
	require.True(t, after.Success)
	assert.Equal(t, false, after.Metadata["fromCache"])
	assert.Equal(t, "Weekend", records(t, after)[0]["projectName"])
	assert.Len(t, f.host.Calls(), 3)
}

func TestCompileAndRun_TimedOutWriteIsUnknownAndInvalidates(t *testing.T) {
	f := newFixture(t, []engine.Option{engine.WithTimeouts(time.Second, 20*time.Millisecond)})
	require.NoError(t, f.cache.Set(cache.Tasks, "k", 1, 0))
	f.host.Enqueue(testutil.Reply{Timeout: true})

	env := f.comp.CompileAndRun(context.Background(), &query.MutationRequest{
		Operation: query.OpCreate, EntityType: "task", Data: map[string]any{"name": "Slow"},
	})
	require.False(t, env.Success)
	assert.Equal(t, engine.KindScriptTimeout, env.Error.Kind)
	assert.Equal(t, "unknown", env.Error.Details["outcome"])
	assert.Equal(t, []string{cache.Tasks, cache.Analytics}, env.Metadata["invalidated"])

	var v int
	assert.False(t, f.cache.Get(cache.Tasks, "k", &v))
}

func TestCompileAndRun_PermissionFailureDoesNotInvalidate(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.cache.Set(cache.Tasks, "k", 1, 0))
	f.host.Enqueue(testutil.Reply{Stderr: "execution error: Not authorized to send Apple events to OmniFocus. (-1743)"})

	env := f.comp.CompileAndRun(context.Background(), &query.MutationRequest{
		Operation: query.OpUpdate, EntityType: "task", ID: "t1", Changes: map[string]any{"name": "x"},
	})
	require.False(t, env.Success)
	assert.Equal(t, engine.KindPermissionDenied, env.Error.Kind)
	assert.Equal(t, []string{}, env.Metadata["invalidated"])

	var v int
	assert.True(t, f.cache.Get(cache.Tasks, "k", &v))
}

func TestCompileAndRun_ValidationNeverReachesHost(t *testing.T) {
	tests := []struct {
		name string
		req  query.Request
	}{
		{"unknown entity", &query.QueryRequest{EntityType: "perspective"}},
		{"unknown filter field", &query.QueryRequest{EntityType: "task", Where: map[string]any{"colour": "red"}}},
		{"between without upper bound", &query.QueryRequest{EntityType: "task", Filter: map[string]any{
			"type": "comparison", "field": "dueDate", "operator": "BETWEEN", "value": "2024-01-01T00:00:00Z",
		}}},
		{"task mode on projects", &query.QueryRequest{EntityType: "project", Mode: query.ModeToday}},
		{"search without text", &query.QueryRequest{EntityType: "task", Mode: query.ModeSearch}},
		{"limit too large", &query.QueryRequest{EntityType: "task", Limit: 1000}},
		{"unsortable field", &query.QueryRequest{EntityType: "task", Sort: []query.SortSpec{{Field: "tags", Direction: query.Asc}}}},
		{"unknown projected field", &query.QueryRequest{EntityType: "task", Fields: []string{"colour"}}},
		{"delete unconfirmed", &query.MutationRequest{Operation: query.OpDelete, EntityType: "task", ID: "t1"}},
		{"update without changes", &query.MutationRequest{Operation: query.OpUpdate, EntityType: "task", ID: "t1"}},
		{"create without data", &query.MutationRequest{Operation: query.OpCreate, EntityType: "task"}},
		{"read-only field", &query.MutationRequest{Operation: query.OpUpdate, EntityType: "task", ID: "t1", Changes: map[string]any{"completionDate": "2024-01-01T00:00:00Z"}}},
		{"empty batch", &query.MutationRequest{Operation: query.OpBatch}},
		{"nested batch", &query.MutationRequest{Operation: query.OpBatch, Items: []*query.MutationRequest{{Operation: query.OpBatch}}}},
		{"unknown operation", &query.MutationRequest{Operation: "archive", EntityType: "task", ID: "t1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			env := f.comp.CompileAndRun(context.Background(), tt.req)
			require.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, engine.KindValidation, env.Error.Kind)
			assert.Equal(t, engine.SeverityLow, env.Error.Severity)
			assert.Empty(t, f.host.Calls())
		})
	}
}

func TestCompileAndRun_FilterErrorsCarryCodes(t *testing.T) {
	f := newFixture(t, nil)
	env := f.comp.CompileAndRun(context.Background(), &query.QueryRequest{
		EntityType: "task",
		Filter:     map[string]any{"type": "set", "field": "tags", "mode": "ANY", "values": []any{}},
	})
	require.False(t, env.Success)
	assert.Equal(t, engine.KindValidation, env.Error.Kind)
	assert.Contains(t, env.Error.Details, "errors")
}

func TestCompileAndRun_TodayMetadata(t *testing.T) {
	f := newFixture(t, nil)
	f.host.Enqueue(items(
		map[string]any{"id": "a", "dueDate": "2024-03-14T12:00:00Z", "flagged": false},
		map[string]any{"id": "b", "dueDate": "2024-03-17T12:00:00Z", "flagged": false},
		map[string]any{"id": "c", "dueDate": "2024-03-25T12:00:00Z", "flagged": true},
	))

	env := f.comp.CompileAndRun(context.Background(), &query.QueryRequest{
		EntityType:  "task",
		Mode:        query.ModeToday,
		ModeOptions: query.ModeOptions{DaysAhead: intPtr(5)},
	})
	require.True(t, env.Success, "error: %+v", env.Error)
	assert.Equal(t, 1, env.Metadata["overdueCount"])
	assert.Equal(t, 1, env.Metadata["dueSoonCount"])
	assert.Equal(t, 1, env.Metadata["flaggedCount"])
	assert.Equal(t, 5, env.Metadata["dueSoonDays"], "echoes the effective window")
	assert.Equal(t, true, env.Metadata["sortApplied"])

	recs := records(t, env)
	require.Len(t, recs, 3)
	assert.Equal(t, postprocess.ReasonOverdue, recs[0][postprocess.ReasonField])
}

func TestCompileAndRun_TodayDefaultWindow(t *testing.T) {
	f := newFixture(t, nil)
	f.host.Enqueue(items())
	env := f.comp.CompileAndRun(context.Background(), &query.QueryRequest{EntityType: "task", Mode: query.ModeToday})
	require.True(t, env.Success)
	assert.Equal(t, 3, env.Metadata["dueSoonDays"])
}

func TestCompileAndRun_SmartSuggest(t *testing.T) {
	f := newFixture(t, nil)
	f.host.Enqueue(items(
		map[string]any{"id": "idle", "flagged": false, "available": false},
		map[string]any{"id": "flag", "flagged": true},
		map[string]any{"id": "late", "dueDate": "2024-03-01T00:00:00Z"},
	))

	env := f.comp.CompileAndRun(context.Background(), &query.QueryRequest{
		EntityType: "task", Mode: query.ModeSmartSuggest, Fields: []string{"id"}, Limit: 10,
	})
	require.True(t, env.Success)
	assert.Equal(t, 3, env.Metadata["candidates"])
	assert.Equal(t, false, env.Metadata["sortApplied"])
	assert.Equal(t, []postprocess.Record{{"id": "late"}, {"id": "flag"}}, records(t, env))
	assert.Nil(t, f.host.Calls()[0].Params["limit"])
}

func TestCompileAndRun_Search(t *testing.T) {
	f := newFixture(t, nil)
	f.host.Enqueue(items(
		map[string]any{"id": "1", "name": "Groceries", "note": "plan meals"},
		map[string]any{"id": "2", "name": "Plan"},
	))
	env := f.comp.CompileAndRun(context.Background(), &query.QueryRequest{
		EntityType: "task", Mode: query.ModeSearch, ModeOptions: query.ModeOptions{SearchText: " plan "},
		Fields: []string{"name"},
	})
	require.True(t, env.Success)
	assert.Equal(t, "plan", f.host.Calls()[0].Params["search"])
	recs := records(t, env)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0]["id"])
	assert.NotContains(t, recs[0], "note")
}

func TestCompileAndRun_HybridCreate(t *testing.T) {
	f := newFixture(t, nil)
	f.host.Enqueue(testutil.Reply{Result: map[string]any{"id": "new1"}})
	env := f.comp.CompileAndRun(context.Background(), &query.MutationRequest{
		Operation: query.OpCreate, EntityType: "task",
		Data: map[string]any{"name": "Call Bob", "tags": []any{"phone"}},
	})
	require.True(t, env.Success, "error: %+v", env.Error)
	assert.Equal(t, "Hybrid", env.Metadata["strategy"])

	params := f.host.Calls()[0].Params
	assert.Equal(t, map[string]any{"name": "Call Bob"}, params["data"])
	bridge := params["bridge"].(map[string]any)
	assert.Equal(t, map[string]any{"tags": []any{"phone"}}, bridge["changes"])
}

func TestCompileAndRun_BatchStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.host.Enqueue(
		testutil.Reply{Result: map[string]any{"id": "a"}},
		testutil.Reply{Message: "Task not found", Code: "not_found"},
	)
	env := f.comp.CompileAndRun(context.Background(), &query.MutationRequest{
		Operation: query.OpBatch,
		Confirmed: true,
		Items: []*query.MutationRequest{
			{Operation: query.OpComplete, EntityType: "task", ID: "a"},
			{Operation: query.OpDelete, EntityType: "task", ID: "b"},
			{Operation: query.OpUpdate, EntityType: "project", ID: "p", Changes: map[string]any{"flagged": true}},
		},
	})
	require.False(t, env.Success)
	assert.Equal(t, engine.KindHostReportedError, env.Error.Kind)
	assert.Equal(t, 1, env.Error.Details["index"])
	assert.True(t, env.Error.Recoverable)

	batch, ok := env.Data.(BatchResult)
	require.True(t, ok)
	assert.Equal(t, 1, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 1, batch.Skipped)
	require.Len(t, batch.Results, 2)
	assert.True(t, batch.Results[0].Success)
	assert.Nil(t, batch.Results[1].Error.Details["index"], "item error is not modified")
	assert.Equal(t, []string{cache.Analytics, cache.Tasks}, env.Metadata["invalidated"])

	calls := f.host.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "req-1.0", calls[0].RequestID())
	assert.Equal(t, "req-1.1", calls[1].RequestID())
}

func TestCompileAndRun_StaleReadIsNotCached(t *testing.T) {
	f := newFixture(t, nil)
	f.host.Enqueue(items(map[string]any{"id": "old"}), items(map[string]any{"id": "new"}))

	inner := engine.New(engine.WithRunner(f.host), engine.WithTempDir(t.TempDir()))
	racing := executorFunc(func(ctx context.Context, art *script.Artifact) (*engine.Outcome, error) {
		out, err := inner.Run(ctx, art)
		require.NoError(t, f.cache.Invalidate(cache.Tasks))
		return out, err
	})
	var n atomic.Int64
	comp := New(registry.Default(), racing,
		WithCache(f.cache),
		WithClock(testutil.FixedClock(now)),
		WithIDGenerator(func() string { return fmt.Sprintf("s-%d", n.Add(1)) }),
	)

	req := &query.QueryRequest{EntityType: "task"}
	require.True(t, comp.CompileAndRun(context.Background(), req).Success)
	again := comp.CompileAndRun(context.Background(), req)
	require.True(t, again.Success)
	assert.Equal(t, false, again.Metadata["fromCache"])
	assert.Equal(t, "new", records(t, again)[0]["id"])
}

type executorFunc func(ctx context.Context, art *script.Artifact) (*engine.Outcome, error)

func (f executorFunc) Run(ctx context.Context, art *script.Artifact) (*engine.Outcome, error) {
	return f(ctx, art)
}

func TestCompileAndRun_CoalescesConcurrentReads(t *testing.T) {
	f := newFixture(t, nil)
	reply := items(map[string]any{"id": "t1"})
	reply.Delay = 100 * time.Millisecond
	f.host.Enqueue(reply)

	req := &query.QueryRequest{EntityType: "task"}
	var wg sync.WaitGroup
	envs := make([]*Envelope, 2)
	for i := range envs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			envs[i] = f.comp.CompileAndRun(context.Background(), req)
		}()
	}
	wg.Wait()

	for _, env := range envs {
		require.True(t, env.Success, "error: %+v", env.Error)
	}
	assert.Len(t, f.host.Calls(), 1)
}

func TestCompileAndRun_CoalescedReadSurvivesFirstCallerCancel(t *testing.T) {
	f := newFixture(t, nil)
	reply := items(map[string]any{"id": "t1"})
	reply.Delay = 100 * time.Millisecond
	f.host.Enqueue(reply)

	req := &query.QueryRequest{EntityType: "task"}
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var first, second *Envelope
	wg.Add(2)
	go func() {
		defer wg.Done()
		first = f.comp.CompileAndRun(ctx, req)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		second = f.comp.CompileAndRun(context.Background(), req)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	wg.Wait()

	require.True(t, second.Success, "error: %+v", second.Error)
	assert.Equal(t, "t1", records(t, second)[0]["id"])
	assert.True(t, first.Success, "error: %+v", first.Error)
	assert.Len(t, f.host.Calls(), 1)
}

func TestCompileAndRun_Journal(t *testing.T) {
	j, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	f := newFixture(t, nil, WithJournal(j))
	f.host.Enqueue(items())
	req := &query.QueryRequest{EntityType: "tag"}
	f.comp.CompileAndRun(context.Background(), req)
	f.comp.CompileAndRun(context.Background(), req)
	f.comp.CompileAndRun(context.Background(), &query.MutationRequest{Operation: query.OpDelete, EntityType: "task", ID: "x"})

	got, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, string(engine.KindValidation), got[0].ErrorKind)
	assert.True(t, got[1].FromCache)
	assert.Equal(t, "DirectRead", got[2].Strategy)
	assert.NotEmpty(t, got[2].ScriptDigest)
	assert.Equal(t, got[1].RequestKey, got[2].RequestKey)
}

func TestCompile_DryRun(t *testing.T) {
	f := newFixture(t, nil)
	plan, err := f.comp.Compile(&query.QueryRequest{EntityType: "task", Mode: query.ModeFlagged})
	require.NoError(t, err)
	assert.Equal(t, "query", plan.Operation)
	assert.Equal(t, "DirectRead", plan.Strategy.String())
	assert.Equal(t, "(flagged EQ true AND completed EQ false)", plan.Filter)
	assert.NotEmpty(t, plan.CacheKey)
	require.Len(t, plan.Scripts, 1)
	assert.Contains(t, plan.Scripts[0].Source, script.DefaultApplication)
	assert.Empty(t, f.host.Calls())

	plan, err = f.comp.Compile(&query.MutationRequest{
		Operation: query.OpBatch,
		Items: []*query.MutationRequest{
			{Operation: query.OpUpdate, EntityType: "task", ID: "a", Changes: map[string]any{"plannedDate": "2024-03-20T09:00:00Z"}},
			{Operation: query.OpComplete, EntityType: "task", ID: "b"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "BridgeEvaluation", plan.Strategy.String())
	require.Len(t, plan.Scripts, 2)
	assert.Equal(t, "BridgeEvaluation", plan.Scripts[0].Strategy.String())
	assert.Equal(t, "DirectWrite", plan.Scripts[1].Strategy.String())

	_, err = f.comp.Compile(&query.MutationRequest{Operation: query.OpDelete, EntityType: "task", ID: "a"})
	assert.True(t, engine.IsKind(err, engine.KindValidation))
}

func TestCacheKey_IgnoresShorthandOrder(t *testing.T) {
	f := newFixture(t, nil)
	a, err := f.comp.Compile(&query.QueryRequest{EntityType: "task", Where: map[string]any{"flagged": true, "name": "x"}})
	require.NoError(t, err)
	b, err := f.comp.Compile(&query.QueryRequest{EntityType: "task", Where: map[string]any{"name": "x", "flagged": true}})
	require.NoError(t, err)
	assert.Equal(t, a.CacheKey, b.CacheKey)

	c, err := f.comp.Compile(&query.QueryRequest{EntityType: "task", Where: map[string]any{"name": "x", "flagged": true}, Offset: 50})
	require.NoError(t, err)
	assert.NotEqual(t, a.CacheKey, c.CacheKey)
}
