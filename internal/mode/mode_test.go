package mode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/focusql/internal/filter"
	"github.com/roach88/focusql/internal/ir"
	"github.com/roach88/focusql/internal/query"
	"github.com/roach88/focusql/internal/registry"
)

var now = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func days(n int) query.ModeOptions { return query.ModeOptions{DaysAhead: &n} }

func TestAugment_PassThrough(t *testing.T) {
	base := filter.Eq("name", ir.String("x"))
	for _, m := range []query.Mode{"", query.ModeAll, query.ModeInbox, query.ModeSearch} {
		assert.Same(t, base, Augment(m, base, query.ModeOptions{}, now), "mode %q", m)
	}
	assert.Nil(t, Augment(query.ModeAll, nil, query.ModeOptions{}, now))
}

func TestAugment_Overdue(t *testing.T) {
	got := Augment(query.ModeOverdue, nil, query.ModeOptions{}, now)
	want := filter.AllOf(
		filter.Eq("completed", ir.Bool(false)),
		filter.Compare("dueDate", filter.OpLT, ir.String("2026-03-10T15:30:00Z")),
	)
	assert.Equal(t, want, got)
}

func TestAugment_Today(t *testing.T) {
	got := Augment(query.ModeToday, nil, query.ModeOptions{}, now)
	want := filter.AllOf(
		filter.Eq("completed", ir.Bool(false)),
		filter.Eq("dropped", ir.Bool(false)),
		filter.Eq("tagStatus", ir.String("valid")),
		filter.Compare("dueDate", filter.OpLT, ir.String("2026-03-13T00:00:00Z")),
	)
	assert.Equal(t, want, got)

	got = Augment(query.ModeToday, nil, days(1), now)
	last := got.(*filter.Logical).Children[3].(*filter.Comparison)
	assert.Equal(t, ir.String("2026-03-11T00:00:00Z"), last.Value)
}

func TestAugment_TodayUsesLocalMidnight(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2026, 3, 10, 22, 0, 0, 0, loc) // 03:00 UTC on the 11th
	got := Augment(query.ModeToday, nil, days(0), local)
	last := got.(*filter.Logical).Children[3].(*filter.Comparison)
	assert.Equal(t, ir.String("2026-03-10T05:00:00Z"), last.Value)
}

func TestAugment_Upcoming(t *testing.T) {
	got := Augment(query.ModeUpcoming, nil, days(14), now)
	want := filter.AllOf(
		filter.Eq("completed", ir.Bool(false)),
		filter.Between("dueDate", ir.String("2026-03-10T15:30:00Z"), ir.String("2026-03-24T15:30:00Z")),
	)
	assert.Equal(t, want, got)

	def := Augment(query.ModeUpcoming, nil, query.ModeOptions{}, now)
	between := def.(*filter.Logical).Children[1].(*filter.Comparison)
	assert.Equal(t, ir.String("2026-03-17T15:30:00Z"), between.UpperBound)
}

func TestAugment_AvailableBlockedSmartSuggest(t *testing.T) {
	assert.Equal(t,
		filter.AllOf(filter.Eq("completed", ir.Bool(false)), filter.Eq("available", ir.Bool(true))),
		Augment(query.ModeAvailable, nil, query.ModeOptions{}, now))
	assert.Equal(t,
		filter.AllOf(filter.Eq("completed", ir.Bool(false)), filter.Eq("blocked", ir.Bool(true))),
		Augment(query.ModeBlocked, nil, query.ModeOptions{}, now))
	assert.Equal(t,
		filter.AllOf(filter.Eq("completed", ir.Bool(false))),
		Augment(query.ModeSmartSuggest, nil, query.ModeOptions{}, now))
}

func TestAugment_FlaggedRespectsExplicitCompleted(t *testing.T) {
	got := Augment(query.ModeFlagged, nil, query.ModeOptions{}, now)
	assert.Equal(t, filter.AllOf(filter.Eq("flagged", ir.Bool(true)), filter.Eq("completed", ir.Bool(false))), got)

	base := filter.Eq("completed", ir.Bool(true))
	got = Augment(query.ModeFlagged, base, query.ModeOptions{}, now)
	assert.Equal(t, filter.AllOf(filter.Eq("flagged", ir.Bool(true)), base), got)
}

func TestAugment_DoesNotMutateBase(t *testing.T) {
	base := filter.AllOf(filter.Eq("name", ir.String("x")))
	snapshot := filter.ToIR(base)

	first := Augment(query.ModeOverdue, base, query.ModeOptions{}, now)
	second := Augment(query.ModeOverdue, base, query.ModeOptions{}, now)

	assert.Equal(t, first, second)
	assert.True(t, ir.Equal(snapshot, filter.ToIR(base)))
	assert.False(t, filter.References(base, "completed"))
}

func TestAugment_ResultsValidate(t *testing.T) {
	task, err := registry.Default().Entity("task")
	require.NoError(t, err)
	for _, m := range query.Modes() {
		got := Augment(m, nil, query.ModeOptions{}, now)
		assert.NoError(t, filter.Validate(task, got), "mode %s", m)
	}
}

func TestDefaultSort(t *testing.T) {
	assert.Equal(t, []query.SortSpec{{Field: "modified", Direction: query.Desc}}, DefaultSort(query.ModeToday))
	assert.Equal(t, []query.SortSpec{{Field: "dueDate", Direction: query.Asc}}, DefaultSort(query.ModeOverdue))
	assert.Equal(t, []query.SortSpec{{Field: "dueDate", Direction: query.Asc}}, DefaultSort(query.ModeUpcoming))
	assert.Nil(t, DefaultSort(query.ModeFlagged))
	assert.Nil(t, DefaultSort(query.ModeAll))
}

func TestDaysAhead(t *testing.T) {
	assert.Equal(t, 3, DaysAhead(query.ModeToday, query.ModeOptions{}))
	assert.Equal(t, 5, DaysAhead(query.ModeToday, days(5)))
	assert.Equal(t, 7, DaysAhead(query.ModeUpcoming, query.ModeOptions{}))
	assert.Equal(t, 0, DaysAhead(query.ModeFlagged, days(5)))
}
